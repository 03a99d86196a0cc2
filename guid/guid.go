// Package guid provides a 128-bit globally unique identifier (16 bytes)
// represented as a plain value type, together with parsing, formatting,
// JSON, and database/sql support.
//
// Unlike version-locked UUID packages, guid treats all 16-byte patterns as
// valid: identifiers produced by comb encoding carry a timestamp fragment in
// their trailing bytes and therefore do not conform to a single RFC 9562
// version.
package guid

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// GUID is a 128-bit identifier (16 bytes). The zero value is the nil GUID.
type GUID [16]byte

// Nil is the zero GUID, consisting of all zero bytes.
var Nil GUID

// NewRandom generates a fresh random GUID from crypto/rand. It stamps the
// RFC 9562 version 4 and variant 1 bits into bytes 6 and 8, so the result is
// a conventional random UUID. Both stamped bytes lie inside the 10-byte
// prefix that comb encoding passes through unmodified.
//
// It panics if the system source of randomness fails.
func NewRandom() GUID {
	var g GUID
	if _, err := io.ReadFull(rand.Reader, g[:]); err != nil {
		panic(fmt.Errorf("guid: failed to read random bytes: %w", err))
	}
	g[6] = (g[6] & 0x0f) | 0x40
	g[8] = (g[8] & 0x3f) | 0x80
	return g
}

// IsNil reports whether g is the nil GUID.
func (g GUID) IsNil() bool { return g == Nil }

// String returns the canonical hyphenated representation of the GUID.
// Format: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func (g GUID) String() string {
	buf := make([]byte, 36)
	hex.Encode(buf[0:8], g[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], g[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], g[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], g[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], g[10:])
	return string(buf)
}

// Parse parses a standard 36-character hyphenated string into a GUID.
// Any 16-byte value is accepted; no version or variant bits are enforced.
func Parse(s string) (GUID, error) {
	var g GUID
	if len(s) != 36 {
		return g, fmt.Errorf("guid: invalid length (%d)", len(s))
	}
	if s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return g, fmt.Errorf("guid: invalid format")
	}
	h := s[0:8] + s[9:13] + s[14:18] + s[19:23] + s[24:]
	if _, err := hex.Decode(g[:], []byte(h)); err != nil {
		return GUID{}, fmt.Errorf("guid: invalid characters: %w", err)
	}
	return g, nil
}

// ParseBytes converts a raw 16-byte slice into a GUID. The input slice is
// copied; later mutations of it do not affect the returned value.
func ParseBytes(b []byte) (GUID, error) {
	var g GUID
	if len(b) != len(g) {
		return g, fmt.Errorf("guid: invalid length (%d)", len(b))
	}
	copy(g[:], b)
	return g, nil
}

// MarshalText implements encoding.TextMarshaler using the canonical
// hyphenated representation.
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// MarshalJSON encodes the GUID as a JSON string in canonical form.
func (g GUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON decodes a JSON string in canonical form into the GUID.
func (g *GUID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("guid: invalid JSON value: %w", err)
	}
	return g.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer. It emits the canonical string form, which
// Postgres accepts for uuid columns.
func (g GUID) Value() (driver.Value, error) {
	return g.String(), nil
}

// Scan implements sql.Scanner. It accepts the hyphenated string form (as
// string or []byte) and raw 16-byte slices.
func (g *GUID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return g.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 16 {
			copy(g[:], v)
			return nil
		}
		return g.UnmarshalText(v)
	default:
		return fmt.Errorf("guid: cannot scan type %T", src)
	}
}
