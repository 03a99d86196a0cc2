// Package comb implements COMB ("combined") identifiers: 128-bit values
// that are random in their first 10 bytes and carry a timestamp fragment in
// their trailing 6 bytes, so that their sort order approximately tracks
// creation time.
//
// Purely random 128-bit keys scatter inserts across the whole of a database
// index. A COMB identifier clusters inserts instead: bytes 10-11 hold a
// big-endian day counter and bytes 12-15 a big-endian count of 1/300-second
// ticks since midnight UTC, so identifiers created later compare greater,
// both lexicographically over their bytes and as unsigned big-endian
// integers. Uniqueness still comes entirely from the random prefix.
//
// The byte layout is frozen: it matches the time resolution and ordering of
// a widely deployed relational index format, and the encoded values must
// remain comparable with identifiers produced by existing implementations
// of the scheme. In particular, the time-of-day divisor is the literal
// 3.333333 rather than the exact 10/3, because the established encoders use
// that literal and the difference shifts tick boundaries.
package comb

import (
	"encoding/binary"
	"time"

	"github.com/deep-rent/comb/clock"
	"github.com/deep-rent/comb/guid"
)

// Epoch is the reference instant from which day offsets are counted.
var Epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	secondsPerDay = 24 * 60 * 60

	// ticksDivisor converts milliseconds since midnight into 1/300-second
	// ticks. Do not replace with 10.0/3.0: the trailing digits affect
	// truncation at tick boundaries, and the literal is what existing
	// encoders of this layout use.
	ticksDivisor = 3.333333
)

// Encode embeds a timestamp fragment into the trailing 6 bytes of r.
//
// Bytes 0-9 of r pass through unmodified. Bytes 10-11 are overwritten with
// the big-endian low 16 bits of the number of whole days between Epoch and
// now, and bytes 12-15 with the big-endian low 32 bits of now's time of day
// in 1/300-second ticks. The timestamp is interpreted in UTC regardless of
// the location attached to now.
//
// Encode is pure and deterministic; it never fails. Timestamps more than
// 65535 days after Epoch (mid-2079 onward) or before it wrap silently in
// the 16-bit day field: such identifiers stay unique but no longer sort
// chronologically. The field cannot be widened without breaking the layout.
func Encode(r guid.GUID, now time.Time) guid.GUID {
	id := r
	u := now.UTC()

	binary.BigEndian.PutUint16(id[10:12], uint16(dayOffset(u)))

	var ticks [8]byte
	binary.BigEndian.PutUint64(ticks[:], uint64(ticksOfDay(u)))
	copy(id[12:16], ticks[4:8])

	return id
}

// dayOffset returns the number of whole days elapsed between Epoch and t.
// Negative for instants before Epoch.
func dayOffset(t time.Time) int32 {
	return int32((t.Unix() - Epoch.Unix()) / secondsPerDay)
}

// ticksOfDay converts t's UTC time of day into 1/300-second ticks,
// truncating toward zero.
func ticksOfDay(t time.Time) int64 {
	h, m, s := t.Clock()
	ms := int64(h)*3_600_000 +
		int64(m)*60_000 +
		int64(s)*1_000 +
		int64(t.Nanosecond())/1_000_000
	return int64(float64(ms) / ticksDivisor)
}

// Source produces fresh random 128-bit values for a Generator.
type Source func() guid.GUID

// Generator couples a source of randomness with a clock. The zero value is
// not usable; obtain one from NewGenerator.
//
// Generators are stateless and safe for concurrent use, provided the
// configured Source and Clock are.
type Generator struct {
	random Source
	clock  clock.Clock
}

// NewGenerator creates a Generator. By default, it draws randomness from
// guid.NewRandom and timestamps from the system clock. These defaults can
// be overridden by passing in one or more Option functions.
func NewGenerator(opts ...Option) *Generator {
	c := config{
		random: guid.NewRandom,
		clock:  clock.System(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Generator{
		random: c.random,
		clock:  c.clock,
	}
}

// New returns a fresh COMB identifier: a random value from the generator's
// source, comb-encoded at the current time of the generator's clock.
func (g *Generator) New() guid.GUID {
	return Encode(g.random(), g.clock())
}

// config holds the configuration settings for a Generator.
type config struct {
	random Source
	clock  clock.Clock
}

// Option defines a function that modifies the generator configuration.
type Option func(*config)

// WithRandom returns an Option that sets the source of random 128-bit
// values. If the provided Source is nil, it is ignored.
func WithRandom(random Source) Option {
	return func(c *config) {
		if random != nil {
			c.random = random
		}
	}
}

// WithClock returns an Option that sets the clock used for timestamps.
// If the provided Clock is nil, it is ignored.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// std backs the package-level New.
var std = NewGenerator()

// New returns a fresh COMB identifier using crypto/rand randomness and the
// system clock. It is a shorthand for NewGenerator().New().
func New() guid.GUID {
	return std.New()
}
