// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package seal produces tamper-evident string tokens for identifiers.
//
// Database keys exposed verbatim in URLs or API payloads invite forgery:
// nothing stops a client from substituting a different key. A sealed token
// binds the identifier to an Ed448 signature, so a server can hand out
// references and later verify that any token it receives back is one it
// issued.
//
// Tokens are URL-safe and self-contained: base64url over the 16 identifier
// bytes followed by the 114-byte signature.
package seal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/deep-rent/comb/guid"
)

// tokenSize is the decoded token length: identifier plus signature.
const tokenSize = 16 + ed448.SignatureSize

// ErrInvalidToken is returned by Open for any token that does not decode
// to an identifier sealed with the matching private key. The error is
// deliberately uniform: callers learn nothing about which check failed.
var ErrInvalidToken = errors.New("seal: invalid token")

// GenerateKey creates a fresh Ed448 key pair from crypto/rand.
func GenerateKey() (ed448.PublicKey, ed448.PrivateKey, error) {
	return ed448.GenerateKey(rand.Reader)
}

// Seal signs id with key and returns the token. The key must be a valid
// Ed448 private key; passing a malformed key panics.
func Seal(key ed448.PrivateKey, id guid.GUID) string {
	// Pure Ed448 with an empty context string, the same variant RFC 8037
	// prescribes for the "EdDSA" JWS algorithm.
	sig := ed448.Sign(key, id[:], "")

	buf := make([]byte, 0, tokenSize)
	buf = append(buf, id[:]...)
	buf = append(buf, sig...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Open verifies token against key and returns the embedded identifier.
// It returns ErrInvalidToken if the token is malformed, truncated, or
// carries a signature that does not verify.
func Open(key ed448.PublicKey, token string) (guid.GUID, error) {
	// Strict decoding rejects set padding bits in the final character, so
	// exactly one string form opens to a given identifier.
	raw, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil || len(raw) != tokenSize {
		return guid.Nil, ErrInvalidToken
	}
	if !ed448.Verify(key, raw[:16], raw[16:], "") {
		return guid.Nil, ErrInvalidToken
	}
	var id guid.GUID
	copy(id[:], raw[:16])
	return id, nil
}
