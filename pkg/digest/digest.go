// Copyright (c) 2025 TaskVault Project
//
// This file is part of go-taskvault.
//
// go-taskvault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@taskvault.dev for commercial licensing options.

// Package digest provides the hashing primitives used across the vault:
// a plain SHA-256 digest for lookup-by-hash indices (e.g. email digests),
// and a keyed HMAC-SHA256 secure hash used for public key fingerprints and
// opaque tokens.
package digest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Encoding selects the output encoding of a secure hash.
type Encoding string

const (
	// EncodingHex renders the hash as lowercase hexadecimal.
	EncodingHex Encoding = "hex"

	// EncodingBase64URL renders the hash as unpadded base64url, suitable
	// for opaque tokens carried in URLs.
	EncodingBase64URL Encoding = "base64url"
)

// Digest returns the plain SHA-256 digest of data, base64-encoded.
// Used for deterministic lookup indices such as email digests; it is
// intentionally unkeyed so equal inputs always collide.
func Digest(data string) string {
	sum := sha256.Sum256([]byte(data))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Ops computes keyed secure hashes under a deployment-wide digest key.
type Ops struct {
	key []byte
}

// New creates digest operations bound to the given HMAC key.
func New(key []byte) *Ops {
	k := make([]byte, len(key))
	copy(k, key)
	return &Ops{key: k}
}

// SecureHash returns the HMAC-SHA256 of data under the digest key, rendered
// in the requested encoding. EncodingHex is the default for an unrecognized
// encoding value.
func (o *Ops) SecureHash(data string, enc Encoding) string {
	mac := hmac.New(sha256.New, o.key)
	mac.Write([]byte(data))
	sum := mac.Sum(nil)

	switch enc {
	case EncodingBase64URL:
		return base64.RawURLEncoding.EncodeToString(sum)
	default:
		return hex.EncodeToString(sum)
	}
}

// Fingerprint computes the keyed fingerprint of a PEM public key: the
// secure hash of the key material with PEM armor stripped, rendered as
// uppercase colon-separated hex pairs.
func (o *Ops) Fingerprint(publicKeyPEM string) string {
	body := StripPEM(publicKeyPEM)

	mac := hmac.New(sha256.New, o.key)
	mac.Write([]byte(body))
	sum := mac.Sum(nil)

	pairs := make([]string, len(sum))
	for i, b := range sum {
		pairs[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	return strings.Join(pairs, ":")
}

// StripPEM removes PEM header/footer lines and all whitespace, leaving only
// the base64 body. Fingerprints are computed over the body so that armor
// label or line-wrapping differences do not change the fingerprint.
func StripPEM(pemData string) string {
	var body strings.Builder
	for _, line := range strings.Split(pemData, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		body.WriteString(line)
	}
	return body.String()
}
