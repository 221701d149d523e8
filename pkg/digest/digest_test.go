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

package digest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestDeterministic(t *testing.T) {
	a := Digest("alice@example.com")
	b := Digest("alice@example.com")
	c := Digest("bob@example.com")

	assert.Equal(t, a, b, "equal inputs must produce equal digests")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, "alice@example.com", a)
}

func TestSecureHashKeyed(t *testing.T) {
	ops1 := New([]byte("digest-key-one"))
	ops2 := New([]byte("digest-key-two"))

	h1 := ops1.SecureHash("payload", EncodingHex)
	h2 := ops2.SecureHash("payload", EncodingHex)

	assert.NotEqual(t, h1, h2, "different keys must produce different hashes")
	assert.Equal(t, h1, ops1.SecureHash("payload", EncodingHex))
	assert.Len(t, h1, 64)
}

func TestSecureHashEncodings(t *testing.T) {
	ops := New([]byte("digest-key"))

	hexHash := ops.SecureHash("token", EncodingHex)
	urlHash := ops.SecureHash("token", EncodingBase64URL)

	assert.NotEqual(t, hexHash, urlHash)
	assert.NotContains(t, urlHash, "=")
	assert.NotContains(t, urlHash, "+")
	assert.NotContains(t, urlHash, "/")
}

func TestFingerprintFormat(t *testing.T) {
	ops := New([]byte("digest-key"))

	pem := "-----BEGIN PUBLIC KEY-----\nAAAABBBBCCCC\n-----END PUBLIC KEY-----\n"
	fp := ops.Fingerprint(pem)

	parts := strings.Split(fp, ":")
	require.Len(t, parts, 32, "HMAC-SHA256 fingerprint has 32 byte pairs")
	for _, p := range parts {
		assert.Len(t, p, 2)
		assert.Equal(t, strings.ToUpper(p), p)
	}
}

func TestFingerprintIgnoresArmor(t *testing.T) {
	ops := New([]byte("digest-key"))

	wrapped := "-----BEGIN PUBLIC KEY-----\nAAAA\nBBBB\n-----END PUBLIC KEY-----\n"
	rewrapped := "-----BEGIN RSA PUBLIC KEY-----\nAAAABBBB\n-----END RSA PUBLIC KEY-----"

	assert.Equal(t, ops.Fingerprint(wrapped), ops.Fingerprint(rewrapped),
		"fingerprint is computed over the key body, not the armor")
}

func TestStripPEM(t *testing.T) {
	pem := "-----BEGIN PUBLIC KEY-----\n  AAAA  \nBBBB\n\n-----END PUBLIC KEY-----\n"
	assert.Equal(t, "AAAABBBB", StripPEM(pem))
}
