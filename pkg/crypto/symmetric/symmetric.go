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

// Package symmetric implements the AES-256-CBC field cipher used for at-rest
// encryption of single string values: PII fields under the fixed server key
// and task fields under a per-user content key.
//
// The ciphertext token is self-describing: the hex-encoded ciphertext is
// split at its midpoint and the hex-encoded IV spliced between the halves,
// with the whole string base64-encoded. The IV length is fixed, so the
// midpoint is computable from the total length alone and no side channel is
// needed to recover it.
package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the required key length in bytes (AES-256).
	KeySize = 32

	// ivSeedSize is the number of random bytes drawn per encryption; the
	// seed is doubled to fill the 16-byte AES block IV.
	ivSeedSize = 8

	// ivHexLen is the length of the hex-encoded IV spliced into the token.
	ivHexLen = 2 * aes.BlockSize
)

// kdfSalt pins passphrase-derived keys to this application. Changing it
// invalidates every ciphertext written under a derived key.
const kdfSalt = "taskvault/field-cipher.v1"

const kdfIterations = 4096

// Cipher encrypts and decrypts single string values under a 32-byte key.
// Safe for concurrent use; the cipher holds no mutable state.
type Cipher struct {
	key []byte
}

// New creates a cipher bound to the given 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Cipher{key: k}, nil
}

// NewFromPassphrase derives a 32-byte key from a passphrase with
// PBKDF2-SHA256 and returns a cipher bound to it. Used where the call site
// has a passphrase (e.g. a session passphrase) rather than raw key bytes.
func NewFromPassphrase(passphrase string) *Cipher {
	key := pbkdf2.Key([]byte(passphrase), []byte(kdfSalt), kdfIterations, KeySize, sha256.New)
	return &Cipher{key: key}
}

// Encrypt encrypts plaintext under a fresh random IV and returns the
// interleaved token described in the package comment.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	seed := make([]byte, ivSeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("symmetric: failed to generate iv: %w", err)
	}
	return c.encrypt(plaintext, seed)
}

// EncryptWithIV encrypts plaintext under an explicit 8-byte IV seed.
// Deterministic output for a given key, seed, and plaintext.
func (c *Cipher) EncryptWithIV(plaintext string, seed []byte) (string, error) {
	if len(seed) != ivSeedSize {
		return "", ErrInvalidIVSeed
	}
	return c.encrypt(plaintext, seed)
}

func (c *Cipher) encrypt(plaintext string, seed []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("symmetric: %w", err)
	}

	iv := expandIV(seed)
	padded := padPKCS7([]byte(plaintext), aes.BlockSize)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	cipherHex := hex.EncodeToString(ciphertext)
	mid := len(cipherHex) / 2
	token := cipherHex[:mid] + hex.EncodeToString(iv) + cipherHex[mid:]

	return base64.StdEncoding.EncodeToString([]byte(token)), nil
}

// Decrypt inverts Encrypt. Returns ErrDecryptionFailed when the key is
// wrong or the token is corrupt.
func (c *Cipher) Decrypt(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	hexToken := string(raw)
	cipherHexLen := len(hexToken) - ivHexLen
	if cipherHexLen < 2*aes.BlockSize || cipherHexLen%(2*aes.BlockSize) != 0 {
		return "", fmt.Errorf("%w: malformed token", ErrDecryptionFailed)
	}

	mid := cipherHexLen / 2
	ivHex := hexToken[mid : mid+ivHexLen]
	cipherHex := hexToken[:mid] + hexToken[mid+ivHexLen:]

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("symmetric: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, ok := unpadPKCS7(plaintext, aes.BlockSize)
	if !ok || !utf8.Valid(unpadded) {
		return "", fmt.Errorf("%w: bad decrypt", ErrDecryptionFailed)
	}

	return string(unpadded), nil
}

// expandIV doubles the 8-byte seed to fill the 16-byte AES block IV.
func expandIV(seed []byte) []byte {
	iv := make([]byte, aes.BlockSize)
	copy(iv, seed)
	copy(iv[ivSeedSize:], seed)
	return iv
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
