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

// Package asymmetric implements the RSA-OAEP public-key cipher used to wrap
// per-user content keys. A cipher instance is bound to a passphrase (the
// user's login passphrase for online unwrap, or the escrow passphrase when
// the server acts on a backup key) and operates on PEM key material
// produced by GenerateKeyPair.
//
// OAEP uses SHA-256 for both the message digest and MGF1. The system this
// design descends from used SHA-1 for MGF1; a fresh deployment has no
// ciphertext to stay compatible with, so the uniform choice is deliberate.
package asymmetric

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/taskvault/go-taskvault/pkg/digest"
	"github.com/taskvault/go-taskvault/pkg/encoding"
	"github.com/taskvault/go-taskvault/pkg/escrow"
	"github.com/taskvault/go-taskvault/pkg/metrics"
	"github.com/taskvault/go-taskvault/pkg/types"
)

const (
	// DefaultKeyBits is the RSA modulus size for generated keypairs.
	DefaultKeyBits = 4096

	// MinKeyBits is the smallest modulus size accepted (used by tests and
	// constrained environments).
	MinKeyBits = 2048
)

// EncryptRequest carries the inputs for encrypting a small payload to a
// public key. Fingerprint is mandatory: encryption to an unverified key is
// refused.
type EncryptRequest struct {
	PublicKey   string
	Data        string
	Fingerprint string
}

// DecryptRequest carries the encrypted private key blob and the base64
// ciphertext to unwrap with it.
type DecryptRequest struct {
	PrivateKey string
	Encrypted  string
}

// Cipher performs RSA-OAEP operations with private keys unwrapped using
// the instance passphrase. Safe for concurrent use.
type Cipher struct {
	passphrase string
	digest     *digest.Ops
	bits       int
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithKeyBits overrides the generated RSA modulus size. Values below
// MinKeyBits are rejected at generation time.
func WithKeyBits(bits int) Option {
	return func(c *Cipher) { c.bits = bits }
}

// New creates a cipher whose private-key operations use the given
// passphrase, with fingerprints computed by the given digest operations.
func New(passphrase string, digestOps *digest.Ops, opts ...Option) *Cipher {
	c := &Cipher{
		passphrase: passphrase,
		digest:     digestOps,
		bits:       DefaultKeyBits,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateKeyPair generates an RSA keypair for a new user. The private key
// is returned already encrypted (PKCS#8, AES-256-CBC) under the instance
// passphrase; the backup key holds the same key material re-encrypted under
// the escrow passphrase and base64-encoded.
//
// Generation is CPU-bound and takes multiple seconds at 4096 bits, so it
// runs on its own goroutine; the calling request can be abandoned through
// ctx while generation completes in the background.
func (c *Cipher) GenerateKeyPair(ctx context.Context, unlock *escrow.Unlock, userID string) (types.KeyPair, error) {
	defer metrics.TimeOperation(metrics.OpGenerateKeyPair)()

	if c.bits < MinKeyBits {
		return types.KeyPair{}, ErrInvalidKeyBits
	}

	type result struct {
		pair types.KeyPair
		err  error
	}
	done := make(chan result, 1)

	go func() {
		pair, err := c.generate(unlock, userID)
		done <- result{pair: pair, err: err}
	}()

	select {
	case <-ctx.Done():
		return types.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGeneration, ctx.Err())
	case r := <-done:
		if r.err != nil {
			metrics.RecordError(metrics.OpGenerateKeyPair, "key_generation")
			return types.KeyPair{}, r.err
		}
		metrics.RecordOperation(metrics.OpGenerateKeyPair, metrics.StatusSuccess)
		return r.pair, nil
	}
}

func (c *Cipher) generate(unlock *escrow.Unlock, userID string) (types.KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, c.bits)
	if err != nil {
		return types.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	publicPEM, err := encoding.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return types.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	privatePEM, err := encoding.EncodePrivateKeyPEM(key, []byte(c.passphrase))
	if err != nil {
		return types.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	backupPEM, err := encoding.EncodePrivateKeyPEM(key, []byte(unlock.Open(metrics.OpGenerateKeyPair, userID)))
	if err != nil {
		return types.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	return types.KeyPair{
		PublicKey:   string(publicPEM),
		PrivateKey:  string(privatePEM),
		BackupKey:   base64.StdEncoding.EncodeToString(backupPEM),
		Fingerprint: c.digest.Fingerprint(string(publicPEM)),
	}, nil
}

// Encrypt encrypts req.Data to req.PublicKey after verifying that the
// supplied fingerprint matches the one computed for that key. The mismatch
// path guards against encrypting to a substituted key.
func (c *Cipher) Encrypt(req EncryptRequest) (string, error) {
	if c.digest.Fingerprint(req.PublicKey) != req.Fingerprint {
		metrics.RecordError(metrics.OpEncrypt, "fingerprint_mismatch")
		return "", ErrFingerprintMismatch
	}

	publicKey, err := encoding.DecodePublicKeyPEM([]byte(req.PublicKey))
	if err != nil {
		return "", fmt.Errorf("asymmetric: %w", err)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, []byte(req.Data), nil)
	if err != nil {
		return "", fmt.Errorf("asymmetric: encrypt: %w", err)
	}

	metrics.RecordOperation(metrics.OpEncrypt, metrics.StatusSuccess)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt unwraps the private key using the instance passphrase and
// performs the OAEP decryption. Wrong passphrase, wrong key, and malformed
// ciphertext all surface as ErrDecryptionFailed.
func (c *Cipher) Decrypt(req DecryptRequest) (string, error) {
	privateKey, err := c.privateKey(req.PrivateKey)
	if err != nil {
		metrics.RecordError(metrics.OpDecrypt, "decryption_failed")
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(req.Encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privateKey, ciphertext, nil)
	if err != nil {
		metrics.RecordError(metrics.OpDecrypt, "decryption_failed")
		return "", fmt.Errorf("%w: operation failed", ErrDecryptionFailed)
	}

	metrics.RecordOperation(metrics.OpDecrypt, metrics.StatusSuccess)
	return string(plaintext), nil
}

// privateKey decodes an encrypted PKCS#8 PEM blob (or its base64 form, as
// stored for backup keys) using the instance passphrase.
func (c *Cipher) privateKey(blob string) (*rsa.PrivateKey, error) {
	pemData := []byte(blob)
	if decoded, err := base64.StdEncoding.DecodeString(blob); err == nil {
		pemData = decoded
	}

	key, err := encoding.DecodePrivateKeyPEM(pemData, []byte(c.passphrase))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return key, nil
}
