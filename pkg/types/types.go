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

// Package types contains shared type definitions used across the vault,
// including the cipher and password capability interfaces and the keypair
// value produced by asymmetric key generation. This package has no
// dependencies on other go-taskvault packages to prevent import cycles.
package types

// Cipher is the capability shared by the symmetric and asymmetric field
// ciphers: transform a single string value to and from its at-rest form.
// Implementations hold genuinely different key material (raw bytes vs. a
// PEM keypair passphrase) and do not share state.
type Cipher interface {
	// Encrypt transforms a plaintext value into its storable ciphertext form.
	Encrypt(plaintext string) (string, error)

	// Decrypt inverts Encrypt. Wrong key material or a corrupt token is an
	// error, never a panic and never silently corrupted plaintext.
	Decrypt(ciphertext string) (string, error)
}

// Password is the capability for sensitive passphrase material held in
// memory. Implementations support zeroing once the passphrase is no longer
// needed.
type Password interface {
	// Bytes returns the password as a byte slice
	Bytes() []byte

	// String returns the password as a string
	String() (string, error)

	// Clear zeros out the password from memory
	Clear()
}

// KeyPair is the result of asymmetric key generation for a user.
//
// PrivateKey is PEM-encoded PKCS#8 encrypted under the user's login
// passphrase. BackupKey holds the same private key material re-encrypted
// under the deployment escrow passphrase and base64-encoded, so the server
// can act on the key without the user present. Fingerprint is the keyed
// hash of PublicKey rendered as uppercase colon-separated hex pairs.
type KeyPair struct {
	PublicKey   string `json:"publicKey"`
	PrivateKey  string `json:"privateKey"`
	BackupKey   string `json:"backupKey"`
	Fingerprint string `json:"fingerprint"`
}
