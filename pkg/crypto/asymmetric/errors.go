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

package asymmetric

import "errors"

var (
	// ErrFingerprintMismatch indicates the caller-supplied fingerprint does
	// not match the one computed for the target public key. Treated as a
	// key substitution attempt: the whole operation is rejected with no
	// partial encryption.
	ErrFingerprintMismatch = errors.New("asymmetric: unable to verify public key with provided fingerprint")

	// ErrDecryptionFailed indicates a wrong passphrase, a mismatched private
	// key, or malformed ciphertext. Recoverable by re-authenticating.
	ErrDecryptionFailed = errors.New("asymmetric: decryption failed")

	// ErrKeyGeneration indicates the underlying RSA key generation failed.
	// Fatal for the request only; retryable.
	ErrKeyGeneration = errors.New("asymmetric: key generation failed")

	// ErrInvalidKeyBits indicates a key size below the supported minimum.
	ErrInvalidKeyBits = errors.New("asymmetric: key size below 2048 bits")
)
