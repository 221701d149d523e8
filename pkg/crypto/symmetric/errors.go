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

package symmetric

import "errors"

var (
	// ErrInvalidKeySize indicates the cipher key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.New("symmetric: key must be 32 bytes")

	// ErrInvalidIVSeed indicates the explicit IV seed is not 8 bytes.
	ErrInvalidIVSeed = errors.New("symmetric: iv seed must be 8 bytes")

	// ErrDecryptionFailed indicates the key is wrong or the token is corrupt.
	// Callers recover by re-authenticating or aborting; this is never fatal.
	ErrDecryptionFailed = errors.New("symmetric: decryption failed")
)
