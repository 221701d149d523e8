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

package vault

import "errors"

var (
	// ErrVaultExists indicates a key vault already exists for the user.
	// Callers racing on first login treat this as "already created, skip".
	ErrVaultExists = errors.New("vault: key vault already exists")

	// ErrVaultNotFound indicates no key vault exists for the user.
	ErrVaultNotFound = errors.New("vault: key vault not found")

	// ErrGrantNotFound indicates no content key grant exists for the
	// owner/grantee pair. The message carries no owner detail so callers
	// cannot use it to probe for account existence.
	ErrGrantNotFound = errors.New("vault: content key grant not found")

	// ErrInvalidUserID indicates an empty or malformed user id.
	ErrInvalidUserID = errors.New("vault: invalid user id")
)
