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

package keyservice

import "errors"

var (
	// ErrMissingGrant indicates the requester holds no content key grant
	// for the requested owner. The message deliberately says nothing about
	// whether the owner exists.
	ErrMissingGrant = errors.New("keyservice: not authorized for requested content")

	// ErrContentKeyExists indicates the owner already has a self-grant;
	// a second content key must never be established for the same owner.
	ErrContentKeyExists = errors.New("keyservice: content key already established")
)
