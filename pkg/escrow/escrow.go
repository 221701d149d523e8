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

// Package escrow models access to the deployment-wide escrow passphrase as
// an explicit capability rather than a bare string. The passphrase can
// unwrap every user's backup key, so the capability is constructed exactly
// once in wiring code and handed only to the code paths that legitimately
// act on key material without the owner present (collaborator grants and
// password changes). Every reveal is audited.
package escrow

import (
	"errors"

	"github.com/taskvault/go-taskvault/pkg/metrics"
)

// ErrEmptyPassphrase indicates the escrow passphrase is not configured.
// Refusing an empty passphrase at construction keeps a misconfigured
// deployment from silently writing unrecoverable backup keys.
var ErrEmptyPassphrase = errors.New("escrow: passphrase cannot be empty")

// Unlock is the capability to use the escrow passphrase. Zero value is
// unusable; construct via NewUnlock.
type Unlock struct {
	passphrase string
}

// NewUnlock creates the escrow capability. Call once at startup with the
// configured escrow passphrase; rotating the passphrase invalidates every
// stored backup key and is a breaking migration.
func NewUnlock(passphrase string) (*Unlock, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &Unlock{passphrase: passphrase}, nil
}

// Open reveals the escrow passphrase for one named operation on behalf of
// one user, recording the use in the escrow audit counter. Callers log the
// operation and user id alongside; the passphrase itself is never logged.
func (u *Unlock) Open(operation, userID string) string {
	metrics.RecordEscrowUnlock(operation)
	return u.passphrase
}
