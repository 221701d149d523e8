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

// Package vault persists per-user key vaults and content key grants.
//
// A KeyVault row holds a user's public key, their private key encrypted
// under the login passphrase, and the same private key re-encrypted under
// the deployment escrow passphrase (the backup key). A ContentKeyGrant row
// authorizes one user to decrypt another user's content key; every owner
// holds a self-grant, so the grant table is the single source of truth for
// "who can read owner X's content", the owner included.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskvault/go-taskvault/pkg/storage"
	"github.com/taskvault/go-taskvault/pkg/types"
)

const vaultPrefix = "vaults/"

// KeyVault is the per-user keypair record. PrivateKey is encrypted PKCS#8
// PEM under the login passphrase; BackupKey is the same key material
// encrypted under the escrow passphrase and base64-encoded; Fingerprint is
// always the keyed hash of PublicKey.
type KeyVault struct {
	UserID      string    `json:"userId"`
	PublicKey   string    `json:"publicKey"`
	PrivateKey  string    `json:"privateKey"`
	BackupKey   string    `json:"backupKey"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists KeyVault rows, one per user.
type Store struct {
	backend storage.Backend
}

// NewStore creates a vault store over the given storage backend.
func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// Create persists a new key vault for keys.UserID implied by userID.
// The insert is guarded by the backend's uniqueness semantics: a second
// concurrent create for the same user returns ErrVaultExists and leaves
// the first row untouched.
func (s *Store) Create(userID string, keys types.KeyPair) (*KeyVault, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	now := time.Now().UTC()
	kv := &KeyVault{
		UserID:      userID,
		PublicKey:   keys.PublicKey,
		PrivateKey:  keys.PrivateKey,
		BackupKey:   keys.BackupKey,
		Fingerprint: keys.Fingerprint,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(kv)
	if err != nil {
		return nil, fmt.Errorf("vault: marshal key vault: %w", err)
	}

	if err := s.backend.PutIfAbsent(vaultPrefix+userID, data, nil); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrVaultExists
		}
		return nil, fmt.Errorf("vault: store key vault: %w", err)
	}
	return kv, nil
}

// Get loads the key vault for the given user.
func (s *Store) Get(userID string) (*KeyVault, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	data, err := s.backend.Get(vaultPrefix + userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("vault: load key vault: %w", err)
	}

	var kv KeyVault
	if err := json.Unmarshal(data, &kv); err != nil {
		return nil, fmt.Errorf("vault: unmarshal key vault: %w", err)
	}
	return &kv, nil
}

// Exists reports whether a key vault exists for the given user.
func (s *Store) Exists(userID string) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUserID
	}
	exists, err := s.backend.Exists(vaultPrefix + userID)
	if err != nil {
		return false, fmt.Errorf("vault: check key vault: %w", err)
	}
	return exists, nil
}

// UpdatePrivateKey replaces only the login-passphrase-encrypted private
// key, leaving the backup key untouched. Used on password change: every
// previously issued grant stays valid because the backup key and all
// wrapped content keys are unaffected.
func (s *Store) UpdatePrivateKey(userID, privateKey string) (*KeyVault, error) {
	kv, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	kv.PrivateKey = privateKey
	kv.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(kv)
	if err != nil {
		return nil, fmt.Errorf("vault: marshal key vault: %w", err)
	}
	if err := s.backend.Put(vaultPrefix+userID, data, nil); err != nil {
		return nil, fmt.Errorf("vault: store key vault: %w", err)
	}
	return kv, nil
}

// Delete removes the user's key vault. Called only from account deletion,
// which also cascades the user's grants.
func (s *Store) Delete(userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	if err := s.backend.Delete(vaultPrefix + userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrVaultNotFound
		}
		return fmt.Errorf("vault: delete key vault: %w", err)
	}
	return nil
}
