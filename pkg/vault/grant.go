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

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskvault/go-taskvault/pkg/storage"
)

const grantPrefix = "grants/"

// ContentKeyGrant authorizes GranteeID to decrypt OwnerID's content key.
// WrappedKey is the owner's content key RSA-OAEP-encrypted to the
// grantee's public key. Grants are never mutated: created at signup
// (self-grant) or invite acceptance, destroyed only when either account is.
type ContentKeyGrant struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	GranteeID  string    `json:"granteeId"`
	WrappedKey string    `json:"wrappedKey"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GrantStore persists ContentKeyGrant rows keyed by (owner, grantee).
type GrantStore struct {
	backend storage.Backend
}

// NewGrantStore creates a grant store over the given storage backend.
func NewGrantStore(backend storage.Backend) *GrantStore {
	return &GrantStore{backend: backend}
}

// Create persists a grant for the (ownerID, granteeID) pair. Idempotent:
// if a grant already exists for the pair, the existing row is returned and
// the new wrapped key is discarded; all grants for an owner wrap the same
// plaintext, so the first row is as good as any.
func (s *GrantStore) Create(ownerID, granteeID, wrappedKey string) (*ContentKeyGrant, error) {
	if ownerID == "" || granteeID == "" {
		return nil, ErrInvalidUserID
	}

	grant := &ContentKeyGrant{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		GranteeID:  granteeID,
		WrappedKey: wrappedKey,
		CreatedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(grant)
	if err != nil {
		return nil, fmt.Errorf("vault: marshal grant: %w", err)
	}

	if err := s.backend.PutIfAbsent(grantKey(ownerID, granteeID), data, nil); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return s.Get(ownerID, granteeID)
		}
		return nil, fmt.Errorf("vault: store grant: %w", err)
	}
	return grant, nil
}

// Get loads the grant authorizing granteeID to read ownerID's content.
func (s *GrantStore) Get(ownerID, granteeID string) (*ContentKeyGrant, error) {
	if ownerID == "" || granteeID == "" {
		return nil, ErrInvalidUserID
	}

	data, err := s.backend.Get(grantKey(ownerID, granteeID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("vault: load grant: %w", err)
	}

	var grant ContentKeyGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		return nil, fmt.Errorf("vault: unmarshal grant: %w", err)
	}
	return &grant, nil
}

// Exists reports whether a grant exists for the pair.
func (s *GrantStore) Exists(ownerID, granteeID string) (bool, error) {
	if ownerID == "" || granteeID == "" {
		return false, ErrInvalidUserID
	}
	exists, err := s.backend.Exists(grantKey(ownerID, granteeID))
	if err != nil {
		return false, fmt.Errorf("vault: check grant: %w", err)
	}
	return exists, nil
}

// ListForOwner returns all grants on ownerID's content, the self-grant
// included.
func (s *GrantStore) ListForOwner(ownerID string) ([]*ContentKeyGrant, error) {
	if ownerID == "" {
		return nil, ErrInvalidUserID
	}

	keys, err := s.backend.List(grantPrefix + ownerID + "/")
	if err != nil {
		return nil, fmt.Errorf("vault: list grants: %w", err)
	}

	grants := make([]*ContentKeyGrant, 0, len(keys))
	for _, key := range keys {
		data, err := s.backend.Get(key)
		if err != nil {
			return nil, fmt.Errorf("vault: load grant %q: %w", key, err)
		}
		var grant ContentKeyGrant
		if err := json.Unmarshal(data, &grant); err != nil {
			return nil, fmt.Errorf("vault: unmarshal grant %q: %w", key, err)
		}
		grants = append(grants, &grant)
	}
	return grants, nil
}

// DeleteForUser removes every grant where the user is owner or grantee.
// Called from account deletion (cascade).
func (s *GrantStore) DeleteForUser(userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}

	keys, err := s.backend.List(grantPrefix)
	if err != nil {
		return fmt.Errorf("vault: list grants: %w", err)
	}

	for _, key := range keys {
		rest := strings.TrimPrefix(key, grantPrefix)
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			continue
		}
		if parts[0] != userID && parts[1] != userID {
			continue
		}
		if err := s.backend.Delete(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("vault: delete grant %q: %w", key, err)
		}
	}
	return nil
}

func grantKey(ownerID, granteeID string) string {
	return grantPrefix + ownerID + "/" + granteeID
}
