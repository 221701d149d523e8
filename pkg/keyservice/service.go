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

// Package keyservice orchestrates content key resolution and sharing.
//
// Two unlock paths exist and never mix: the online path uses the
// requester's session passphrase to unwrap their private key and read a
// grant; the escrow path uses the deployment escrow capability to unwrap
// an owner's backup key so a new collaborator grant can be produced while
// the owner is offline. Every grant for an owner wraps the same plaintext
// content key, so any valid grantee resolves identical key material.
package keyservice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/taskvault/go-taskvault/pkg/crypto/asymmetric"
	"github.com/taskvault/go-taskvault/pkg/digest"
	"github.com/taskvault/go-taskvault/pkg/escrow"
	"github.com/taskvault/go-taskvault/pkg/logging"
	"github.com/taskvault/go-taskvault/pkg/metrics"
	"github.com/taskvault/go-taskvault/pkg/session"
	"github.com/taskvault/go-taskvault/pkg/vault"
)

// ContentKeySize is the length of the random content key string wrapped
// into every grant. 32 characters feed the 32-byte symmetric field cipher
// directly.
const ContentKeySize = 32

// Service resolves, establishes, and shares per-owner content keys.
type Service struct {
	vaults   *vault.Store
	grants   *vault.GrantStore
	sessions *session.Cache
	digest   *digest.Ops
	logger   *logging.Logger
}

// New creates the key service.
func New(vaults *vault.Store, grants *vault.GrantStore, sessions *session.Cache, digestOps *digest.Ops, logger *logging.Logger) *Service {
	return &Service{
		vaults:   vaults,
		grants:   grants,
		sessions: sessions,
		digest:   digestOps,
		logger:   logger,
	}
}

// RawContentKey resolves the plaintext content key for content owned by
// ownerID on behalf of requesterID. The requester needs a live session
// passphrase (to unwrap their private key) and a grant row for the owner.
// Returns the same plaintext for every valid grantee of a given owner.
func (s *Service) RawContentKey(ctx context.Context, ownerID, requesterID string) (string, error) {
	defer metrics.TimeOperation(metrics.OpRawContentKey)()

	passphrase, err := s.sessions.Retrieve(requesterID)
	if err != nil {
		metrics.RecordError(metrics.OpRawContentKey, "session_expired")
		return "", err
	}

	kv, err := s.vaults.Get(requesterID)
	if err != nil {
		metrics.RecordError(metrics.OpRawContentKey, "vault_not_found")
		return "", err
	}

	grant, err := s.grants.Get(ownerID, requesterID)
	if err != nil {
		if errors.Is(err, vault.ErrGrantNotFound) {
			s.logger.Warn("content key requested without grant",
				"operation", metrics.OpRawContentKey, "requesterId", requesterID)
			metrics.RecordError(metrics.OpRawContentKey, "missing_grant")
			return "", ErrMissingGrant
		}
		return "", err
	}

	cipher := asymmetric.New(passphrase, s.digest)
	rawKey, err := cipher.Decrypt(asymmetric.DecryptRequest{
		PrivateKey: kv.PrivateKey,
		Encrypted:  grant.WrappedKey,
	})
	if err != nil {
		s.logger.Errorf("content key unwrap failed for user %s: %v", requesterID, err)
		metrics.RecordError(metrics.OpRawContentKey, "decryption_failed")
		return "", err
	}

	metrics.RecordOperation(metrics.OpRawContentKey, metrics.StatusSuccess)
	return rawKey, nil
}

// EstablishContentKey creates the owner's self-grant with a fresh random
// content key wrapped to their own public key. Called once at signup,
// before the owner can create any encrypted record; a second call for the
// same owner returns ErrContentKeyExists.
func (s *Service) EstablishContentKey(ctx context.Context, ownerID string) (*vault.ContentKeyGrant, error) {
	exists, err := s.grants.Exists(ownerID, ownerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrContentKeyExists
	}

	kv, err := s.vaults.Get(ownerID)
	if err != nil {
		return nil, err
	}

	rawKey, err := newContentKey()
	if err != nil {
		return nil, err
	}

	// The wrapping cipher needs no passphrase: encryption uses only the
	// owner's public key.
	cipher := asymmetric.New("", s.digest)
	wrapped, err := cipher.Encrypt(asymmetric.EncryptRequest{
		PublicKey:   kv.PublicKey,
		Data:        rawKey,
		Fingerprint: kv.Fingerprint,
	})
	if err != nil {
		return nil, err
	}

	grant, err := s.grants.Create(ownerID, ownerID, wrapped)
	if err != nil {
		return nil, err
	}

	s.logger.Info("content key established", "ownerId", ownerID)
	return grant, nil
}

// GrantContentKey shares ownerID's content key with granteeID. The owner
// need not be online: their backup key is unwrapped with the escrow
// capability, the self-grant's content key recovered, and the same
// plaintext re-wrapped to the grantee's fingerprint-verified public key.
// Idempotent: an existing grant for the pair is returned unchanged without
// touching the escrow secret.
func (s *Service) GrantContentKey(ctx context.Context, unlock *escrow.Unlock, ownerID, granteeID string) (*vault.ContentKeyGrant, error) {
	defer metrics.TimeOperation(metrics.OpGrantContentKey)()

	if existing, err := s.grants.Get(ownerID, granteeID); err == nil {
		return existing, nil
	} else if !errors.Is(err, vault.ErrGrantNotFound) {
		return nil, err
	}

	ownerVault, err := s.vaults.Get(ownerID)
	if err != nil {
		metrics.RecordError(metrics.OpGrantContentKey, "vault_not_found")
		return nil, err
	}
	granteeVault, err := s.vaults.Get(granteeID)
	if err != nil {
		metrics.RecordError(metrics.OpGrantContentKey, "vault_not_found")
		return nil, err
	}

	selfGrant, err := s.grants.Get(ownerID, ownerID)
	if err != nil {
		if errors.Is(err, vault.ErrGrantNotFound) {
			metrics.RecordError(metrics.OpGrantContentKey, "missing_grant")
			return nil, ErrMissingGrant
		}
		return nil, err
	}

	s.logger.Audit("escrow unlock", "operation", metrics.OpGrantContentKey,
		"ownerId", ownerID, "granteeId", granteeID)

	escrowCipher := asymmetric.New(unlock.Open(metrics.OpGrantContentKey, ownerID), s.digest)
	rawKey, err := escrowCipher.Decrypt(asymmetric.DecryptRequest{
		PrivateKey: ownerVault.BackupKey,
		Encrypted:  selfGrant.WrappedKey,
	})
	if err != nil {
		s.logger.Errorf("backup key unwrap failed for owner %s: %v", ownerID, err)
		metrics.RecordError(metrics.OpGrantContentKey, "decryption_failed")
		return nil, err
	}

	wrapped, err := escrowCipher.Encrypt(asymmetric.EncryptRequest{
		PublicKey:   granteeVault.PublicKey,
		Data:        rawKey,
		Fingerprint: granteeVault.Fingerprint,
	})
	if err != nil {
		metrics.RecordError(metrics.OpGrantContentKey, "fingerprint_mismatch")
		return nil, err
	}

	grant, err := s.grants.Create(ownerID, granteeID, wrapped)
	if err != nil {
		return nil, err
	}

	s.logger.Info("content key granted", "ownerId", ownerID, "granteeId", granteeID)
	metrics.RecordOperation(metrics.OpGrantContentKey, metrics.StatusSuccess)
	return grant, nil
}

// PurgeUser removes every key artifact tied to a user: session entry,
// grants issued and received, and the vault row. Called when the
// account itself is destroyed; grants from other owners to this user
// die with them, so shared content goes dark immediately.
func (s *Service) PurgeUser(userID string) error {
	s.sessions.Remove(userID)

	if err := s.grants.DeleteForUser(userID); err != nil {
		return err
	}
	if err := s.vaults.Delete(userID); err != nil && !errors.Is(err, vault.ErrVaultNotFound) {
		return err
	}

	s.logger.Info("key material purged", "userId", userID)
	return nil
}

// newContentKey draws a fresh random content key: 32 hex characters, the
// exact length the symmetric field cipher requires.
func newContentKey() (string, error) {
	raw := make([]byte, ContentKeySize/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("keyservice: generate content key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
