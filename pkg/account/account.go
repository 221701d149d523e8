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

// Package account glues the key vault lifecycle to the identity service's
// events: signup creates a vault and self-grant, login lazily creates a
// missing vault (legacy accounts) and caches the session passphrase, and
// password change re-encrypts only the private key so every previously
// issued grant remains valid without re-sharing.
//
// The identity service itself (password verification, tokens, second
// factors) is an external collaborator. Callers invoke these operations
// only after the password has been verified.
package account

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/taskvault/go-taskvault/pkg/crypto/asymmetric"
	"github.com/taskvault/go-taskvault/pkg/digest"
	"github.com/taskvault/go-taskvault/pkg/encoding"
	"github.com/taskvault/go-taskvault/pkg/escrow"
	"github.com/taskvault/go-taskvault/pkg/keyservice"
	"github.com/taskvault/go-taskvault/pkg/logging"
	"github.com/taskvault/go-taskvault/pkg/metrics"
	"github.com/taskvault/go-taskvault/pkg/session"
	"github.com/taskvault/go-taskvault/pkg/vault"
)

// Service performs key vault lifecycle operations around account events.
type Service struct {
	vaults   *vault.Store
	keys     *keyservice.Service
	sessions *session.Cache
	digest   *digest.Ops
	logger     *logging.Logger
	keyBits    int
	sessionTTL time.Duration
}

// Option configures the account service.
type Option func(*Service)

// WithKeyBits overrides the RSA modulus size for generated vaults.
func WithKeyBits(bits int) Option {
	return func(s *Service) { s.keyBits = bits }
}

// WithSessionTTL overrides the lifetime of cached session passphrases.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// New creates the account service.
func New(vaults *vault.Store, keys *keyservice.Service, sessions *session.Cache, digestOps *digest.Ops, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		vaults:   vaults,
		keys:     keys,
		sessions: sessions,
		digest:   digestOps,
		logger:   logger,
		keyBits:  asymmetric.DefaultKeyBits,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup provisions key material for a new account: an RSA keypair
// encrypted under the login password, the vault row, the owner's
// self-grant with a fresh content key, and a session cache entry.
func (s *Service) Signup(ctx context.Context, unlock *escrow.Unlock, userID, password string) error {
	defer metrics.TimeOperation(metrics.OpSignup)()

	if err := s.ensureVault(ctx, unlock, userID, password); err != nil {
		metrics.RecordError(metrics.OpSignup, "vault_creation")
		return err
	}

	if err := s.cacheSession(userID, password); err != nil {
		return fmt.Errorf("account: cache session passphrase: %w", err)
	}

	metrics.RecordOperation(metrics.OpSignup, metrics.StatusSuccess)
	return nil
}

// Login refreshes the session passphrase cache after a verified login,
// creating the vault lazily for accounts that predate key management.
func (s *Service) Login(ctx context.Context, unlock *escrow.Unlock, userID, password string) error {
	defer metrics.TimeOperation(metrics.OpLogin)()

	exists, err := s.vaults.Exists(userID)
	if err != nil {
		return err
	}
	if !exists {
		s.logger.Info("key vault missing at login, creating", "userId", userID)
		if err := s.ensureVault(ctx, unlock, userID, password); err != nil {
			metrics.RecordError(metrics.OpLogin, "vault_creation")
			return err
		}
	}

	if err := s.cacheSession(userID, password); err != nil {
		return fmt.Errorf("account: cache session passphrase: %w", err)
	}

	metrics.RecordOperation(metrics.OpLogin, metrics.StatusSuccess)
	return nil
}

// ChangePassword re-encrypts the user's private key under the new login
// password. The plaintext key material is recovered from the backup key
// with the escrow capability, so the user's old password is not needed;
// the backup key itself is untouched and all issued grants stay valid.
func (s *Service) ChangePassword(ctx context.Context, unlock *escrow.Unlock, userID, newPassword string) error {
	defer metrics.TimeOperation(metrics.OpChangePassword)()

	kv, err := s.vaults.Get(userID)
	if err != nil {
		metrics.RecordError(metrics.OpChangePassword, "vault_not_found")
		return err
	}

	backupPEM, err := base64.StdEncoding.DecodeString(kv.BackupKey)
	if err != nil {
		return fmt.Errorf("account: decode backup key: %w", err)
	}

	s.logger.Audit("escrow unlock", "operation", metrics.OpChangePassword, "userId", userID)

	privateKey, err := encoding.DecodePrivateKeyPEM(backupPEM, []byte(unlock.Open(metrics.OpChangePassword, userID)))
	if err != nil {
		metrics.RecordError(metrics.OpChangePassword, "decryption_failed")
		return fmt.Errorf("account: unwrap backup key: %w", err)
	}

	newPrivatePEM, err := encoding.EncodePrivateKeyPEM(privateKey, []byte(newPassword))
	if err != nil {
		return fmt.Errorf("account: re-encrypt private key: %w", err)
	}

	if _, err := s.vaults.UpdatePrivateKey(userID, string(newPrivatePEM)); err != nil {
		return err
	}

	if err := s.cacheSession(userID, newPassword); err != nil {
		return fmt.Errorf("account: refresh session passphrase: %w", err)
	}

	s.logger.Info("private key re-encrypted", "userId", userID)
	metrics.RecordOperation(metrics.OpChangePassword, metrics.StatusSuccess)
	return nil
}

// cacheSession stores the verified passphrase for later private key
// decryption, honoring a configured TTL override.
func (s *Service) cacheSession(userID, password string) error {
	if s.sessionTTL > 0 {
		return s.sessions.Insert(userID, password, s.sessionTTL)
	}
	return s.sessions.Insert(userID, password)
}

// Logout drops the user's session passphrase. Content key decryption is
// impossible until the next verified login.
func (s *Service) Logout(userID string) {
	s.sessions.Remove(userID)
}

// Delete cascades account destruction through the key subsystem: the
// vault row, all grants in either role, and the session entry go with
// the account.
func (s *Service) Delete(userID string) error {
	return s.keys.PurgeUser(userID)
}

// ensureVault generates and persists a keypair plus self-grant for the
// user if absent. Losing the create race to a concurrent signup/login is
// treated as success: the winner's vault is the vault.
func (s *Service) ensureVault(ctx context.Context, unlock *escrow.Unlock, userID, password string) error {
	cipher := asymmetric.New(password, s.digest, asymmetric.WithKeyBits(s.keyBits))
	pair, err := cipher.GenerateKeyPair(ctx, unlock, userID)
	if err != nil {
		return err
	}

	if _, err := s.vaults.Create(userID, pair); err != nil {
		if errors.Is(err, vault.ErrVaultExists) {
			s.logger.Debug("key vault already exists, skipping", "userId", userID)
		} else {
			return err
		}
	} else {
		s.logger.Info("key vault created", "userId", userID)
	}

	if _, err := s.keys.EstablishContentKey(ctx, userID); err != nil {
		if errors.Is(err, keyservice.ErrContentKeyExists) {
			return nil
		}
		return err
	}
	return nil
}
