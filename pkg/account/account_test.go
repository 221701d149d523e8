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

package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/go-taskvault/pkg/crypto/symmetric"
	"github.com/taskvault/go-taskvault/pkg/digest"
	"github.com/taskvault/go-taskvault/pkg/escrow"
	"github.com/taskvault/go-taskvault/pkg/keyservice"
	"github.com/taskvault/go-taskvault/pkg/logging"
	"github.com/taskvault/go-taskvault/pkg/session"
	"github.com/taskvault/go-taskvault/pkg/storage"
	"github.com/taskvault/go-taskvault/pkg/vault"
)

type harness struct {
	accounts *Service
	keys     *keyservice.Service
	vaults   *vault.Store
	grants   *vault.GrantStore
	sessions *session.Cache
	unlock   *escrow.Unlock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := storage.NewMemory()
	t.Cleanup(func() { _ = backend.Close() })

	fieldCipher, err := symmetric.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	digestOps := digest.New([]byte("test digest key"))
	vaults := vault.NewStore(backend)
	grants := vault.NewGrantStore(backend)
	sessions := session.New(fieldCipher)
	logger := logging.NewLogger(false)

	keys := keyservice.New(vaults, grants, sessions, digestOps, logger)

	unlock, err := escrow.NewUnlock("deployment escrow passphrase")
	require.NoError(t, err)

	return &harness{
		accounts: New(vaults, keys, sessions, digestOps, logger, WithKeyBits(2048)),
		keys:     keys,
		vaults:   vaults,
		grants:   grants,
		sessions: sessions,
		unlock:   unlock,
	}
}

func TestSignupProvisionsEverything(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "alice", "alice password"))

	kv, err := h.vaults.Get("alice")
	require.NoError(t, err)
	assert.Contains(t, kv.PrivateKey, "ENCRYPTED PRIVATE KEY")
	assert.NotEmpty(t, kv.BackupKey)
	assert.NotEmpty(t, kv.Fingerprint)

	// Self-grant exists and resolves a content key immediately.
	_, err = h.grants.Get("alice", "alice")
	require.NoError(t, err)

	key, err := h.keys.RawContentKey(context.Background(), "alice", "alice")
	require.NoError(t, err)
	assert.Len(t, key, keyservice.ContentKeySize)
}

func TestLoginLazyCreatesVault(t *testing.T) {
	h := newHarness(t)

	// Legacy account: no vault yet.
	require.NoError(t, h.accounts.Login(context.Background(), h.unlock, "carol", "carol password"))

	_, err := h.vaults.Get("carol")
	require.NoError(t, err)

	_, err = h.keys.RawContentKey(context.Background(), "carol", "carol")
	require.NoError(t, err)
}

func TestLoginKeepsExistingVault(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "alice", "alice password"))
	kv, err := h.vaults.Get("alice")
	require.NoError(t, err)

	h.accounts.Logout("alice")
	require.NoError(t, h.accounts.Login(context.Background(), h.unlock, "alice", "alice password"))

	again, err := h.vaults.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, kv.Fingerprint, again.Fingerprint, "login must not regenerate an existing vault")
	assert.Equal(t, kv.PrivateKey, again.PrivateKey)
}

func TestLogoutForcesReauth(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "alice", "alice password"))
	h.accounts.Logout("alice")

	_, err := h.keys.RawContentKey(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestChangePasswordKeepsContentKey(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "alice", "alice password"))

	before, err := h.keys.RawContentKey(context.Background(), "alice", "alice")
	require.NoError(t, err)

	require.NoError(t, h.accounts.ChangePassword(context.Background(), h.unlock, "alice", "new password"))

	// Old password no longer unwraps: simulate fresh login with old secret.
	require.NoError(t, h.sessions.Insert("alice", "alice password"))
	_, err = h.keys.RawContentKey(context.Background(), "alice", "alice")
	assert.Error(t, err)

	// New password resolves the identical content key.
	require.NoError(t, h.sessions.Insert("alice", "new password"))
	after, err := h.keys.RawContentKey(context.Background(), "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestChangePasswordSurvivesSharing(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "alice", "alice password"))
	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "bob", "bob password"))

	_, err := h.keys.GrantContentKey(context.Background(), h.unlock, "alice", "bob")
	require.NoError(t, err)

	shared, err := h.keys.RawContentKey(context.Background(), "alice", "bob")
	require.NoError(t, err)

	// Alice rotates her login password; Bob's grant is untouched.
	require.NoError(t, h.accounts.ChangePassword(context.Background(), h.unlock, "alice", "rotated password"))

	stillShared, err := h.keys.RawContentKey(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, shared, stillShared,
		"grants must survive the owner's password change without re-sharing")
}

func TestChangePasswordUnknownUser(t *testing.T) {
	h := newHarness(t)

	err := h.accounts.ChangePassword(context.Background(), h.unlock, "ghost", "whatever")
	assert.ErrorIs(t, err, vault.ErrVaultNotFound)
}

func TestDeleteCascades(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "alice", "alice password"))
	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, "bob", "bob password"))

	_, err := h.keys.GrantContentKey(context.Background(), h.unlock, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, h.accounts.Delete("bob"))

	_, err = h.vaults.Get("bob")
	assert.ErrorIs(t, err, vault.ErrVaultNotFound)

	// Bob's grant on alice's content died with him; alice is unaffected.
	exists, err := h.grants.Exists("alice", "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = h.keys.RawContentKey(context.Background(), "alice", "alice")
	assert.NoError(t, err)
}
