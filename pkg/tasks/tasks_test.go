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

package tasks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/go-taskvault/pkg/account"
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
	backend  storage.Backend
	accounts *account.Service
	keys     *keyservice.Service
	tasks    *Store
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
	accounts := account.New(vaults, keys, sessions, digestOps, logger, account.WithKeyBits(2048))

	unlock, err := escrow.NewUnlock("deployment escrow passphrase")
	require.NoError(t, err)

	return &harness{
		backend:  backend,
		accounts: accounts,
		keys:     keys,
		tasks:    NewStore(backend, keys),
		unlock:   unlock,
	}
}

func (h *harness) signup(t *testing.T, userID, password string) {
	t.Helper()
	require.NoError(t, h.accounts.Signup(context.Background(), h.unlock, userID, password))
}

// storedTask reads a record straight off the backend, bypassing the store.
func (h *harness) storedTask(t *testing.T, ownerID, taskID string) *Task {
	t.Helper()
	data, err := h.backend.Get("tasks/" + ownerID + "/" + taskID)
	require.NoError(t, err)
	var task Task
	require.NoError(t, json.Unmarshal(data, &task))
	return &task
}

func TestCreateStoresCiphertext(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")

	task, err := h.tasks.Create(ctx, "alice", "Buy milk", "Two liters, whole", "open")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "alice", task.OwnerID)

	stored := h.storedTask(t, "alice", task.ID)
	assert.NotEqual(t, "Buy milk", stored.Title)
	assert.NotEqual(t, "Two liters, whole", stored.Description)
	assert.NotContains(t, stored.Title, "Buy milk")
	assert.Equal(t, "open", stored.Status)
}

func TestOwnerRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")

	created, err := h.tasks.Create(ctx, "alice", "Buy milk", "Two liters, whole", "open")
	require.NoError(t, err)

	got, err := h.tasks.Get(ctx, "alice", "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "Two liters, whole", got.Description)
}

func TestListDecryptsAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")

	_, err := h.tasks.Create(ctx, "alice", "Buy milk", "", "open")
	require.NoError(t, err)
	_, err = h.tasks.Create(ctx, "alice", "Walk dog", "Around the block", "open")
	require.NoError(t, err)

	list, err := h.tasks.List(ctx, "alice", "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)

	titles := []string{list[0].Title, list[1].Title}
	assert.ElementsMatch(t, []string{"Buy milk", "Walk dog"}, titles)
}

func TestUpdateReplacesCiphertext(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")

	created, err := h.tasks.Create(ctx, "alice", "Buy milk", "Two liters", "open")
	require.NoError(t, err)
	before := h.storedTask(t, "alice", created.ID)

	updated, err := h.tasks.Update(ctx, "alice", "alice", created.ID, "Buy oat milk", "One carton", "done")
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.Equal(t, "done", updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

	after := h.storedTask(t, "alice", created.ID)
	assert.NotEqual(t, before.Title, after.Title)

	got, err := h.tasks.Get(ctx, "alice", "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", got.Title)
	assert.Equal(t, "One carton", got.Description)
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")

	created, err := h.tasks.Create(ctx, "alice", "Buy milk", "", "open")
	require.NoError(t, err)

	require.NoError(t, h.tasks.Delete("alice", created.ID))

	_, err = h.tasks.Get(ctx, "alice", "alice", created.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, h.tasks.Delete("alice", created.ID), ErrTaskNotFound)
}

func TestGranteeReadsSharedTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")
	h.signup(t, "bob", "bob password")

	created, err := h.tasks.Create(ctx, "alice", "Buy milk", "Two liters, whole", "open")
	require.NoError(t, err)

	// Without a grant bob sees nothing.
	_, err = h.tasks.Get(ctx, "bob", "alice", created.ID)
	assert.ErrorIs(t, err, keyservice.ErrMissingGrant)

	_, err = h.keys.GrantContentKey(ctx, h.unlock, "alice", "bob")
	require.NoError(t, err)

	got, err := h.tasks.Get(ctx, "bob", "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "Two liters, whole", got.Description)

	list, err := h.tasks.List(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Buy milk", list[0].Title)
}

func TestGranteeUpdatesSharedTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")
	h.signup(t, "bob", "bob password")

	created, err := h.tasks.Create(ctx, "alice", "Buy milk", "Two liters", "open")
	require.NoError(t, err)

	_, err = h.keys.GrantContentKey(ctx, h.unlock, "alice", "bob")
	require.NoError(t, err)

	_, err = h.tasks.Update(ctx, "bob", "alice", created.ID, "Buy milk", "Got it already", "done")
	require.NoError(t, err)

	got, err := h.tasks.Get(ctx, "alice", "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Got it already", got.Description)
	assert.Equal(t, "done", got.Status)
}

// TestSharingSurvivesPasswordChange walks the full collaboration flow:
// alice creates a task, shares with bob, rotates her password, and bob
// keeps reading the same plaintext because the content key never changed.
func TestSharingSurvivesPasswordChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", "alice password")
	h.signup(t, "bob", "bob password")

	created, err := h.tasks.Create(ctx, "alice", "Buy milk", "Two liters, whole", "open")
	require.NoError(t, err)

	stored := h.storedTask(t, "alice", created.ID)
	assert.NotEqual(t, "Buy milk", stored.Title)

	_, err = h.keys.GrantContentKey(ctx, h.unlock, "alice", "bob")
	require.NoError(t, err)

	got, err := h.tasks.Get(ctx, "bob", "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)

	require.NoError(t, h.accounts.ChangePassword(ctx, h.unlock, "alice", "new alice password"))

	// Stored ciphertext is untouched by the rotation.
	after := h.storedTask(t, "alice", created.ID)
	assert.Equal(t, stored.Title, after.Title)

	got, err = h.tasks.Get(ctx, "alice", "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)

	got, err = h.tasks.Get(ctx, "bob", "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "Two liters, whole", got.Description)
}
