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

package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPutDelete(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	_, err := backend.Get("vaults/alice")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.Put("vaults/alice", []byte("vault"), nil))

	value, err := backend.Get("vaults/alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("vault"), value)

	require.NoError(t, backend.Delete("vaults/alice"))
	assert.ErrorIs(t, backend.Delete("vaults/alice"), ErrNotFound)
}

func TestMemoryPutIfAbsent(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	require.NoError(t, backend.PutIfAbsent("vaults/alice", []byte("first"), nil))
	err := backend.PutIfAbsent("vaults/alice", []byte("second"), nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	value, err := backend.Get("vaults/alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), value, "losing writer must not overwrite")
}

func TestMemoryPutIfAbsentConcurrent(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = backend.PutIfAbsent("vaults/alice", []byte(fmt.Sprintf("writer-%d", i)), nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyExists)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent first-writer wins")
}

func TestMemoryListPrefix(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	require.NoError(t, backend.Put("grants/alice/alice", []byte("a"), nil))
	require.NoError(t, backend.Put("grants/alice/bob", []byte("b"), nil))
	require.NoError(t, backend.Put("grants/carol/carol", []byte("c"), nil))

	keys, err := backend.List("grants/alice/")
	require.NoError(t, err)
	assert.Equal(t, []string{"grants/alice/alice", "grants/alice/bob"}, keys)

	all, err := backend.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryExists(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	exists, err := backend.Exists("vaults/alice")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, backend.Put("vaults/alice", []byte("vault"), nil))

	exists, err = backend.Exists("vaults/alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryClosed(t *testing.T) {
	backend := NewMemory()
	require.NoError(t, backend.Close())

	_, err := backend.Get("any")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, backend.Put("any", nil, nil), ErrClosed)
	assert.ErrorIs(t, backend.PutIfAbsent("any", nil, nil), ErrClosed)

	// Double close is a no-op.
	assert.NoError(t, backend.Close())
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	require.NoError(t, backend.Put("key", []byte("value"), nil))

	value, err := backend.Get("key")
	require.NoError(t, err)
	value[0] = 'X'

	again, err := backend.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}
