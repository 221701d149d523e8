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

// Package session implements the transient passphrase cache that lets
// background code paths unwrap a user's private key within a session
// window without re-prompting. Entries are TTL-bound and stored encrypted
// under the server field-encryption cipher; a live entry is the sole gate
// for content-key decryption, so expiry is equivalent to forced logout
// even while an auth token technically remains valid.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/taskvault/go-taskvault/pkg/metrics"
	"github.com/taskvault/go-taskvault/pkg/types"
)

// DefaultTTL is the session window applied when Insert is called without
// an explicit TTL.
const DefaultTTL = 3600 * time.Second

// ErrSessionExpired is returned when no live entry exists for the user.
// Callers respond by forcing re-authentication.
var ErrSessionExpired = errors.New("session: passphrase expired or absent")

type entry struct {
	ciphertext string
	expiresAt  time.Time
}

// Cache is the in-memory TTL store of encrypted session passphrases,
// keyed by user id. Safe for concurrent use.
type Cache struct {
	cipher types.Cipher
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a cache whose values are encrypted with the given cipher
// before storage. The cipher is the fixed server field-encryption cipher,
// never a user content key.
func New(cipher types.Cipher) *Cache {
	return &Cache{
		cipher:  cipher,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Insert stores the user's passphrase for the session window. An optional
// TTL overrides DefaultTTL per insert (e.g. a short pre-authentication
// hold while a second factor completes). Re-inserting refreshes the window.
func (c *Cache) Insert(userID, passphrase string, ttl ...time.Duration) error {
	window := DefaultTTL
	if len(ttl) > 0 {
		window = ttl[0]
	}

	ciphertext, err := c.cipher.Encrypt(passphrase)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	if _, live := c.entries[userID]; !live {
		metrics.SessionEntries.Inc()
	}
	c.entries[userID] = entry{
		ciphertext: ciphertext,
		expiresAt:  c.now().Add(window),
	}
	return nil
}

// Retrieve returns the user's decrypted session passphrase, or
// ErrSessionExpired when no live entry exists. Expired entries are
// evicted on read.
func (c *Cache) Retrieve(userID string) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[userID]
	if ok && c.now().After(e.expiresAt) {
		delete(c.entries, userID)
		metrics.SessionEntries.Dec()
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return "", ErrSessionExpired
	}
	return c.cipher.Decrypt(e.ciphertext)
}

// Remove drops the user's entry. Called on logout; absent entries are a
// no-op.
func (c *Cache) Remove(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[userID]; ok {
		delete(c.entries, userID)
		metrics.SessionEntries.Dec()
	}
}

// sweepLocked drops expired entries opportunistically on writes, so a
// cache with no readers does not accumulate stale rows. Caller holds mu.
func (c *Cache) sweepLocked() {
	now := c.now()
	for userID, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, userID)
			metrics.SessionEntries.Dec()
		}
	}
}
