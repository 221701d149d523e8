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

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/taskvault/go-taskvault/internal/config"
	"github.com/taskvault/go-taskvault/pkg/account"
	"github.com/taskvault/go-taskvault/pkg/crypto/symmetric"
	"github.com/taskvault/go-taskvault/pkg/digest"
	"github.com/taskvault/go-taskvault/pkg/escrow"
	"github.com/taskvault/go-taskvault/pkg/keyservice"
	"github.com/taskvault/go-taskvault/pkg/logging"
	"github.com/taskvault/go-taskvault/pkg/session"
	"github.com/taskvault/go-taskvault/pkg/storage"
	"github.com/taskvault/go-taskvault/pkg/storage/file"
	"github.com/taskvault/go-taskvault/pkg/tasks"
	"github.com/taskvault/go-taskvault/pkg/vault"
)

// Options holds the persistent command line flags.
type Options struct {
	ConfigFile   string
	DataDir      string
	User         string
	OutputFormat string
	Verbose      bool
}

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		OutputFormat: "text",
	}
}

// App wires the storage backend and services for one CLI invocation.
type App struct {
	Config   *config.Config
	Backend  storage.Backend
	Unlock   *escrow.Unlock
	Sessions *session.Cache
	Vaults   *vault.Store
	Grants   *vault.GrantStore
	Keys     *keyservice.Service
	Accounts *account.Service
	Tasks    *tasks.Store
	Logger   *logging.Logger
}

// newApp loads configuration and secrets and constructs the service
// graph. Callers must Close the app when done.
func newApp(opts *Options) (*App, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	if opts.DataDir != "" {
		cfg.Storage.Backend = "file"
		cfg.Storage.Path = opts.DataDir
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, err
	}

	unlock, err := escrow.NewUnlock(secrets.EscrowPassphrase)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, err
	}

	fieldCipher, err := symmetric.New(secrets.FieldEncryptionKey)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("field encryption key: %w", err)
	}

	logger := logging.NewLogger(strings.EqualFold(cfg.Logging.Level, "debug"))
	digestOps := digest.New(secrets.DigestKey)
	vaults := vault.NewStore(backend)
	grants := vault.NewGrantStore(backend)
	sessions := session.New(fieldCipher)
	keys := keyservice.New(vaults, grants, sessions, digestOps, logger)
	accounts := account.New(vaults, keys, sessions, digestOps, logger,
		account.WithKeyBits(cfg.Keys.KeyBits),
		account.WithSessionTTL(time.Duration(cfg.Keys.SessionTTLSeconds)*time.Second))

	return &App{
		Config:   cfg,
		Backend:  backend,
		Unlock:   unlock,
		Sessions: sessions,
		Vaults:   vaults,
		Grants:   grants,
		Keys:     keys,
		Accounts: accounts,
		Tasks:    tasks.NewStore(backend, keys),
		Logger:   logger,
	}, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	return a.Backend.Close()
}

func openBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "file":
		return file.New(expandHome(cfg.Path))
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
