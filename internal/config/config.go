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

// Package config loads deployment configuration from YAML with
// environment variable overrides. Secrets (the escrow passphrase, the
// field encryption key, the digest key) are never read from the YAML
// file; they come from the environment only.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables holding deployment secrets.
const (
	EnvEscrowPassphrase   = "TASKVAULT_ESCROW_PASSPHRASE"
	EnvFieldEncryptionKey = "TASKVAULT_FIELD_ENCRYPTION_KEY"
	EnvDigestKey          = "TASKVAULT_DIGEST_KEY"
)

// Config represents the complete deployment configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
	Keys    KeysConfig    `yaml:"keys"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects the persistence backend for vaults, grants and tasks
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory, file
	Path    string `yaml:"path"`    // required for the file backend
}

// KeysConfig controls keypair generation and session behavior
type KeysConfig struct {
	KeyBits           int `yaml:"key_bits"`
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    int    `yaml:"port"`
}

// Secrets holds deployment secrets sourced from the environment.
// They are kept out of Config so a marshaled Config never carries them.
type Secrets struct {
	EscrowPassphrase   string
	FieldEncryptionKey []byte
	DigestKey          []byte
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "~/.taskvault",
		},
		Keys: KeysConfig{
			KeyBits:           4096,
			SessionTTLSeconds: 3600,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
			Port:    9090,
		},
	}
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv("TASKVAULT_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("TASKVAULT_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if backend := os.Getenv("TASKVAULT_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dataDir := os.Getenv("TASKVAULT_DATA_DIR"); dataDir != "" {
		cfg.Storage.Path = dataDir
	}
	if keyBits := os.Getenv("TASKVAULT_KEY_BITS"); keyBits != "" {
		bits, err := strconv.Atoi(keyBits)
		if err != nil {
			log.Printf("Warning: invalid TASKVAULT_KEY_BITS value %q, using default %d: %v",
				keyBits, cfg.Keys.KeyBits, err)
		} else {
			cfg.Keys.KeyBits = bits
		}
	}
	if ttl := os.Getenv("TASKVAULT_SESSION_TTL"); ttl != "" {
		seconds, err := strconv.Atoi(ttl)
		if err != nil {
			log.Printf("Warning: invalid TASKVAULT_SESSION_TTL value %q, using default %d: %v",
				ttl, cfg.Keys.SessionTTLSeconds, err)
		} else {
			cfg.Keys.SessionTTLSeconds = seconds
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	switch c.Storage.Backend {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory or file)", c.Storage.Backend)
	}

	if c.Keys.KeyBits < 2048 {
		return fmt.Errorf("key_bits must be at least 2048, got %d", c.Keys.KeyBits)
	}
	if c.Keys.SessionTTLSeconds < 1 {
		return fmt.Errorf("session_ttl_seconds must be positive, got %d", c.Keys.SessionTTLSeconds)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}

	return nil
}

// LoadSecrets reads deployment secrets from the environment. The escrow
// passphrase and both keys are mandatory; the field encryption key must
// be exactly 32 bytes (AES-256).
func LoadSecrets() (*Secrets, error) {
	escrow := os.Getenv(EnvEscrowPassphrase)
	if escrow == "" {
		return nil, fmt.Errorf("%s must be set", EnvEscrowPassphrase)
	}

	fieldKey := os.Getenv(EnvFieldEncryptionKey)
	if fieldKey == "" {
		return nil, fmt.Errorf("%s must be set", EnvFieldEncryptionKey)
	}
	if len(fieldKey) != 32 {
		return nil, fmt.Errorf("%s must be exactly 32 bytes, got %d", EnvFieldEncryptionKey, len(fieldKey))
	}

	digestKey := os.Getenv(EnvDigestKey)
	if digestKey == "" {
		return nil, fmt.Errorf("%s must be set", EnvDigestKey)
	}

	return &Secrets{
		EscrowPassphrase:   escrow,
		FieldEncryptionKey: []byte(fieldKey),
		DigestKey:          []byte(digestKey),
	}, nil
}
