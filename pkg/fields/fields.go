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

// Package fields implements the generic field encryption pipeline: mapping
// a record's string attributes through a cipher before writes and after
// reads. The record-storage layer uses it as a pass-through codec and never
// sees cipher internals.
package fields

import (
	"fmt"

	"github.com/taskvault/go-taskvault/pkg/types"
)

// EncryptFields returns a copy of record with every field encrypted.
// There is no selective list on the encrypt side: callers assemble the
// payload they intend to store and all of it is treated as sensitive.
func EncryptFields(record map[string]string, cipher types.Cipher) (map[string]string, error) {
	encrypted := make(map[string]string, len(record))
	for name, value := range record {
		ciphertext, err := cipher.Encrypt(value)
		if err != nil {
			return nil, fmt.Errorf("fields: encrypt %q: %w", name, err)
		}
		encrypted[name] = ciphertext
	}
	return encrypted, nil
}

// DecryptFields returns a copy of record with only the listed fields
// decrypted; unlisted, absent, or empty fields pass through unchanged.
//
// The asymmetry with EncryptFields is deliberate and matches the stored
// data: writers encrypt whole payloads, readers expose only the subset
// they mean to return.
func DecryptFields(record map[string]string, cipher types.Cipher, fieldNames []string) (map[string]string, error) {
	decrypted := make(map[string]string, len(record))
	for name, value := range record {
		decrypted[name] = value
	}

	for _, name := range fieldNames {
		value, ok := decrypted[name]
		if !ok || value == "" {
			continue
		}
		plaintext, err := cipher.Decrypt(value)
		if err != nil {
			return nil, fmt.Errorf("fields: decrypt %q: %w", name, err)
		}
		decrypted[name] = plaintext
	}
	return decrypted, nil
}
