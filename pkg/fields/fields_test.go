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

package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/go-taskvault/pkg/crypto/symmetric"
)

func testCipher(t *testing.T) *symmetric.Cipher {
	t.Helper()
	c, err := symmetric.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return c
}

func TestEncryptFieldsEncryptsEverything(t *testing.T) {
	c := testCipher(t)
	record := map[string]string{"title": "Buy milk", "description": "2%"}

	encrypted, err := EncryptFields(record, c)
	require.NoError(t, err)

	assert.Len(t, encrypted, 2)
	assert.NotEqual(t, "Buy milk", encrypted["title"])
	assert.NotEqual(t, "2%", encrypted["description"])

	// Input record untouched.
	assert.Equal(t, "Buy milk", record["title"])
}

func TestDecryptFieldsSelective(t *testing.T) {
	c := testCipher(t)

	encrypted, err := EncryptFields(map[string]string{"a": "x", "b": "y"}, c)
	require.NoError(t, err)

	decrypted, err := DecryptFields(encrypted, c, []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, "x", decrypted["a"])
	assert.Equal(t, encrypted["b"], decrypted["b"], "unlisted field stays ciphertext")
}

func TestDecryptFieldsSkipsAbsentAndEmpty(t *testing.T) {
	c := testCipher(t)

	record := map[string]string{"present": "", "other": "plain"}
	decrypted, err := DecryptFields(record, c, []string{"present", "missing"})
	require.NoError(t, err)

	assert.Equal(t, "", decrypted["present"])
	assert.Equal(t, "plain", decrypted["other"])
}

func TestDecryptFieldsRoundTrip(t *testing.T) {
	c := testCipher(t)
	record := map[string]string{"title": "Buy milk", "description": "2%", "status": "open"}

	encrypted, err := EncryptFields(record, c)
	require.NoError(t, err)

	decrypted, err := DecryptFields(encrypted, c, []string{"title", "description", "status"})
	require.NoError(t, err)
	assert.Equal(t, record, decrypted)
}

func TestDecryptFieldsBadCiphertext(t *testing.T) {
	c := testCipher(t)

	_, err := DecryptFields(map[string]string{"a": "not a token"}, c, []string{"a"})
	assert.ErrorIs(t, err, symmetric.ErrDecryptionFailed)
}
