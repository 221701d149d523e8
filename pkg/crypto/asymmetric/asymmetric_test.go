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

package asymmetric

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/go-taskvault/pkg/digest"
	"github.com/taskvault/go-taskvault/pkg/escrow"
	"github.com/taskvault/go-taskvault/pkg/types"
)

const (
	testPassphrase = "login passphrase"
	testEscrow     = "escrow passphrase"
)

func testDigest() *digest.Ops {
	return digest.New([]byte("test digest key"))
}

func testUnlock(t *testing.T) *escrow.Unlock {
	t.Helper()
	unlock, err := escrow.NewUnlock(testEscrow)
	require.NoError(t, err)
	return unlock
}

func generateTestPair(t *testing.T, passphrase string) (types.KeyPair, *Cipher) {
	t.Helper()
	c := New(passphrase, testDigest(), WithKeyBits(2048))
	pair, err := c.GenerateKeyPair(context.Background(), testUnlock(t), "user-1")
	require.NoError(t, err)
	return pair, c
}

func TestGenerateKeyPairShape(t *testing.T) {
	pair, _ := generateTestPair(t, testPassphrase)

	assert.True(t, strings.HasPrefix(pair.PublicKey, "-----BEGIN PUBLIC KEY-----"))
	assert.Contains(t, pair.PrivateKey, "ENCRYPTED PRIVATE KEY")
	assert.NotEmpty(t, pair.BackupKey)
	assert.NotContains(t, pair.BackupKey, "-----", "backup key is base64 of the PEM")

	parts := strings.Split(pair.Fingerprint, ":")
	assert.Len(t, parts, 32)
	assert.Equal(t, testDigest().Fingerprint(pair.PublicKey), pair.Fingerprint)
}

func TestGenerateKeyPairRejectsSmallKeys(t *testing.T) {
	c := New(testPassphrase, testDigest(), WithKeyBits(1024))
	_, err := c.GenerateKeyPair(context.Background(), testUnlock(t), "user-1")
	assert.ErrorIs(t, err, ErrInvalidKeyBits)
}

func TestGenerateKeyPairCancelled(t *testing.T) {
	c := New(testPassphrase, testDigest(), WithKeyBits(2048))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GenerateKeyPair(ctx, testUnlock(t), "user-1")
	assert.ErrorIs(t, err, ErrKeyGeneration)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	pair, c := generateTestPair(t, testPassphrase)

	encrypted, err := c.Encrypt(EncryptRequest{
		PublicKey:   pair.PublicKey,
		Data:        "raw content key material",
		Fingerprint: pair.Fingerprint,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "raw content key material", encrypted)

	decrypted, err := c.Decrypt(DecryptRequest{
		PrivateKey: pair.PrivateKey,
		Encrypted:  encrypted,
	})
	require.NoError(t, err)
	assert.Equal(t, "raw content key material", decrypted)
}

func TestEncryptFingerprintGate(t *testing.T) {
	pair, c := generateTestPair(t, testPassphrase)
	otherPair, _ := generateTestPair(t, testPassphrase)

	// A fabricated fingerprint fails.
	_, err := c.Encrypt(EncryptRequest{
		PublicKey:   pair.PublicKey,
		Data:        "data",
		Fingerprint: "AA:BB:CC",
	})
	assert.ErrorIs(t, err, ErrFingerprintMismatch)

	// So does a valid fingerprint belonging to a different key.
	_, err = c.Encrypt(EncryptRequest{
		PublicKey:   pair.PublicKey,
		Data:        "data",
		Fingerprint: otherPair.Fingerprint,
	})
	assert.ErrorIs(t, err, ErrFingerprintMismatch)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	pair, c := generateTestPair(t, testPassphrase)

	encrypted, err := c.Encrypt(EncryptRequest{
		PublicKey:   pair.PublicKey,
		Data:        "data",
		Fingerprint: pair.Fingerprint,
	})
	require.NoError(t, err)

	wrong := New("some other passphrase", testDigest(), WithKeyBits(2048))
	_, err = wrong.Decrypt(DecryptRequest{PrivateKey: pair.PrivateKey, Encrypted: encrypted})
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptWrongPrivateKey(t *testing.T) {
	pair, c := generateTestPair(t, testPassphrase)
	otherPair, _ := generateTestPair(t, testPassphrase)

	encrypted, err := c.Encrypt(EncryptRequest{
		PublicKey:   pair.PublicKey,
		Data:        "data",
		Fingerprint: pair.Fingerprint,
	})
	require.NoError(t, err)

	_, err = c.Decrypt(DecryptRequest{PrivateKey: otherPair.PrivateKey, Encrypted: encrypted})
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptMalformedCiphertext(t *testing.T) {
	pair, c := generateTestPair(t, testPassphrase)

	_, err := c.Decrypt(DecryptRequest{PrivateKey: pair.PrivateKey, Encrypted: "AAAA"})
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

// The backup key must decrypt under the escrow passphrase and recover the
// same key material as the login-passphrase private key.
func TestBackupKeyUnderEscrowPassphrase(t *testing.T) {
	pair, c := generateTestPair(t, testPassphrase)

	encrypted, err := c.Encrypt(EncryptRequest{
		PublicKey:   pair.PublicKey,
		Data:        "content key",
		Fingerprint: pair.Fingerprint,
	})
	require.NoError(t, err)

	escrowCipher := New(testEscrow, testDigest(), WithKeyBits(2048))
	decrypted, err := escrowCipher.Decrypt(DecryptRequest{
		PrivateKey: pair.BackupKey,
		Encrypted:  encrypted,
	})
	require.NoError(t, err)
	assert.Equal(t, "content key", decrypted)

	// The login passphrase does not open the backup blob.
	_, err = c.Decrypt(DecryptRequest{PrivateKey: pair.BackupKey, Encrypted: encrypted})
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
