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

// Package encoding provides PEM and PKCS#8 helpers for the RSA key material
// held in user key vaults. Private keys are always encrypted PKCS#8
// (AES-256-CBC, PBKDF2) via the youmark/pkcs8 package; public keys are
// PKIX "PUBLIC KEY" blocks.
package encoding

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// PEM block types
const (
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	PEMTypePublicKey           = "PUBLIC KEY"
)

// EncodePrivateKeyPEM encodes an RSA private key as an encrypted PKCS#8
// PEM block under the given password. The password must not be empty: an
// unencrypted private key never leaves memory in this system.
func EncodePrivateKeyPEM(privateKey *rsa.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidPassword)
	}

	// nil opts selects the youmark/pkcs8 defaults: AES-256-CBC with
	// PBKDF2-SHA256 key derivation.
	der, err := pkcs8.MarshalPrivateKey(privateKey, password, nil)
	if err != nil {
		return nil, fmt.Errorf("encoding: failed to marshal PKCS#8: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  PEMTypeEncryptedPrivateKey,
		Bytes: der,
	}), nil
}

// DecodePrivateKeyPEM decodes an encrypted PKCS#8 PEM block back to an RSA
// private key using the given password. A wrong password surfaces as
// ErrInvalidPassword.
func DecodePrivateKeyPEM(pemData []byte, password []byte) (*rsa.PrivateKey, error) {
	if len(pemData) == 0 {
		return nil, ErrInvalidData
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}

	key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, password)
	if err != nil {
		if isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("encoding: failed to parse PKCS#8: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	return rsaKey, nil
}

// EncodePublicKeyPEM encodes an RSA public key as a PKIX "PUBLIC KEY" PEM block.
func EncodePublicKeyPEM(publicKey *rsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}

	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("encoding: failed to marshal PKIX public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  PEMTypePublicKey,
		Bytes: der,
	}), nil
}

// DecodePublicKeyPEM decodes a PKIX "PUBLIC KEY" PEM block to an RSA public key.
func DecodePublicKeyPEM(pemData []byte) (*rsa.PublicKey, error) {
	if len(pemData) == 0 {
		return nil, ErrInvalidData
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("encoding: failed to parse PKIX public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPublicKey
	}
	return rsaPub, nil
}

// isPasswordError checks if an error is related to an incorrect password.
// The pkcs8 package returns various error messages for password issues.
func isPasswordError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	passwordErrors := []string{
		"pkcs8: incorrect password",
		"incorrect password",
		"asn1: structure error",
		"tags don't match",
	}
	for _, msg := range passwordErrors {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}
	return false
}
