package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
)

const (
	// pbkdf2Iterations follows the current OWASP recommendation for
	// PBKDF2-HMAC-SHA256.
	pbkdf2Iterations = 480000

	// pbkdf2Salt is fixed so the derived vault key is stable across restarts.
	// Vault values must remain decryptable for the lifetime of the data, which
	// rules out a per-process random salt here.
	pbkdf2Salt = "sakhi_pii_vault_v1"
)

// PBKDF2PassphraseCipher implements PassphraseCipher with a key derived once
// from the application passphrase via PBKDF2-HMAC-SHA256 and AES-256-GCM for
// the actual encryption. Output is base64(nonce || ciphertext) in one opaque
// string, so a vault value occupies a single storage column.
//
// This scheme is deliberately independent of the per-user message cipher: the
// vaults are shared lookup structures and must not depend on any one user's
// derived key.
type PBKDF2PassphraseCipher struct {
	aead cipher.AEAD
}

// NewPBKDF2PassphraseCipher derives the vault key from the passphrase and
// prepares the AEAD. The derived key is zeroed after the AEAD is built.
func NewPBKDF2PassphraseCipher(passphrase string) (*PBKDF2PassphraseCipher, error) {
	if passphrase == "" {
		return nil, cryptoDomain.ErrMasterSecretNotSet
	}

	key := pbkdf2.Key([]byte(passphrase), []byte(pbkdf2Salt), pbkdf2Iterations, cryptoDomain.KeySize, sha256.New)
	defer cryptoDomain.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &PBKDF2PassphraseCipher{aead: aead}, nil
}

// EncryptString encrypts a vault value into a single opaque string.
func (c *PBKDF2PassphraseCipher) EncryptString(value string) (string, error) {
	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func (c *PBKDF2PassphraseCipher) DecryptString(stored string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", cryptoDomain.ErrPayloadMalformed
	}
	if len(data) < cryptoDomain.NonceSize {
		return "", cryptoDomain.ErrPayloadMalformed
	}

	plaintext, err := c.aead.Open(nil, data[:cryptoDomain.NonceSize], data[cryptoDomain.NonceSize:], nil)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}
