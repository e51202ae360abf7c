package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
)

// AESGCMMessageCipher implements MessageCipher using AES-256-GCM.
//
// Each encryption generates a fresh random 12-byte nonce, so the cipher is
// stateless and safe for concurrent use from multiple goroutines. No associated
// data is used; authenticity is bound to the per-user key alone. Ciphertext and
// nonce are base64-encoded for transport through the store.
//
// Empty plaintext is mapped to an empty payload without touching the AEAD:
// storage rows for empty messages stay distinguishable from absent rows and no
// nonce is wasted on them.
type AESGCMMessageCipher struct{}

// NewAESGCMMessageCipher creates a new message cipher instance.
func NewAESGCMMessageCipher() *AESGCMMessageCipher {
	return &AESGCMMessageCipher{}
}

// aead builds the AES-256-GCM AEAD for a 32-byte key.
func (c *AESGCMMessageCipher) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead, nil
}

// Encrypt encrypts plaintext under the given per-user key.
func (c *AESGCMMessageCipher) Encrypt(
	key []byte,
	plaintext string,
) (cryptoDomain.EncryptedPayload, error) {
	if plaintext == "" {
		return cryptoDomain.EncryptedPayload{}, nil
	}

	aead, err := c.aead(key)
	if err != nil {
		return cryptoDomain.EncryptedPayload{}, err
	}

	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return cryptoDomain.EncryptedPayload{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)

	return cryptoDomain.EncryptedPayload{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt recovers the plaintext from a stored payload.
//
// The payload is validated before the cipher is consulted: broken base64 or a
// missing field yields ErrPayloadMalformed. A failed tag check yields
// ErrDecryptionFailed and never partial plaintext.
func (c *AESGCMMessageCipher) Decrypt(
	key []byte,
	payload cryptoDomain.EncryptedPayload,
) (string, error) {
	if payload.IsEmpty() {
		return "", nil
	}

	if err := payload.Validate(); err != nil {
		return "", err
	}

	aead, err := c.aead(key)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", cryptoDomain.ErrPayloadMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", cryptoDomain.ErrPayloadMalformed
	}
	if len(nonce) != cryptoDomain.NonceSize {
		return "", cryptoDomain.ErrPayloadMalformed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}
