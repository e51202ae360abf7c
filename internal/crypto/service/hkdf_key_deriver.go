package service

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
)

// keyDerivationInfo is the fixed HKDF context string. Changing it would make
// every previously stored ciphertext unrecoverable, so it is a wire constant.
const keyDerivationInfo = "chat_encryption"

// HKDFKeyDeriver derives per-user AES keys from the master secret using
// HKDF with SHA-256.
//
// The user id acts as the HKDF salt and a fixed context string as the info
// parameter, so every user gets an independent key while derivation stays
// fully deterministic: no derived key is ever stored, each is recomputed on
// demand. The deriver is stateless and safe for concurrent use.
type HKDFKeyDeriver struct {
	masterSecret cryptoDomain.MasterSecret
}

// NewHKDFKeyDeriver creates a key deriver bound to the process master secret.
func NewHKDFKeyDeriver(masterSecret cryptoDomain.MasterSecret) *HKDFKeyDeriver {
	return &HKDFKeyDeriver{masterSecret: masterSecret}
}

// Derive returns the 32-byte key for the given user id.
func (d *HKDFKeyDeriver) Derive(userID string) ([]byte, error) {
	if userID == "" {
		return nil, cryptoDomain.ErrEmptyUserID
	}

	reader := hkdf.New(sha256.New, d.masterSecret.Key, []byte(userID), []byte(keyDerivationInfo))
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive user key: %w", err)
	}

	return key, nil
}
