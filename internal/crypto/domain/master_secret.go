// Package domain defines core cryptographic domain models for the privacy layer:
// the process-wide master secret, the encrypted message payload, and key sizing
// constants shared by the crypto services.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// KeySize is the required symmetric key size in bytes (256 bits) for all
	// derived user keys and passphrase-derived vault keys.
	KeySize = 32

	// NonceSize is the AES-GCM nonce size in bytes (96 bits, NIST recommended).
	NonceSize = 12
)

// MasterSecret is the process-wide secret from which all per-user encryption keys
// are derived. It is loaded once at startup and never persisted or logged.
//
// Ephemeral marks a secret that was randomly generated because no configured
// value was available. This is an explicit degraded mode: data encrypted under
// an ephemeral secret becomes unrecoverable after a process restart.
type MasterSecret struct {
	Key       []byte
	Ephemeral bool
}

// ParseMasterSecret interprets a configured master secret value.
//
// A 64-character hex string is decoded into its 32 raw bytes; any other
// non-empty value is used as raw bytes. An empty value is rejected so callers
// can decide whether to fall back to an ephemeral secret.
func ParseMasterSecret(raw string) (MasterSecret, error) {
	if raw == "" {
		return MasterSecret{}, ErrMasterSecretNotSet
	}

	if len(raw) == hex.EncodedLen(KeySize) {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return MasterSecret{Key: decoded}, nil
		}
		// Not valid hex despite the length: treat as a raw byte string.
	}

	return MasterSecret{Key: []byte(raw)}, nil
}

// NewEphemeralMasterSecret generates a random 32-byte master secret for the
// lifetime of the process.
func NewEphemeralMasterSecret() (MasterSecret, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return MasterSecret{}, fmt.Errorf("failed to generate ephemeral master secret: %w", err)
	}
	return MasterSecret{Key: key, Ephemeral: true}, nil
}

// Close zeroes the secret key material.
func (m *MasterSecret) Close() {
	Zero(m.Key)
	m.Key = nil
}
