// Package service provides the cryptographic services of the privacy layer:
// per-user key derivation (HKDF-SHA256), authenticated message encryption
// (AES-256-GCM), passphrase-based vault value encryption (PBKDF2 + AES-256-GCM),
// and KMS-backed master secret loading.
package service

import (
	"context"

	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
)

// KeyDeriver derives per-user symmetric keys from the process master secret.
type KeyDeriver interface {
	// Derive returns the deterministic 32-byte key for the given user id.
	// The same user id always yields the same key while the master secret
	// is unchanged. Fails with ErrEmptyUserID for an empty id.
	Derive(userID string) ([]byte, error)
}

// MessageCipher provides authenticated encryption of a single message under a
// per-user key, producing base64 transport-encoded output.
type MessageCipher interface {
	// Encrypt encrypts plaintext with a fresh random nonce. Empty plaintext
	// maps to an empty payload without consuming a nonce.
	Encrypt(key []byte, plaintext string) (cryptoDomain.EncryptedPayload, error)

	// Decrypt recovers the plaintext. Returns ErrPayloadMalformed for broken
	// encodings and ErrDecryptionFailed when the authentication tag check fails.
	Decrypt(key []byte, payload cryptoDomain.EncryptedPayload) (string, error)
}

// PassphraseCipher encrypts individual vault values under a key derived from a
// secret application passphrase. Output is a single opaque base64 string so it
// fits one storage column. Kept separate from MessageCipher: the two schemes
// carry independent keys.
type PassphraseCipher interface {
	EncryptString(value string) (string, error)
	DecryptString(stored string) (string, error)
}

// KMSService opens secret keepers for unwrapping the KMS-wrapped master secret.
type KMSService interface {
	// OpenKeeper opens a keeper for the configured KMS provider key URI.
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// KMSKeeper is the subset of a KMS keeper needed to wrap and unwrap the
// master secret. *secrets.Keeper from gocloud.dev implements it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
