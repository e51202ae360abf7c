package domain

import (
	"github.com/sakhi-health/chatvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures.
var (
	// ErrMasterSecretNotSet indicates no master secret value was configured.
	ErrMasterSecretNotSet = errors.Wrap(errors.ErrInvalidInput, "master secret not set")

	// ErrEmptyUserID indicates a key derivation was requested for an empty user id.
	ErrEmptyUserID = errors.Wrap(errors.ErrInvalidInput, "user id must not be empty")

	// ErrInvalidKeySize indicates a symmetric key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates an AEAD open failed: wrong key, tampered
	// ciphertext, or corrupted storage. The specific cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrAuthenticationFailed, "decryption failed")

	// ErrPayloadMalformed indicates a stored payload could not be decoded before
	// the cipher was consulted (invalid base64 or a missing field).
	ErrPayloadMalformed = errors.Wrap(errors.ErrMalformedPayload, "encrypted payload malformed")
)
