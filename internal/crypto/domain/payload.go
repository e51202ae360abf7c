package domain

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/sakhi-health/chatvault/internal/validation"
)

// EncryptedPayload is the transport form of one encrypted message: base64-encoded
// ciphertext and nonce. Both fields empty represents an encrypted empty message,
// which is distinct from "nothing was ever stored" at the row level.
type EncryptedPayload struct {
	Ciphertext string
	Nonce      string
}

// IsEmpty reports whether the payload carries an encrypted empty message.
func (p EncryptedPayload) IsEmpty() bool {
	return p.Ciphertext == "" && p.Nonce == ""
}

// Validate checks that both fields are well-formed base64 and that the nonce is
// present whenever a ciphertext is. A malformed payload is rejected before the
// cipher is consulted.
func (p EncryptedPayload) Validate() error {
	if p.IsEmpty() {
		return nil
	}
	if p.Ciphertext == "" || p.Nonce == "" {
		return ErrPayloadMalformed
	}

	err := validation.ValidateStruct(&p,
		validation.Field(&p.Ciphertext, appValidation.Base64),
		validation.Field(&p.Nonce, appValidation.Base64),
	)
	if err != nil {
		return ErrPayloadMalformed
	}
	return nil
}
