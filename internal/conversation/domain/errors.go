package domain

import (
	"github.com/sakhi-health/chatvault/internal/errors"
)

var (
	// ErrTurnNotFound indicates no stored turns matched the lookup.
	ErrTurnNotFound = errors.Wrap(errors.ErrNotFound, "conversation turn not found")

	// ErrEmptyUserID indicates a conversation operation was called without a user id.
	ErrEmptyUserID = errors.Wrap(errors.ErrInvalidInput, "user id cannot be empty")

	// ErrInvalidRole indicates an unknown conversation role.
	ErrInvalidRole = errors.Wrap(errors.ErrInvalidInput, "invalid conversation role")
)
