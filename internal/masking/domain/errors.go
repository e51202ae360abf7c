package domain

import (
	"github.com/sakhi-health/chatvault/internal/errors"
)

var (
	// ErrDictionaryEntryNotFound indicates no dictionary row matched the term hash.
	ErrDictionaryEntryNotFound = errors.Wrap(errors.ErrNotFound, "dictionary entry not found")

	// ErrDictionaryEntryAlreadyExists indicates a concurrent insert won the
	// unique constraint race for the same term hash.
	ErrDictionaryEntryAlreadyExists = errors.Wrap(errors.ErrConflict, "dictionary entry already exists")

	// ErrVaultEntryNotFound indicates no vault row matched the lookup.
	ErrVaultEntryNotFound = errors.Wrap(errors.ErrNotFound, "vault entry not found")

	// ErrVaultEntryAlreadyExists indicates a concurrent insert won the unique
	// constraint race for the same (user id, value hash) pair.
	ErrVaultEntryAlreadyExists = errors.Wrap(errors.ErrConflict, "vault entry already exists")

	// ErrEmptyTerm indicates a dictionary operation was called with an empty term.
	ErrEmptyTerm = errors.Wrap(errors.ErrInvalidInput, "term cannot be empty")

	// ErrEmptyValue indicates a vault operation was called with an empty value.
	ErrEmptyValue = errors.Wrap(errors.ErrInvalidInput, "value cannot be empty")

	// ErrEmptyUserID indicates a vault operation was called without a user id.
	ErrEmptyUserID = errors.Wrap(errors.ErrInvalidInput, "user id cannot be empty")

	// ErrInvalidEntityType indicates an unknown identity entity type.
	ErrInvalidEntityType = errors.Wrap(errors.ErrInvalidInput, "invalid entity type")
)
