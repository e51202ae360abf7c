package domain

import (
	"time"
)

// DictionaryEntry is one row of the global medical dictionary. At most one
// entry exists per term hash; the store's unique constraint is the authority.
//
// TokenKey is nil while a write is in flight: an interrupted assignment leaves
// a row with a hash but no token, which the vault self-heals on next lookup.
type DictionaryEntry struct {
	ID            int64
	TermHash      string
	TokenKey      *string
	EncryptedTerm string
	CreatedAt     time.Time
}

// HasToken reports whether the entry has a completed token assignment.
func (e *DictionaryEntry) HasToken() bool {
	return e.TokenKey != nil && *e.TokenKey != ""
}

// VaultEntry is one per-user PII vault row. Unique per (user id, value hash),
// so the same real value for the same user always maps to the same token.
type VaultEntry struct {
	ID             int64
	UserID         string
	ValueHash      string
	TokenKey       string
	EntityType     EntityType
	EncryptedValue string
	CreatedAt      time.Time
}
