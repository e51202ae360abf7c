// Package usecase implements the masking business logic: term hashing, the
// global medical token vault, the per-user PII vault, and the engine that
// orchestrates detection and substitution over outgoing and incoming text.
package usecase

import (
	"context"

	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// DictionaryRepository defines the interface for medical dictionary persistence operations.
type DictionaryRepository interface {
	Create(ctx context.Context, entry *domain.DictionaryEntry) error
	GetByTermHash(ctx context.Context, termHash string) (*domain.DictionaryEntry, error)
	SetTokenKey(ctx context.Context, id int64, tokenKey string) error
	ListAll(ctx context.Context) ([]*domain.DictionaryEntry, error)
}

// VaultRepository defines the interface for PII vault persistence operations.
type VaultRepository interface {
	Create(ctx context.Context, entry *domain.VaultEntry) error
	GetByValueHash(ctx context.Context, userID, valueHash string) (*domain.VaultEntry, error)
	GetByToken(ctx context.Context, userID, tokenKey string) (*domain.VaultEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.VaultEntry, error)
}

// HashService computes one-way lookup fingerprints of plaintext spans so the
// vault indexes never contain plaintext.
type HashService interface {
	Hash(value string) string
}

// TokenVault assigns stable global tokens to medical vocabulary terms.
type TokenVault interface {
	// TokenFor returns the stable token for a term, creating the dictionary
	// entry on first sighting. Store failures degrade to the sentinel token,
	// which is never cached.
	TokenFor(ctx context.Context, term string) (string, error)
	// Resolve maps a token back to its term from the in-memory cache.
	Resolve(token string) (string, bool)
	// Preload fills the in-memory caches from the persistent dictionary and
	// returns the number of resolvable entries loaded.
	Preload(ctx context.Context) (int, error)
}

// PIIVault assigns per-user tokens to detected identity spans.
type PIIVault interface {
	// TokenFor returns the stable token for (userID, value). The token is a
	// pure function of the value hash; store failures degrade to returning it
	// uncached rather than failing the request.
	TokenFor(ctx context.Context, userID, value string, entityType domain.EntityType) (string, error)
	// Resolve maps a token back to the real value for that user only.
	// Unknown (userID, token) pairs yield ErrVaultEntryNotFound.
	Resolve(ctx context.Context, userID, token string) (string, error)
	// EntriesByUser returns the user's full token-to-value mapping. It backs
	// the bounded unmask fallback pass.
	EntriesByUser(ctx context.Context, userID string) (map[string]string, error)
}

// ProfileDirectory is the external collaborator that knows users' on-file
// display names. The privacy layer only reads from it.
type ProfileDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// MaskingEngine orchestrates detection and vault lookups to mask outgoing
// text and unmask provider responses.
type MaskingEngine interface {
	// MaskHybrid substitutes medical vocabulary first, then identity spans,
	// so identity detection never fires inside an already-emitted token.
	MaskHybrid(ctx context.Context, userID, text string) (string, error)
	// UnmaskMedicalOnly restores medical tokens, leaving identity tokens in
	// place. Used for collaborators trusted with medical vocabulary but not
	// with user identity.
	UnmaskMedicalOnly(text string) string
	// UnmaskPII restores identity tokens for that user only, normalizing
	// brace whitespace first and falling back to a full-vault fetch for
	// tokens the targeted lookups cannot resolve.
	UnmaskPII(ctx context.Context, userID, text string) (string, error)
}
