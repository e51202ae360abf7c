package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	cryptoService "github.com/sakhi-health/chatvault/internal/crypto/service"
	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// piiVault implements the PIIVault interface over the per-user vault store.
//
// The resolve cache is a TTL cache rather than a process-lifetime map: PII
// plaintext should not accumulate in memory for longer than active sessions
// need it. Token assignment needs no cache at all since the token is a pure
// function of the value hash.
type piiVault struct {
	vaultRepo VaultRepository
	hasher    HashService
	cipher    cryptoService.PassphraseCipher
	cache     *gocache.Cache
	logger    *slog.Logger
}

// cacheKey scopes a resolved token to its user so entries never cross users.
func cacheKey(userID, token string) string {
	return userID + "|" + token
}

// TokenFor returns the stable token for a detected identity span.
func (v *piiVault) TokenFor(
	ctx context.Context,
	userID, value string,
	entityType domain.EntityType,
) (string, error) {
	if userID == "" {
		return "", domain.ErrEmptyUserID
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.ErrEmptyValue
	}
	if err := entityType.Validate(); err != nil {
		return "", err
	}

	valueHash := v.hasher.Hash(value)
	token := domain.PIIToken(entityType, valueHash)

	if _, ok := v.cache.Get(cacheKey(userID, token)); ok {
		return token, nil
	}

	entry, err := v.vaultRepo.GetByValueHash(ctx, userID, valueHash)
	switch {
	case err == nil:
		v.cache.SetDefault(cacheKey(userID, entry.TokenKey), value)
		return entry.TokenKey, nil
	case apperrors.Is(err, apperrors.ErrNotFound):
		return v.createEntry(ctx, userID, value, valueHash, token, entityType)
	default:
		// Degraded store on lookup: the token is still deterministic, so
		// hand it back uncached and let a later healthy call persist the row.
		v.logger.Warn("vault lookup failed, returning best-effort token", "error", err)
		return token, nil
	}
}

// createEntry persists a new vault row. A concurrent insert losing the unique
// constraint race re-reads and adopts the winner's token.
func (v *piiVault) createEntry(
	ctx context.Context,
	userID, value, valueHash, token string,
	entityType domain.EntityType,
) (string, error) {
	encryptedValue, err := v.cipher.EncryptString(value)
	if err != nil {
		return "", err
	}

	entry := &domain.VaultEntry{
		UserID:         userID,
		ValueHash:      valueHash,
		TokenKey:       token,
		EntityType:     entityType,
		EncryptedValue: encryptedValue,
		CreatedAt:      time.Now().UTC(),
	}

	err = v.vaultRepo.Create(ctx, entry)
	switch {
	case err == nil:
		v.cache.SetDefault(cacheKey(userID, token), value)
		return token, nil
	case apperrors.Is(err, apperrors.ErrConflict):
		winner, getErr := v.vaultRepo.GetByValueHash(ctx, userID, valueHash)
		if getErr != nil {
			v.logger.Warn("vault conflict re-query failed, returning best-effort token", "error", getErr)
			return token, nil
		}
		v.cache.SetDefault(cacheKey(userID, winner.TokenKey), value)
		return winner.TokenKey, nil
	default:
		v.logger.Warn("vault write failed, returning best-effort token", "error", err)
		return token, nil
	}
}

// Resolve maps a token back to the real value for that user only.
func (v *piiVault) Resolve(ctx context.Context, userID, token string) (string, error) {
	if userID == "" {
		return "", domain.ErrEmptyUserID
	}

	if value, ok := v.cache.Get(cacheKey(userID, token)); ok {
		return value.(string), nil
	}

	entry, err := v.vaultRepo.GetByToken(ctx, userID, token)
	if err != nil {
		return "", err
	}

	value, err := v.cipher.DecryptString(entry.EncryptedValue)
	if err != nil {
		return "", err
	}

	v.cache.SetDefault(cacheKey(userID, token), value)
	return value, nil
}

// EntriesByUser returns the user's full token-to-value mapping. Rows whose
// value cannot be decrypted are skipped and logged.
func (v *piiVault) EntriesByUser(ctx context.Context, userID string) (map[string]string, error) {
	if userID == "" {
		return nil, domain.ErrEmptyUserID
	}

	entries, err := v.vaultRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(entries))
	for _, entry := range entries {
		value, err := v.cipher.DecryptString(entry.EncryptedValue)
		if err != nil {
			v.logger.Warn("failed to decrypt vault value", "entry_id", entry.ID)
			continue
		}

		values[entry.TokenKey] = value
		v.cache.SetDefault(cacheKey(userID, entry.TokenKey), value)
	}

	return values, nil
}

// NewPIIVault creates a new PII vault instance with the provided dependencies.
// cacheTTL bounds how long resolved plaintext values stay in memory.
func NewPIIVault(
	vaultRepo VaultRepository,
	hasher HashService,
	cipher cryptoService.PassphraseCipher,
	cacheTTL time.Duration,
	logger *slog.Logger,
) PIIVault {
	return &piiVault{
		vaultRepo: vaultRepo,
		hasher:    hasher,
		cipher:    cipher,
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
		logger:    logger,
	}
}
