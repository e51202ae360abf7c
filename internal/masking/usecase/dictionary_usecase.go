package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	cryptoService "github.com/sakhi-health/chatvault/internal/crypto/service"
	"github.com/sakhi-health/chatvault/internal/database"
	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// tokenVault implements the TokenVault interface over the global medical
// dictionary.
//
// The in-memory maps are advisory mirrors of the store: they may be briefly
// stale or lose a race, but the dictionary's unique constraint on term_hash is
// the authority and the caches only ever hold tokens the store confirmed.
// Concurrent first-sightings of the same term are collapsed through
// singleflight so at most one goroutine per hash talks to the store.
type tokenVault struct {
	dictRepo  DictionaryRepository
	txManager database.TxManager
	hasher    HashService
	cipher    cryptoService.PassphraseCipher
	logger    *slog.Logger

	group       singleflight.Group
	hashToToken sync.Map // term_hash -> token
	tokenToTerm sync.Map // token -> term
}

// TokenFor returns the stable token for a medical term.
func (v *tokenVault) TokenFor(ctx context.Context, term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", domain.ErrEmptyTerm
	}

	termHash := v.hasher.Hash(term)
	if token, ok := v.hashToToken.Load(termHash); ok {
		return token.(string), nil
	}

	// The winner's round-trip serves every concurrent caller of this hash, so
	// it must not die with the one context that happened to start it.
	storeCtx := context.WithoutCancel(ctx)
	result, err, _ := v.group.Do(termHash, func() (any, error) {
		return v.lookupOrCreate(storeCtx, term, termHash)
	})
	if err != nil {
		// Degraded store: hand back the sentinel rather than failing the
		// user's request. Never cached, so a healthy store gets asked again.
		v.logger.Warn("dictionary token assignment failed", "error", err)
		return domain.SentinelMedicalToken, nil
	}

	return result.(string), nil
}

// lookupOrCreate resolves the token for a hash against the store, creating
// and self-healing rows as needed. Runs at most once per hash at a time.
func (v *tokenVault) lookupOrCreate(ctx context.Context, term, termHash string) (string, error) {
	// A singleflight loser may arrive after the winner already populated the cache.
	if token, ok := v.hashToToken.Load(termHash); ok {
		return token.(string), nil
	}

	entry, err := v.dictRepo.GetByTermHash(ctx, termHash)
	switch {
	case err == nil:
		return v.adoptEntry(ctx, term, termHash, entry)
	case apperrors.Is(err, apperrors.ErrNotFound):
		return v.createEntry(ctx, term, termHash)
	default:
		return "", err
	}
}

// adoptEntry returns the token of an existing row, completing an interrupted
// assignment first if the row has no token yet.
func (v *tokenVault) adoptEntry(
	ctx context.Context,
	term, termHash string,
	entry *domain.DictionaryEntry,
) (string, error) {
	if entry.HasToken() {
		token := *entry.TokenKey
		v.cache(termHash, term, token)
		return token, nil
	}

	// Interrupted prior write: the row exists but the token was never
	// assigned. Recover it from the row id, idempotently.
	token := domain.MedicalToken(entry.ID)
	if err := v.dictRepo.SetTokenKey(ctx, entry.ID, token); err != nil {
		return "", err
	}

	v.cache(termHash, term, token)
	return token, nil
}

// createEntry inserts a new dictionary row and assigns its token inside one
// transaction. A concurrent insert losing the unique constraint race re-reads
// and adopts the winner's row.
func (v *tokenVault) createEntry(ctx context.Context, term, termHash string) (string, error) {
	encryptedTerm, err := v.cipher.EncryptString(term)
	if err != nil {
		return "", err
	}

	entry := &domain.DictionaryEntry{
		TermHash:      termHash,
		EncryptedTerm: encryptedTerm,
		CreatedAt:     time.Now().UTC(),
	}

	var token string
	err = v.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := v.dictRepo.Create(txCtx, entry); err != nil {
			return err
		}
		token = domain.MedicalToken(entry.ID)
		return v.dictRepo.SetTokenKey(txCtx, entry.ID, token)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return v.adoptWinner(ctx, term, termHash)
		}
		return "", err
	}

	v.cache(termHash, term, token)
	return token, nil
}

// adoptWinner re-queries after losing an insert race and adopts the winning row.
func (v *tokenVault) adoptWinner(ctx context.Context, term, termHash string) (string, error) {
	entry, err := v.dictRepo.GetByTermHash(ctx, termHash)
	if err != nil {
		return "", err
	}
	return v.adoptEntry(ctx, term, termHash, entry)
}

// Resolve maps a token back to its term from the in-memory cache.
func (v *tokenVault) Resolve(token string) (string, bool) {
	term, ok := v.tokenToTerm.Load(token)
	if !ok {
		return "", false
	}
	return term.(string), true
}

// Preload fills the caches from the persistent dictionary. Rows whose stored
// term cannot be decrypted (for example after a passphrase change) are skipped
// and logged; their tokens simply stay masked in unmasked output.
func (v *tokenVault) Preload(ctx context.Context) (int, error) {
	entries, err := v.dictRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, entry := range entries {
		if !entry.HasToken() {
			continue
		}

		term, err := v.cipher.DecryptString(entry.EncryptedTerm)
		if err != nil {
			v.logger.Warn("failed to decrypt dictionary term", "entry_id", entry.ID)
			continue
		}

		v.cache(entry.TermHash, term, *entry.TokenKey)
		loaded++
	}

	return loaded, nil
}

// cache populates both direction maps for a confirmed assignment.
func (v *tokenVault) cache(termHash, term, token string) {
	v.hashToToken.Store(termHash, token)
	v.tokenToTerm.Store(token, term)
}

// NewTokenVault creates a new medical token vault instance with the provided dependencies.
func NewTokenVault(
	dictRepo DictionaryRepository,
	txManager database.TxManager,
	hasher HashService,
	cipher cryptoService.PassphraseCipher,
	logger *slog.Logger,
) TokenVault {
	return &tokenVault{
		dictRepo:  dictRepo,
		txManager: txManager,
		hasher:    hasher,
		cipher:    cipher,
		logger:    logger,
	}
}
