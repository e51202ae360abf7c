package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

func newTestTokenVault(t *testing.T, repo DictionaryRepository) TokenVault {
	t.Helper()
	return NewTokenVault(
		repo,
		passTxManager{},
		NewSHA256HashService(),
		testPassphraseCipher(t),
		discardLogger(),
	)
}

func TestTokenVault_TokenFor(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FirstSightingCreatesRow", func(t *testing.T) {
		repo := newMemDictionaryRepo()
		vault := newTestTokenVault(t, repo)

		token, err := vault.TokenFor(ctx, "pcos")
		require.NoError(t, err)
		assert.Equal(t, "{{GMED_1}}", token)
		assert.Equal(t, 1, repo.rowCount())

		entry, err := repo.GetByTermHash(ctx, NewSHA256HashService().Hash("pcos"))
		require.NoError(t, err)
		require.True(t, entry.HasToken())
		assert.Equal(t, token, *entry.TokenKey)
		assert.NotEqual(t, "pcos", entry.EncryptedTerm)
	})

	t.Run("Success_Deterministic", func(t *testing.T) {
		repo := newMemDictionaryRepo()
		vault := newTestTokenVault(t, repo)

		first, err := vault.TokenFor(ctx, "pcos")
		require.NoError(t, err)

		second, err := vault.TokenFor(ctx, "PCOS")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, repo.rowCount())
	})

	t.Run("Success_ResolveAfterAssignment", func(t *testing.T) {
		repo := newMemDictionaryRepo()
		vault := newTestTokenVault(t, repo)

		token, err := vault.TokenFor(ctx, "infertility")
		require.NoError(t, err)

		term, ok := vault.Resolve(token)
		require.True(t, ok)
		assert.Equal(t, "infertility", term)
	})

	t.Run("Success_SelfHealsInterruptedAssignment", func(t *testing.T) {
		repo := newMemDictionaryRepo()
		cipher := testPassphraseCipher(t)
		hasher := NewSHA256HashService()

		// Simulate a prior write that inserted the row but never assigned
		// the token.
		encrypted, err := cipher.EncryptString("ivf")
		require.NoError(t, err)
		orphan := &domain.DictionaryEntry{
			TermHash:      hasher.Hash("ivf"),
			EncryptedTerm: encrypted,
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, orphan))

		vault := NewTokenVault(repo, passTxManager{}, hasher, cipher, discardLogger())

		token, err := vault.TokenFor(ctx, "ivf")
		require.NoError(t, err)
		assert.Equal(t, domain.MedicalToken(orphan.ID), token)

		healed, err := repo.GetByTermHash(ctx, orphan.TermHash)
		require.NoError(t, err)
		assert.True(t, healed.HasToken())
	})

	t.Run("Success_AdoptsWinnerAfterInsertRace", func(t *testing.T) {
		repo := newMemDictionaryRepo()
		cipher := testPassphraseCipher(t)
		hasher := NewSHA256HashService()

		// Winner's row already fully assigned under the same hash.
		encrypted, err := cipher.EncryptString("embryo")
		require.NoError(t, err)
		winner := &domain.DictionaryEntry{
			TermHash:      hasher.Hash("embryo"),
			EncryptedTerm: encrypted,
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, winner))
		require.NoError(t, repo.SetTokenKey(ctx, winner.ID, domain.MedicalToken(winner.ID)))

		// Force the loser down the create path: the initial lookup misses as
		// if it raced the winner's insert, the insert then hits the unique
		// constraint, and the re-query adopts the winner's token.
		repo.missGetOnce = true
		vault := NewTokenVault(repo, passTxManager{}, hasher, cipher, discardLogger())

		token, err := vault.TokenFor(ctx, "embryo")
		require.NoError(t, err)
		assert.Equal(t, domain.MedicalToken(winner.ID), token)
		assert.Equal(t, 1, repo.rowCount())
	})

	t.Run("Degraded_StoreFailureYieldsSentinel", func(t *testing.T) {
		repo := newMemDictionaryRepo()
		repo.failGet = apperrors.Classify(apperrors.ErrPersistence, apperrors.New("store down"), "get failed")
		vault := newTestTokenVault(t, repo)

		token, err := vault.TokenFor(ctx, "pcos")
		require.NoError(t, err)
		assert.Equal(t, domain.SentinelMedicalToken, token)

		// The sentinel is never cached: once the store recovers, the real
		// token is assigned.
		repo.failGet = nil
		token, err = vault.TokenFor(ctx, "pcos")
		require.NoError(t, err)
		assert.NotEqual(t, domain.SentinelMedicalToken, token)
	})

	t.Run("Error_EmptyTerm", func(t *testing.T) {
		vault := newTestTokenVault(t, newMemDictionaryRepo())

		_, err := vault.TokenFor(ctx, "   ")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestTokenVault_ConcurrentFirstSighting(t *testing.T) {
	ctx := context.Background()
	repo := newMemDictionaryRepo()
	vault := newTestTokenVault(t, repo)

	const goroutines = 16

	var wg sync.WaitGroup
	tokens := make([]string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := vault.TokenFor(ctx, "infertility")
			require.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	// Exactly one row and one token for everyone.
	assert.Equal(t, 1, repo.rowCount())
	for _, token := range tokens {
		assert.Equal(t, tokens[0], token)
	}
}

// cancelAwareDictionaryRepo fails like a real driver when the context it is
// handed has already been cancelled.
type cancelAwareDictionaryRepo struct {
	*memDictionaryRepo
}

func (r *cancelAwareDictionaryRepo) GetByTermHash(
	ctx context.Context,
	termHash string,
) (*domain.DictionaryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.memDictionaryRepo.GetByTermHash(ctx, termHash)
}

func (r *cancelAwareDictionaryRepo) Create(ctx context.Context, entry *domain.DictionaryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memDictionaryRepo.Create(ctx, entry)
}

func (r *cancelAwareDictionaryRepo) SetTokenKey(ctx context.Context, id int64, tokenKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memDictionaryRepo.SetTokenKey(ctx, id, tokenKey)
}

func TestTokenVault_TokenFor_CancelledCallerStillAssigns(t *testing.T) {
	repo := &cancelAwareDictionaryRepo{memDictionaryRepo: newMemDictionaryRepo()}
	vault := newTestTokenVault(t, repo)

	// The store round-trip is shared between concurrent first-sighters, so one
	// caller's cancellation must not turn everyone's token into the sentinel.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	token, err := vault.TokenFor(ctx, "pcos")
	require.NoError(t, err)
	assert.Equal(t, "{{GMED_1}}", token)
	assert.Equal(t, 1, repo.rowCount())
}

func TestTokenVault_Resolve(t *testing.T) {
	vault := newTestTokenVault(t, newMemDictionaryRepo())

	_, ok := vault.Resolve("{{GMED_99}}")
	assert.False(t, ok)
}

func TestTokenVault_Preload(t *testing.T) {
	ctx := context.Background()
	repo := newMemDictionaryRepo()

	// Populate through one vault instance.
	seeder := newTestTokenVault(t, repo)
	tokenPCOS, err := seeder.TokenFor(ctx, "pcos")
	require.NoError(t, err)
	tokenIVF, err := seeder.TokenFor(ctx, "ivf")
	require.NoError(t, err)

	// A fresh instance starts cold and warms from the store.
	fresh := newTestTokenVault(t, repo)
	_, ok := fresh.Resolve(tokenPCOS)
	require.False(t, ok)

	loaded, err := fresh.Preload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	term, ok := fresh.Resolve(tokenPCOS)
	require.True(t, ok)
	assert.Equal(t, "pcos", term)

	term, ok = fresh.Resolve(tokenIVF)
	require.True(t, ok)
	assert.Equal(t, "ivf", term)

	t.Run("SkipsTokenlessRows", func(t *testing.T) {
		cipher := testPassphraseCipher(t)
		encrypted, err := cipher.EncryptString("fibroid")
		require.NoError(t, err)
		orphan := &domain.DictionaryEntry{
			TermHash:      NewSHA256HashService().Hash("fibroid"),
			EncryptedTerm: encrypted,
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, orphan))

		cold := newTestTokenVault(t, repo)
		loaded, err := cold.Preload(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, loaded)
	})

	t.Run("ListFailurePropagates", func(t *testing.T) {
		repo.failList = apperrors.New("store down")
		defer func() { repo.failList = nil }()

		cold := newTestTokenVault(t, repo)
		_, err := cold.Preload(ctx)
		assert.Error(t, err)
	})
}
