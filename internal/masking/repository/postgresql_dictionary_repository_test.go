package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
	"github.com/sakhi-health/chatvault/internal/testutil"
)

func TestPostgreSQLDictionaryRepository_Create(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDictionaryRepository(db)
	ctx := context.Background()

	entry := &domain.DictionaryEntry{
		TermHash:      "aaaa1111",
		TokenKey:      nil,
		EncryptedTerm: "ZW5jcnlwdGVkLXRlcm0=",
		CreatedAt:     time.Now().UTC(),
	}

	err := repo.Create(ctx, entry)
	require.NoError(t, err)
	assert.Greater(t, entry.ID, int64(0))

	t.Run("DuplicateHashYieldsConflict", func(t *testing.T) {
		dup := &domain.DictionaryEntry{
			TermHash:      "aaaa1111",
			EncryptedTerm: "b3RoZXI=",
			CreatedAt:     time.Now().UTC(),
		}

		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrDictionaryEntryAlreadyExists)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestPostgreSQLDictionaryRepository_GetByTermHash(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDictionaryRepository(db)
	ctx := context.Background()

	entry := &domain.DictionaryEntry{
		TermHash:      "bbbb2222",
		EncryptedTerm: "ZW5jcnlwdGVkLXRlcm0=",
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, entry))

	t.Run("Found_NullTokenKey", func(t *testing.T) {
		got, err := repo.GetByTermHash(ctx, "bbbb2222")
		require.NoError(t, err)
		assert.Equal(t, entry.ID, got.ID)
		assert.Nil(t, got.TokenKey)
		assert.False(t, got.HasToken())
	})

	t.Run("NotFound", func(t *testing.T) {
		got, err := repo.GetByTermHash(ctx, "missing")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrDictionaryEntryNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPostgreSQLDictionaryRepository_SetTokenKey(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDictionaryRepository(db)
	ctx := context.Background()

	entry := &domain.DictionaryEntry{
		TermHash:      "cccc3333",
		EncryptedTerm: "ZW5jcnlwdGVkLXRlcm0=",
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, entry))

	token := domain.MedicalToken(entry.ID)
	require.NoError(t, repo.SetTokenKey(ctx, entry.ID, token))

	got, err := repo.GetByTermHash(ctx, "cccc3333")
	require.NoError(t, err)
	require.True(t, got.HasToken())
	assert.Equal(t, token, *got.TokenKey)

	t.Run("Idempotent", func(t *testing.T) {
		assert.NoError(t, repo.SetTokenKey(ctx, entry.ID, token))
	})

	t.Run("MissingRow", func(t *testing.T) {
		err := repo.SetTokenKey(ctx, 999999, token)
		assert.ErrorIs(t, err, domain.ErrDictionaryEntryNotFound)
	})
}

func TestPostgreSQLDictionaryRepository_ListAll(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDictionaryRepository(db)
	ctx := context.Background()

	t.Run("EmptyTable", func(t *testing.T) {
		entries, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	for _, hash := range []string{"h1", "h2", "h3"} {
		entry := &domain.DictionaryEntry{
			TermHash:      hash,
			EncryptedTerm: "ZW5jcnlwdGVkLXRlcm0=",
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, entry))
	}

	entries, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].ID, entries[i-1].ID)
	}
}
