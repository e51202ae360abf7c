package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoService "github.com/sakhi-health/chatvault/internal/crypto/service"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// The fakes below back the vault and engine tests with real store semantics:
// unique constraints, conflict errors, and injectable failures, without a
// database. They mirror the repository contracts exactly.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPassphraseCipher(t *testing.T) cryptoService.PassphraseCipher {
	t.Helper()
	cipher, err := cryptoService.NewPBKDF2PassphraseCipher("test-passphrase")
	require.NoError(t, err)
	return cipher
}

// passTxManager runs the function directly without a transaction.
type passTxManager struct{}

func (passTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memDictionaryRepo is an in-memory DictionaryRepository with a unique
// constraint on term hash and injectable failures.
type memDictionaryRepo struct {
	mu     sync.Mutex
	nextID int64
	byHash map[string]*domain.DictionaryEntry

	failCreate error
	failGet    error
	failSet    error
	failList   error

	// missGetOnce makes the next GetByTermHash miss even when the row
	// exists, simulating a lookup that raced a concurrent insert.
	missGetOnce bool
}

func newMemDictionaryRepo() *memDictionaryRepo {
	return &memDictionaryRepo{byHash: make(map[string]*domain.DictionaryEntry)}
}

func (m *memDictionaryRepo) Create(_ context.Context, entry *domain.DictionaryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreate != nil {
		return m.failCreate
	}
	if _, exists := m.byHash[entry.TermHash]; exists {
		return domain.ErrDictionaryEntryAlreadyExists
	}

	m.nextID++
	entry.ID = m.nextID
	stored := *entry
	m.byHash[entry.TermHash] = &stored
	return nil
}

func (m *memDictionaryRepo) GetByTermHash(_ context.Context, termHash string) (*domain.DictionaryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return nil, m.failGet
	}
	if m.missGetOnce {
		m.missGetOnce = false
		return nil, domain.ErrDictionaryEntryNotFound
	}

	entry, ok := m.byHash[termHash]
	if !ok {
		return nil, domain.ErrDictionaryEntryNotFound
	}
	copied := *entry
	if entry.TokenKey != nil {
		token := *entry.TokenKey
		copied.TokenKey = &token
	}
	return &copied, nil
}

func (m *memDictionaryRepo) SetTokenKey(_ context.Context, id int64, tokenKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSet != nil {
		return m.failSet
	}

	for _, entry := range m.byHash {
		if entry.ID == id {
			token := tokenKey
			entry.TokenKey = &token
			return nil
		}
	}
	return domain.ErrDictionaryEntryNotFound
}

func (m *memDictionaryRepo) ListAll(_ context.Context) ([]*domain.DictionaryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failList != nil {
		return nil, m.failList
	}

	entries := make([]*domain.DictionaryEntry, 0, len(m.byHash))
	for _, entry := range m.byHash {
		copied := *entry
		if entry.TokenKey != nil {
			token := *entry.TokenKey
			copied.TokenKey = &token
		}
		entries = append(entries, &copied)
	}
	return entries, nil
}

func (m *memDictionaryRepo) rowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}

// memVaultRepo is an in-memory VaultRepository with a unique constraint on
// (user id, value hash) and injectable failures.
type memVaultRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*domain.VaultEntry

	failCreate error
	failGet    error
	failList   error
}

func newMemVaultRepo() *memVaultRepo {
	return &memVaultRepo{}
}

func (m *memVaultRepo) Create(_ context.Context, entry *domain.VaultEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreate != nil {
		return m.failCreate
	}
	for _, row := range m.rows {
		if row.UserID == entry.UserID && row.ValueHash == entry.ValueHash {
			return domain.ErrVaultEntryAlreadyExists
		}
	}

	m.nextID++
	entry.ID = m.nextID
	stored := *entry
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *memVaultRepo) GetByValueHash(_ context.Context, userID, valueHash string) (*domain.VaultEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, row := range m.rows {
		if row.UserID == userID && row.ValueHash == valueHash {
			copied := *row
			return &copied, nil
		}
	}
	return nil, domain.ErrVaultEntryNotFound
}

func (m *memVaultRepo) GetByToken(_ context.Context, userID, tokenKey string) (*domain.VaultEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, row := range m.rows {
		if row.UserID == userID && row.TokenKey == tokenKey {
			copied := *row
			return &copied, nil
		}
	}
	return nil, domain.ErrVaultEntryNotFound
}

func (m *memVaultRepo) ListByUser(_ context.Context, userID string) ([]*domain.VaultEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failList != nil {
		return nil, m.failList
	}

	entries := make([]*domain.VaultEntry, 0)
	for _, row := range m.rows {
		if row.UserID == userID {
			copied := *row
			entries = append(entries, &copied)
		}
	}
	return entries, nil
}

func (m *memVaultRepo) rowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// staticProfiles is a fixed-map ProfileDirectory.
type staticProfiles map[string]string

func (s staticProfiles) DisplayName(_ context.Context, userID string) (string, error) {
	return s[userID], nil
}
