// Package repository implements persistence for the global medical dictionary
// and the per-user PII vault with dual database support (PostgreSQL and MySQL).
// Unique constraint violations are mapped to conflict errors so use cases can
// adopt the winner of a concurrent insert race.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/sakhi-health/chatvault/internal/database"
	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// postgresUniqueViolation is the PostgreSQL error code for unique constraint violations.
const postgresUniqueViolation = "23505"

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == postgresUniqueViolation
}

// PostgreSQLDictionaryRepository implements medical dictionary persistence for PostgreSQL databases.
type PostgreSQLDictionaryRepository struct {
	db *sql.DB
}

// Create inserts a new dictionary entry and populates its generated ID.
// A concurrent insert for the same term hash yields ErrDictionaryEntryAlreadyExists.
func (p *PostgreSQLDictionaryRepository) Create(ctx context.Context, entry *domain.DictionaryEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO sakhi_medical_dictionary (term_hash, token_key, encrypted_term, created_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`

	err := querier.QueryRowContext(
		ctx,
		query,
		entry.TermHash,
		entry.TokenKey,
		entry.EncryptedTerm,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrDictionaryEntryAlreadyExists
		}
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to create dictionary entry")
	}
	return nil
}

// GetByTermHash retrieves a dictionary entry by its term hash.
func (p *PostgreSQLDictionaryRepository) GetByTermHash(
	ctx context.Context,
	termHash string,
) (*domain.DictionaryEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, term_hash, token_key, encrypted_term, created_at
			  FROM sakhi_medical_dictionary
			  WHERE term_hash = $1`

	var entry domain.DictionaryEntry

	err := querier.QueryRowContext(ctx, query, termHash).Scan(
		&entry.ID,
		&entry.TermHash,
		&entry.TokenKey,
		&entry.EncryptedTerm,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDictionaryEntryNotFound
		}
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, "failed to get dictionary entry by term hash")
	}

	return &entry, nil
}

// SetTokenKey assigns the token for a dictionary row. Idempotent: re-running
// the same assignment is a no-op at the data level.
func (p *PostgreSQLDictionaryRepository) SetTokenKey(ctx context.Context, id int64, tokenKey string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sakhi_medical_dictionary SET token_key = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, tokenKey, id)
	if err != nil {
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to set dictionary token key")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to get rows affected")
	}

	if rowsAffected == 0 {
		return domain.ErrDictionaryEntryNotFound
	}

	return nil
}

// ListAll retrieves every dictionary entry, oldest first. Used to preload the
// global dictionary cache at startup.
func (p *PostgreSQLDictionaryRepository) ListAll(ctx context.Context) ([]*domain.DictionaryEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, term_hash, token_key, encrypted_term, created_at
			  FROM sakhi_medical_dictionary
			  ORDER BY id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, "failed to list dictionary entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*domain.DictionaryEntry
	for rows.Next() {
		var entry domain.DictionaryEntry

		err := rows.Scan(
			&entry.ID,
			&entry.TermHash,
			&entry.TokenKey,
			&entry.EncryptedTerm,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Classify(apperrors.ErrPersistence, err, "failed to scan dictionary entry")
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, "error iterating dictionary entries")
	}

	if entries == nil {
		entries = make([]*domain.DictionaryEntry, 0)
	}

	return entries, nil
}

// NewPostgreSQLDictionaryRepository creates a new PostgreSQL dictionary repository instance.
func NewPostgreSQLDictionaryRepository(db *sql.DB) *PostgreSQLDictionaryRepository {
	return &PostgreSQLDictionaryRepository{db: db}
}
