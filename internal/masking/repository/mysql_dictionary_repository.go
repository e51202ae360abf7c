package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/sakhi-health/chatvault/internal/database"
	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// mysqlDuplicateEntry is the MySQL error number for duplicate key violations.
const mysqlDuplicateEntry = 1062

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation.
func isMySQLUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// MySQLDictionaryRepository implements medical dictionary persistence for MySQL databases.
type MySQLDictionaryRepository struct {
	db *sql.DB
}

// Create inserts a new dictionary entry and populates its generated ID.
// A concurrent insert for the same term hash yields ErrDictionaryEntryAlreadyExists.
func (m *MySQLDictionaryRepository) Create(ctx context.Context, entry *domain.DictionaryEntry) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sakhi_medical_dictionary (term_hash, token_key, encrypted_term, created_at)
			  VALUES (?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		entry.TermHash,
		entry.TokenKey,
		entry.EncryptedTerm,
		entry.CreatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return domain.ErrDictionaryEntryAlreadyExists
		}
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to create dictionary entry")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to get dictionary entry id")
	}
	entry.ID = id

	return nil
}

// GetByTermHash retrieves a dictionary entry by its term hash.
func (m *MySQLDictionaryRepository) GetByTermHash(
	ctx context.Context,
	termHash string,
) (*domain.DictionaryEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, term_hash, token_key, encrypted_term, created_at
			  FROM sakhi_medical_dictionary
			  WHERE term_hash = ?`

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

// SetTokenKey assigns the token for a dictionary row.
func (m *MySQLDictionaryRepository) SetTokenKey(ctx context.Context, id int64, tokenKey string) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sakhi_medical_dictionary SET token_key = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, tokenKey, id)
	if err != nil {
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to set dictionary token key")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to get rows affected")
	}

	if rowsAffected == 0 {
		// MySQL reports zero affected rows for a no-change update as well, so
		// distinguish a missing row from an idempotent re-assignment.
		var exists int
		checkErr := querier.QueryRowContext(
			ctx,
			`SELECT 1 FROM sakhi_medical_dictionary WHERE id = ?`,
			id,
		).Scan(&exists)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return domain.ErrDictionaryEntryNotFound
		}
		if checkErr != nil {
			return apperrors.Classify(apperrors.ErrPersistence, checkErr, "failed to verify dictionary entry")
		}
	}

	return nil
}

// ListAll retrieves every dictionary entry, oldest first.
func (m *MySQLDictionaryRepository) ListAll(ctx context.Context) ([]*domain.DictionaryEntry, error) {
	querier := database.GetTx(ctx, m.db)

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

// NewMySQLDictionaryRepository creates a new MySQL dictionary repository instance.
func NewMySQLDictionaryRepository(db *sql.DB) *MySQLDictionaryRepository {
	return &MySQLDictionaryRepository{db: db}
}
