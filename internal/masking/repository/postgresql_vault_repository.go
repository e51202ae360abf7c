package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sakhi-health/chatvault/internal/database"
	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// PostgreSQLVaultRepository implements PII vault persistence for PostgreSQL databases.
type PostgreSQLVaultRepository struct {
	db *sql.DB
}

// Create inserts a new vault entry and populates its generated ID.
// A concurrent insert for the same (user id, value hash) pair yields
// ErrVaultEntryAlreadyExists.
func (p *PostgreSQLVaultRepository) Create(ctx context.Context, entry *domain.VaultEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO sakhi_pii_vault (user_id, value_hash, token_key, entity_type, encrypted_value, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`

	err := querier.QueryRowContext(
		ctx,
		query,
		entry.UserID,
		entry.ValueHash,
		entry.TokenKey,
		entry.EntityType.String(),
		entry.EncryptedValue,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrVaultEntryAlreadyExists
		}
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to create vault entry")
	}
	return nil
}

// GetByValueHash retrieves a vault entry by (user id, value hash).
func (p *PostgreSQLVaultRepository) GetByValueHash(
	ctx context.Context,
	userID, valueHash string,
) (*domain.VaultEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, value_hash, token_key, entity_type, encrypted_value, created_at
			  FROM sakhi_pii_vault
			  WHERE user_id = $1 AND value_hash = $2`

	return p.scanEntry(querier.QueryRowContext(ctx, query, userID, valueHash), "failed to get vault entry by value hash")
}

// GetByToken retrieves a vault entry by (user id, token).
func (p *PostgreSQLVaultRepository) GetByToken(
	ctx context.Context,
	userID, tokenKey string,
) (*domain.VaultEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, value_hash, token_key, entity_type, encrypted_value, created_at
			  FROM sakhi_pii_vault
			  WHERE user_id = $1 AND token_key = $2`

	return p.scanEntry(querier.QueryRowContext(ctx, query, userID, tokenKey), "failed to get vault entry by token")
}

// ListByUser retrieves every vault entry for a user, oldest first. Used by the
// bounded unmask fallback pass.
func (p *PostgreSQLVaultRepository) ListByUser(ctx context.Context, userID string) ([]*domain.VaultEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, value_hash, token_key, entity_type, encrypted_value, created_at
			  FROM sakhi_pii_vault
			  WHERE user_id = $1
			  ORDER BY id ASC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, "failed to list vault entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*domain.VaultEntry
	for rows.Next() {
		var entry domain.VaultEntry
		var entityType string

		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ValueHash,
			&entry.TokenKey,
			&entityType,
			&entry.EncryptedValue,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Classify(apperrors.ErrPersistence, err, "failed to scan vault entry")
		}

		entry.EntityType = domain.EntityType(entityType)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, "error iterating vault entries")
	}

	if entries == nil {
		entries = make([]*domain.VaultEntry, 0)
	}

	return entries, nil
}

// scanEntry scans a single vault row, mapping sql.ErrNoRows to ErrVaultEntryNotFound.
func (p *PostgreSQLVaultRepository) scanEntry(row *sql.Row, failMsg string) (*domain.VaultEntry, error) {
	var entry domain.VaultEntry
	var entityType string

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.ValueHash,
		&entry.TokenKey,
		&entityType,
		&entry.EncryptedValue,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVaultEntryNotFound
		}
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, failMsg)
	}

	entry.EntityType = domain.EntityType(entityType)
	return &entry, nil
}

// NewPostgreSQLVaultRepository creates a new PostgreSQL vault repository instance.
func NewPostgreSQLVaultRepository(db *sql.DB) *PostgreSQLVaultRepository {
	return &PostgreSQLVaultRepository{db: db}
}
