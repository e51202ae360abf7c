package repository

import (
	"context"
	"database/sql"

	"github.com/sakhi-health/chatvault/internal/conversation/domain"
	"github.com/sakhi-health/chatvault/internal/database"
	apperrors "github.com/sakhi-health/chatvault/internal/errors"
)

// MySQLTurnRepository implements conversation turn persistence for MySQL databases.
type MySQLTurnRepository struct {
	db *sql.DB
}

// Create inserts a new encrypted turn and populates its generated ID.
func (m *MySQLTurnRepository) Create(ctx context.Context, turn *domain.EncryptedTurn) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sakhi_encrypted_chats (user_id, role, message_content, nonce, language, chat_id, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		turn.UserID,
		turn.Role.String(),
		turn.Ciphertext,
		turn.Nonce,
		turn.Language,
		turn.ChatID,
		turn.CreatedAt,
	)
	if err != nil {
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to create encrypted turn")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Classify(apperrors.ErrPersistence, err, "failed to get encrypted turn id")
	}
	turn.ID = id

	return nil
}

// RecentByUser retrieves the most recent turns for a user, newest first.
func (m *MySQLTurnRepository) RecentByUser(
	ctx context.Context,
	userID string,
	limit int,
) ([]*domain.EncryptedTurn, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, role, message_content, nonce, language, chat_id, created_at
			  FROM sakhi_encrypted_chats
			  WHERE user_id = ?
			  ORDER BY created_at DESC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, "failed to list encrypted turns")
	}
	defer func() {
		_ = rows.Close()
	}()

	var turns []*domain.EncryptedTurn
	for rows.Next() {
		var turn domain.EncryptedTurn
		var role string

		err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&role,
			&turn.Ciphertext,
			&turn.Nonce,
			&turn.Language,
			&turn.ChatID,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Classify(apperrors.ErrPersistence, err, "failed to scan encrypted turn")
		}

		turn.Role = domain.Role(role)
		turns = append(turns, &turn)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Classify(apperrors.ErrPersistence, err, "error iterating encrypted turns")
	}

	if turns == nil {
		turns = make([]*domain.EncryptedTurn, 0)
	}

	return turns, nil
}

// CountByUser returns the total number of stored turns for a user.
func (m *MySQLTurnRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM sakhi_encrypted_chats WHERE user_id = ?`

	var count int64
	err := querier.QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, apperrors.Classify(apperrors.ErrPersistence, err, "failed to count encrypted turns")
	}

	return count, nil
}

// NewMySQLTurnRepository creates a new MySQL turn repository instance.
func NewMySQLTurnRepository(db *sql.DB) *MySQLTurnRepository {
	return &MySQLTurnRepository{db: db}
}
