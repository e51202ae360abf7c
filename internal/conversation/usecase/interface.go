// Package usecase defines the interfaces and implementations for encrypted
// conversation storage. Use cases orchestrate key derivation, message
// encryption, and turn persistence so that plaintext never reaches the
// repository layer.
package usecase

import (
	"context"

	"github.com/sakhi-health/chatvault/internal/conversation/domain"
)

// TurnRepository defines the interface for encrypted turn persistence operations.
type TurnRepository interface {
	Create(ctx context.Context, turn *domain.EncryptedTurn) error
	RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.EncryptedTurn, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// ConversationUseCase defines the interface for encrypted conversation business logic.
type ConversationUseCase interface {
	// AppendUserMessage encrypts and stores a message authored by the user.
	AppendUserMessage(ctx context.Context, userID, content, language string) (*domain.EncryptedTurn, error)
	// AppendAssistantMessage encrypts and stores an assistant reply, assigning
	// it a fresh chat id.
	AppendAssistantMessage(ctx context.Context, userID, content, language string) (*domain.EncryptedTurn, error)
	// RecentHistory returns up to limit of the user's most recent messages in
	// chronological order (oldest first). Turns that can no longer be
	// decrypted are substituted with domain.ContentUnavailable rather than
	// failing the whole read.
	RecentHistory(ctx context.Context, userID string, limit int) ([]domain.Message, error)
	// TurnCount returns the total number of stored turns for a user.
	TurnCount(ctx context.Context, userID string) (int64, error)
}
