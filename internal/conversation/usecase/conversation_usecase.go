package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakhi-health/chatvault/internal/conversation/domain"
	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
	cryptoService "github.com/sakhi-health/chatvault/internal/crypto/service"
)

// conversationUseCase implements the ConversationUseCase interface.
type conversationUseCase struct {
	turnRepo    TurnRepository
	keyDeriver  cryptoService.KeyDeriver
	cipher      cryptoService.MessageCipher
	fetchWindow int
	logger      *slog.Logger
}

// AppendUserMessage encrypts and stores a message authored by the user.
func (c *conversationUseCase) AppendUserMessage(
	ctx context.Context,
	userID, content, language string,
) (*domain.EncryptedTurn, error) {
	return c.appendTurn(ctx, userID, content, language, domain.RoleUser, nil)
}

// AppendAssistantMessage encrypts and stores an assistant reply with a fresh chat id.
func (c *conversationUseCase) AppendAssistantMessage(
	ctx context.Context,
	userID, content, language string,
) (*domain.EncryptedTurn, error) {
	chatID := uuid.NewString()
	return c.appendTurn(ctx, userID, content, language, domain.RoleAssistant, &chatID)
}

// appendTurn is a helper method that encrypts the content and persists the turn.
func (c *conversationUseCase) appendTurn(
	ctx context.Context,
	userID, content, language string,
	role domain.Role,
	chatID *string,
) (*domain.EncryptedTurn, error) {
	if userID == "" {
		return nil, domain.ErrEmptyUserID
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}

	key, err := c.keyDeriver.Derive(userID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	payload, err := c.cipher.Encrypt(key, content)
	if err != nil {
		return nil, err
	}

	turn := &domain.EncryptedTurn{
		UserID:     userID,
		Role:       role,
		Ciphertext: payload.Ciphertext,
		Nonce:      payload.Nonce,
		Language:   language,
		ChatID:     chatID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := c.turnRepo.Create(ctx, turn); err != nil {
		return nil, err
	}

	return turn, nil
}

// RecentHistory returns up to limit of the user's most recent messages in
// chronological order. The repository is always queried with the configured
// fetch window, never the caller's limit: the window caps how many rows one
// request can pull from the store, and the limit only truncates within it.
func (c *conversationUseCase) RecentHistory(
	ctx context.Context,
	userID string,
	limit int,
) ([]domain.Message, error) {
	if userID == "" {
		return nil, domain.ErrEmptyUserID
	}
	if limit <= 0 {
		return []domain.Message{}, nil
	}

	turns, err := c.turnRepo.RecentByUser(ctx, userID, c.fetchWindow)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return []domain.Message{}, nil
	}

	key, err := c.keyDeriver.Derive(userID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	// Turns arrive newest first; decrypt up to limit of them.
	if len(turns) > limit {
		turns = turns[:limit]
	}

	messages := make([]domain.Message, 0, len(turns))
	for _, turn := range turns {
		payload := cryptoDomain.EncryptedPayload{
			Ciphertext: turn.Ciphertext,
			Nonce:      turn.Nonce,
		}

		content, err := c.cipher.Decrypt(key, payload)
		if err != nil {
			// A turn that fails authentication stays in the history as a
			// placeholder; one corrupt row must not hide the rest.
			c.logger.Warn(
				"failed to decrypt stored turn",
				"turn_id", turn.ID,
				"role", turn.Role.String(),
			)
			content = domain.ContentUnavailable
		}

		messages = append(messages, domain.Message{
			Role:    turn.Role,
			Content: content,
		})
	}

	// Reverse into chronological order (oldest first).
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// TurnCount returns the total number of stored turns for a user.
func (c *conversationUseCase) TurnCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.ErrEmptyUserID
	}
	return c.turnRepo.CountByUser(ctx, userID)
}

// NewConversationUseCase creates a new conversation use case instance with the provided dependencies.
func NewConversationUseCase(
	turnRepo TurnRepository,
	keyDeriver cryptoService.KeyDeriver,
	cipher cryptoService.MessageCipher,
	fetchWindow int,
	logger *slog.Logger,
) ConversationUseCase {
	return &conversationUseCase{
		turnRepo:    turnRepo,
		keyDeriver:  keyDeriver,
		cipher:      cipher,
		fetchWindow: fetchWindow,
		logger:      logger,
	}
}
