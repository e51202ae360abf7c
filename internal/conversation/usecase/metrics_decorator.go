package usecase

import (
	"context"
	"time"

	"github.com/sakhi-health/chatvault/internal/conversation/domain"
	"github.com/sakhi-health/chatvault/internal/metrics"
)

// conversationUseCaseWithMetrics decorates ConversationUseCase with metrics instrumentation.
type conversationUseCaseWithMetrics struct {
	next    ConversationUseCase
	metrics metrics.BusinessMetrics
}

// NewConversationUseCaseWithMetrics wraps a ConversationUseCase with metrics recording.
func NewConversationUseCaseWithMetrics(
	useCase ConversationUseCase,
	m metrics.BusinessMetrics,
) ConversationUseCase {
	return &conversationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// AppendUserMessage records metrics for user turn writes.
func (c *conversationUseCaseWithMetrics) AppendUserMessage(
	ctx context.Context,
	userID, content, language string,
) (*domain.EncryptedTurn, error) {
	start := time.Now()
	turn, err := c.next.AppendUserMessage(ctx, userID, content, language)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "conversation", "append_user_turn", status)
	c.metrics.RecordDuration(ctx, "conversation", "append_user_turn", time.Since(start), status)

	return turn, err
}

// AppendAssistantMessage records metrics for assistant turn writes.
func (c *conversationUseCaseWithMetrics) AppendAssistantMessage(
	ctx context.Context,
	userID, content, language string,
) (*domain.EncryptedTurn, error) {
	start := time.Now()
	turn, err := c.next.AppendAssistantMessage(ctx, userID, content, language)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "conversation", "append_assistant_turn", status)
	c.metrics.RecordDuration(ctx, "conversation", "append_assistant_turn", time.Since(start), status)

	return turn, err
}

// RecentHistory records metrics for history reads.
func (c *conversationUseCaseWithMetrics) RecentHistory(
	ctx context.Context,
	userID string,
	limit int,
) ([]domain.Message, error) {
	start := time.Now()
	messages, err := c.next.RecentHistory(ctx, userID, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "conversation", "recent_history", status)
	c.metrics.RecordDuration(ctx, "conversation", "recent_history", time.Since(start), status)

	return messages, err
}

// TurnCount records metrics for turn count reads.
func (c *conversationUseCaseWithMetrics) TurnCount(ctx context.Context, userID string) (int64, error) {
	start := time.Now()
	count, err := c.next.TurnCount(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "conversation", "turn_count", status)
	c.metrics.RecordDuration(ctx, "conversation", "turn_count", time.Since(start), status)

	return count, err
}
