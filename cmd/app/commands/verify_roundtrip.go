package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/sakhi-health/chatvault/internal/app"
)

// RunVerifyRoundtrip appends an encrypted probe message for the given user,
// reads the history back, and verifies the decrypted content matches exactly.
// It exercises the full write and read path: key derivation, encryption,
// persistence, and decryption.
func RunVerifyRoundtrip(ctx context.Context, out io.Writer, userID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	conversation, err := container.ConversationUseCase(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize conversation use case: %w", err)
	}

	probe := fmt.Sprintf("encryption probe %s", time.Now().UTC().Format(time.RFC3339Nano))

	turn, err := conversation.AppendUserMessage(ctx, userID, probe, "en")
	if err != nil {
		return fmt.Errorf("failed to append probe message: %w", err)
	}

	if turn.Ciphertext == probe {
		return fmt.Errorf("probe message was stored as plaintext")
	}

	history, err := conversation.RecentHistory(ctx, userID, 1)
	if err != nil {
		return fmt.Errorf("failed to read history back: %w", err)
	}
	if len(history) != 1 {
		return fmt.Errorf("expected 1 history message, got %d", len(history))
	}
	if history[0].Content != probe {
		return fmt.Errorf("decrypted content does not match the probe")
	}

	color.New(color.FgGreen).Fprintln(out, "roundtrip verified: stored ciphertext decrypts to the exact probe")
	fmt.Fprintf(out, "user: %s, turn id: %d\n", userID, turn.ID)
	return nil
}
