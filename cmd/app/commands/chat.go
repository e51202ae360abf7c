package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/sakhi-health/chatvault/internal/app"
	conversationUsecase "github.com/sakhi-health/chatvault/internal/conversation/usecase"
	maskingUsecase "github.com/sakhi-health/chatvault/internal/masking/usecase"
)

const chatHelp = `Commands:
  /user <id>      switch the active user
  /name <name>    set the active user's display name
  /history [n]    show the last n decrypted messages (default 10)
  /count          show the total number of stored turns
  /help           show this help
  /quit           exit

Anything else is treated as a message: it is masked, stored encrypted,
and the round-tripped unmasked text is shown back.`

// chatSession holds the REPL state and the wired privacy layer.
type chatSession struct {
	userID       string
	conversation conversationUsecase.ConversationUseCase
	engine       maskingUsecase.MaskingEngine
	profiles     *maskingUsecase.InMemoryProfileDirectory
	out          *bufio.Writer

	labelColor  *color.Color
	maskedColor *color.Color
	replyColor  *color.Color
	errorColor  *color.Color
}

// RunChat starts a local terminal REPL. For each input line it shows the
// masked text an external provider would receive and the round-tripped
// unmasked text, persisting encrypted turns along the way. With metrics
// enabled a Prometheus endpoint is served alongside.
func RunChat(ctx context.Context, io IOTuple, userID string, serveMetrics bool) error {
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

	engine, err := container.MaskingEngine(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize masking engine: %w", err)
	}

	if serveMetrics {
		metricsServer, err := container.MetricsServer()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics server: %w", err)
		}
		if metricsServer != nil {
			go func() {
				if err := metricsServer.Start(ctx); err != nil {
					logger.Error("metrics server error", slog.Any("error", err))
				}
			}()
		}
	}

	session := &chatSession{
		userID:       userID,
		conversation: conversation,
		engine:       engine,
		profiles:     container.ProfileDirectory(),
		out:          bufio.NewWriter(io.Writer),
		labelColor:   color.New(color.FgCyan, color.Bold),
		maskedColor:  color.New(color.FgYellow),
		replyColor:   color.New(color.FgGreen),
		errorColor:   color.New(color.FgRed),
	}

	session.printf("chatvault REPL, active user %q\n%s\n\n", userID, chatHelp)

	scanner := bufio.NewScanner(io.Reader)
	for {
		session.printf("> ")
		session.flush()

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := session.handleCommand(ctx, line); quit {
				break
			}
			continue
		}

		session.handleMessage(ctx, line)
	}

	session.flush()
	return scanner.Err()
}

// handleCommand processes a slash command. Returns true when the session
// should end.
func (s *chatSession) handleCommand(ctx context.Context, line string) bool {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/quit", "/exit":
		s.printf("bye\n")
		return true

	case "/help":
		s.printf("%s\n", chatHelp)

	case "/user":
		if arg == "" {
			s.errorf("usage: /user <id>\n")
			return false
		}
		s.userID = arg
		s.printf("active user is now %q\n", arg)

	case "/name":
		if arg == "" {
			s.errorf("usage: /name <display name>\n")
			return false
		}
		s.profiles.SetDisplayName(s.userID, arg)
		s.printf("display name set\n")

	case "/history":
		limit := 10
		if arg != "" {
			parsed, err := strconv.Atoi(arg)
			if err != nil || parsed <= 0 {
				s.errorf("usage: /history [n]\n")
				return false
			}
			limit = parsed
		}
		s.showHistory(ctx, limit)

	case "/count":
		count, err := s.conversation.TurnCount(ctx, s.userID)
		if err != nil {
			s.errorf("failed to count turns: %v\n", err)
			return false
		}
		s.printf("%d stored turns for %q\n", count, s.userID)

	default:
		s.errorf("unknown command %q, try /help\n", command)
	}

	return false
}

// handleMessage runs one message through the full privacy pipeline: mask,
// persist encrypted, unmask, and persist the simulated reply.
func (s *chatSession) handleMessage(ctx context.Context, text string) {
	masked, err := s.engine.MaskHybrid(ctx, s.userID, text)
	if err != nil {
		s.errorf("masking failed: %v\n", err)
		return
	}

	if _, err := s.conversation.AppendUserMessage(ctx, s.userID, text, "en"); err != nil {
		s.errorf("failed to store message: %v\n", err)
		return
	}

	s.labelColor.Fprint(s.out, "masked  ")
	s.maskedColor.Fprintf(s.out, "%s\n", masked)

	// No provider is attached, so the provider's reply is simulated by echoing
	// the masked text back through the unmask path.
	restored, err := s.engine.UnmaskPII(ctx, s.userID, s.engine.UnmaskMedicalOnly(masked))
	if err != nil {
		s.errorf("unmasking failed: %v\n", err)
		return
	}

	if _, err := s.conversation.AppendAssistantMessage(ctx, s.userID, restored, "en"); err != nil {
		s.errorf("failed to store reply: %v\n", err)
		return
	}

	s.labelColor.Fprint(s.out, "restored ")
	s.replyColor.Fprintf(s.out, "%s\n", restored)
}

// showHistory prints the user's recent decrypted messages oldest first.
func (s *chatSession) showHistory(ctx context.Context, limit int) {
	messages, err := s.conversation.RecentHistory(ctx, s.userID, limit)
	if err != nil {
		s.errorf("failed to read history: %v\n", err)
		return
	}
	if len(messages) == 0 {
		s.printf("no history for %q\n", s.userID)
		return
	}

	for _, message := range messages {
		s.labelColor.Fprintf(s.out, "%-9s ", message.Role)
		s.printf("%s\n", message.Content)
	}
}

func (s *chatSession) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *chatSession) errorf(format string, args ...any) {
	s.errorColor.Fprintf(s.out, format, args...)
}

func (s *chatSession) flush() {
	_ = s.out.Flush()
}
