package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakhi-health/chatvault/internal/app"
	maskingDomain "github.com/sakhi-health/chatvault/internal/masking/domain"
)

// RunSeedDictionary assigns a stable token to every term in the medical
// vocabulary so the global cache is warm from the first request. The operation
// is idempotent: terms that already have a token keep it.
func RunSeedDictionary(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	tokenVault, err := container.TokenVault()
	if err != nil {
		return fmt.Errorf("failed to initialize token vault: %w", err)
	}

	seeded := 0
	failed := 0
	for _, term := range maskingDomain.MedicalKeywords {
		token, err := tokenVault.TokenFor(ctx, term)
		if err != nil {
			return fmt.Errorf("failed to tokenize term: %w", err)
		}
		if token == maskingDomain.SentinelMedicalToken {
			failed++
			continue
		}
		seeded++
	}

	logger.Info("medical dictionary seeded",
		slog.Int("terms", seeded),
		slog.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("%d terms could not be assigned a token", failed)
	}
	return nil
}
