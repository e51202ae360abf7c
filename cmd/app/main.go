// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sakhi-health/chatvault/cmd/app/commands"
	cryptoService "github.com/sakhi-health/chatvault/internal/crypto/service"
)

func main() {
	cmd := &cli.Command{
		Name:    "chatvault",
		Usage:   "Privacy layer for conversational health assistants",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-master-secret",
				Usage: "Generate a new master secret for per-user key derivation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kms-provider",
						Usage: "KMS provider to wrap the secret with (e.g., gcpkms, awskms, localsecrets)",
					},
					&cli.StringFlag{
						Name:  "kms-key-uri",
						Usage: "KMS key URI (e.g., base64key://<32-byte-base64-key>)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateMasterSecret(
						ctx,
						cryptoService.NewKMSService(),
						os.Stdout,
						cmd.String("kms-provider"),
						cmd.String("kms-key-uri"),
					)
				},
			},
			{
				Name:  "seed-dictionary",
				Usage: "Pre-tokenize the medical vocabulary so every term has a stable token",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSeedDictionary(ctx)
				},
			},
			{
				Name:  "verify-roundtrip",
				Usage: "Append an encrypted probe message and verify it decrypts back exactly",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Value:   "roundtrip-probe",
						Usage:   "User ID to write the probe under",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunVerifyRoundtrip(ctx, os.Stdout, cmd.String("user"))
				},
			},
			{
				Name:  "chat",
				Usage: "Local terminal REPL showing masked/unmasked text for each message",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Value:   "local-user",
						Usage:   "Initial user ID for the session",
					},
					&cli.BoolFlag{
						Name:  "metrics",
						Usage: "Serve Prometheus metrics alongside the REPL",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunChat(ctx, commands.DefaultIO(), cmd.String("user"), cmd.Bool("metrics"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
