package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
)

// MasterSecretOptions describes where the master secret comes from.
type MasterSecretOptions struct {
	// Raw is the directly configured secret value (CHAT_MASTER_KEY).
	Raw string
	// KMSKeyURI, when set, selects the KMS keeper used to unwrap WrappedSecret.
	KMSKeyURI string
	// WrappedSecret is the base64 KMS-wrapped secret.
	WrappedSecret string
}

// MasterSecretLoader resolves the process master secret at startup.
//
// Resolution order: KMS-wrapped secret (when a key URI is configured), then the
// raw configured value, then an ephemeral random secret. The ephemeral path is
// a warned degraded mode, not a silent failure: everything encrypted under it
// is unrecoverable after a restart.
type MasterSecretLoader struct {
	kms    KMSService
	logger *slog.Logger
}

// NewMasterSecretLoader creates a loader with the given KMS service.
func NewMasterSecretLoader(kms KMSService, logger *slog.Logger) *MasterSecretLoader {
	return &MasterSecretLoader{kms: kms, logger: logger}
}

// Load resolves the master secret according to the options.
func (l *MasterSecretLoader) Load(
	ctx context.Context,
	opts MasterSecretOptions,
) (cryptoDomain.MasterSecret, error) {
	if opts.KMSKeyURI != "" && opts.WrappedSecret != "" {
		secret, err := l.loadFromKMS(ctx, opts.KMSKeyURI, opts.WrappedSecret)
		if err != nil {
			return cryptoDomain.MasterSecret{}, err
		}
		return secret, nil
	}

	if opts.Raw != "" {
		return cryptoDomain.ParseMasterSecret(opts.Raw)
	}

	l.logger.Warn(
		"master secret not configured, using a transient random key; " +
			"encrypted data will be unrecoverable after restart",
	)
	return cryptoDomain.NewEphemeralMasterSecret()
}

// loadFromKMS unwraps the base64 wrapped secret through the configured keeper.
func (l *MasterSecretLoader) loadFromKMS(
	ctx context.Context,
	keyURI, wrapped string,
) (cryptoDomain.MasterSecret, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return cryptoDomain.MasterSecret{}, fmt.Errorf("invalid wrapped master secret encoding: %w", err)
	}

	keeper, err := l.kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return cryptoDomain.MasterSecret{}, err
	}
	defer func() {
		if err := keeper.Close(); err != nil {
			l.logger.Warn("failed to close KMS keeper", slog.Any("error", err))
		}
	}()

	key, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return cryptoDomain.MasterSecret{}, fmt.Errorf("failed to unwrap master secret: %w", err)
	}

	return cryptoDomain.MasterSecret{Key: key}, nil
}
