package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
	cryptoService "github.com/sakhi-health/chatvault/internal/crypto/service"
)

// RunCreateMasterSecret generates a cryptographically secure 32-byte master
// secret for per-user key derivation. Key material is zeroed from memory after
// encoding.
//
// Without KMS flags the secret is printed as hex for direct use:
//   - CHAT_MASTER_KEY="<64-char-hex>"
//
// With both kmsProvider and kmsKeyURI set, the secret is wrapped by the KMS
// keeper before output and only the wrapped form is printed:
//   - KMS_WRAPPED_MASTER_KEY="<base64-kms-ciphertext>"
//   - KMS_PROVIDER="<provider>"
//   - KMS_KEY_URI="<uri>"
//
// Never use the localsecrets provider in production.
func RunCreateMasterSecret(
	ctx context.Context,
	kms cryptoService.KMSService,
	out io.Writer,
	kmsProvider, kmsKeyURI string,
) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf("--kms-provider and --kms-key-uri must be set together")
	}

	secret := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate master secret: %w", err)
	}
	defer cryptoDomain.Zero(secret)

	if kmsProvider == "" {
		fmt.Fprintln(out, "# Add to your environment:")
		fmt.Fprintf(out, "CHAT_MASTER_KEY=%q\n", hex.EncodeToString(secret))
		return nil
	}

	keeper, err := kms.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			fmt.Fprintf(out, "# Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	wrapped, err := keeper.Encrypt(ctx, secret)
	if err != nil {
		return fmt.Errorf("failed to wrap master secret: %w", err)
	}

	fmt.Fprintln(out, "# Add to your environment:")
	fmt.Fprintf(out, "KMS_WRAPPED_MASTER_KEY=%q\n", base64.StdEncoding.EncodeToString(wrapped))
	fmt.Fprintf(out, "KMS_PROVIDER=%q\n", kmsProvider)
	fmt.Fprintf(out, "KMS_KEY_URI=%q\n", kmsKeyURI)
	return nil
}
