package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sakhi-health/chatvault/internal/errors"
	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

// engineFixture wires a masking engine over in-memory stores so tests can
// inspect both the masked text and the rows behind it.
type engineFixture struct {
	dictRepo  *memDictionaryRepo
	vaultRepo *memVaultRepo
	tokens    TokenVault
	pii       PIIVault
	engine    MaskingEngine
}

func newTestEngine(t *testing.T, profiles staticProfiles) *engineFixture {
	t.Helper()

	dictRepo := newMemDictionaryRepo()
	vaultRepo := newMemVaultRepo()
	tokens := newTestTokenVault(t, dictRepo)
	pii := newTestPIIVault(t, vaultRepo)

	return &engineFixture{
		dictRepo:  dictRepo,
		vaultRepo: vaultRepo,
		tokens:    tokens,
		pii:       pii,
		engine:    NewMaskingEngine(tokens, pii, profiles, discardLogger()),
	}
}

func TestMaskingEngine_MaskHybrid(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_MasksMedicalAndDisplayName", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{"user-1": "Priya"})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "My name is Priya, I have PCOS")
		require.NoError(t, err)
		assert.Equal(t, "My name is {{PERSON_44bcff24}}, I have {{GMED_1}}", masked)
		assert.Equal(t, 1, fix.dictRepo.rowCount())
		assert.Equal(t, 1, fix.vaultRepo.rowCount())
	})

	t.Run("Success_SelfIntroductionWithoutProfile", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "i'm Meera and the pain is back")
		require.NoError(t, err)
		assert.Equal(t, "i'm {{PERSON_177b773d}} and the {{GMED_1}} is back", masked)
	})

	t.Run("Success_LowercaseContinuationIsNotAName", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "i am tired today")
		require.NoError(t, err)
		assert.Equal(t, "i am tired today", masked)
		assert.Equal(t, 0, fix.vaultRepo.rowCount())
	})

	t.Run("Success_PhoneAndEmail", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "Reach me on 9876543210 or priya@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Reach me on {{PHONE_7619ee8c}} or {{EMAIL_6bdb7e96}}", masked)
	})

	t.Run("Success_MultiWordTermIsOneToken", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "considering assisted reproduction next year")
		require.NoError(t, err)
		assert.Equal(t, "considering {{GMED_1}} next year", masked)
		assert.Equal(t, 1, fix.dictRepo.rowCount())
	})

	t.Run("Success_Idempotent", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{"user-1": "Priya"})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "My name is Priya, I have PCOS")
		require.NoError(t, err)

		again, err := fix.engine.MaskHybrid(ctx, "user-1", masked)
		require.NoError(t, err)
		assert.Equal(t, masked, again)
		assert.Equal(t, 1, fix.dictRepo.rowCount())
		assert.Equal(t, 1, fix.vaultRepo.rowCount())
	})

	t.Run("Success_ShortDisplayNameSkipped", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{"user-1": "Al"})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "Al will visit tomorrow")
		require.NoError(t, err)
		assert.Equal(t, "Al will visit tomorrow", masked)
	})

	t.Run("Success_EmptyText", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "")
		require.NoError(t, err)
		assert.Empty(t, masked)
	})

	t.Run("Error_EmptyUserID", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		_, err := fix.engine.MaskHybrid(ctx, "", "hello")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestMaskingEngine_Unmask(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FullRoundTrip", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{"user-1": "Priya"})
		original := "My name is Priya, I have PCOS"

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", original)
		require.NoError(t, err)
		require.NotEqual(t, original, masked)

		restored, err := fix.engine.UnmaskPII(ctx, "user-1", fix.engine.UnmaskMedicalOnly(masked))
		require.NoError(t, err)
		assert.Equal(t, original, restored)
	})

	t.Run("Success_MedicalOnlyLeavesIdentityTokens", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{"user-1": "Priya"})

		masked, err := fix.engine.MaskHybrid(ctx, "user-1", "Priya has PCOS")
		require.NoError(t, err)

		partial := fix.engine.UnmaskMedicalOnly(masked)
		assert.Equal(t, "{{PERSON_44bcff24}} has PCOS", partial)
	})

	t.Run("Success_NormalizesSpacedBraces", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		token, err := fix.pii.TokenFor(ctx, "user-1", "Priya", domain.EntityPerson)
		require.NoError(t, err)
		require.Equal(t, "{{PERSON_44bcff24}}", token)

		restored, err := fix.engine.UnmaskPII(ctx, "user-1", "Hello {{ PERSON_44bcff24 }}")
		require.NoError(t, err)
		assert.Equal(t, "Hello Priya", restored)
	})

	t.Run("Success_UnknownTokensLeftInPlace", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		restored, err := fix.engine.UnmaskPII(ctx, "user-1", "{{PERSON_deadbeef}} and {{FOO_abc}} say hi")
		require.NoError(t, err)
		assert.Equal(t, "{{PERSON_deadbeef}} and {{FOO_abc}} say hi", restored)
	})

	t.Run("Success_FallbackFetchRecoversFromLookupFailure", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		token, err := fix.pii.TokenFor(ctx, "user-1", "Priya", domain.EntityPerson)
		require.NoError(t, err)

		// Fresh vault with an empty cache, point lookups broken, full list intact.
		fix.vaultRepo.failGet = apperrors.Classify(apperrors.ErrPersistence, apperrors.New("store down"), "get failed")
		engine := NewMaskingEngine(
			fix.tokens,
			NewPIIVault(fix.vaultRepo, NewSHA256HashService(), testPassphraseCipher(t), 30*time.Minute, discardLogger()),
			staticProfiles{},
			discardLogger(),
		)

		restored, err := engine.UnmaskPII(ctx, "user-1", "Hello "+token)
		require.NoError(t, err)
		assert.Equal(t, "Hello Priya", restored)
	})

	t.Run("Isolation_OtherUserCannotUnmask", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		token, err := fix.pii.TokenFor(ctx, "user-a", "Priya", domain.EntityPerson)
		require.NoError(t, err)

		restored, err := fix.engine.UnmaskPII(ctx, "user-b", "Hello "+token)
		require.NoError(t, err)
		assert.Equal(t, "Hello "+token, restored)
	})

	t.Run("Error_EmptyUserID", func(t *testing.T) {
		fix := newTestEngine(t, staticProfiles{})

		_, err := fix.engine.UnmaskPII(ctx, "", "{{PERSON_44bcff24}}")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
