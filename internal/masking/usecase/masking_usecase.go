package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/sakhi-health/chatvault/internal/masking/domain"
)

var (
	// phonePattern matches phone-number-shaped digit runs: an optional plus,
	// then 10 to 14 digits allowing single space or dash separators.
	phonePattern = regexp.MustCompile(`\+?\d(?:[\s\-]?\d){9,13}`)

	// emailPattern matches email-shaped strings.
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// selfIntroPattern matches self-introduction phrases and captures the
	// capitalized name that follows. The phrase match is case-insensitive but
	// the name itself must be capitalized, which keeps ordinary sentence
	// continuations ("i am tired") out.
	selfIntroPattern = regexp.MustCompile(`(?i:my name is|i am|i'm|call me)\s+([A-Z][a-zA-Z]+)`)
)

// maskingEngine implements the MaskingEngine interface.
type maskingEngine struct {
	tokenVault TokenVault
	piiVault   PIIVault
	profiles   ProfileDirectory
	logger     *slog.Logger

	// medicalPattern is built once from the fixed vocabulary, longest term
	// first so multi-word terms are never shadowed by their substrings.
	medicalPattern *regexp.Regexp
}

// buildMedicalPattern compiles the vocabulary into one case-insensitive,
// word-bounded alternation ordered longest-first.
func buildMedicalPattern(keywords []string) *regexp.Regexp {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	quoted := make([]string, len(sorted))
	for i, kw := range sorted {
		quoted[i] = regexp.QuoteMeta(kw)
	}

	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// MaskHybrid substitutes medical vocabulary first, then identity spans.
func (e *maskingEngine) MaskHybrid(ctx context.Context, userID, text string) (string, error) {
	if userID == "" {
		return "", domain.ErrEmptyUserID
	}
	if text == "" {
		return "", nil
	}

	masked := e.maskMedical(ctx, text)
	return e.maskIdentity(ctx, userID, masked)
}

// maskMedical replaces every known medical term outside existing token spans.
func (e *maskingEngine) maskMedical(ctx context.Context, text string) string {
	return domain.ReplaceOutsideTokens(text, func(segment string) string {
		return e.medicalPattern.ReplaceAllStringFunc(segment, func(term string) string {
			token, err := e.tokenVault.TokenFor(ctx, term)
			if err != nil {
				// Invalid-input errors cannot occur for a non-empty regex
				// match; store failures already degrade inside the vault.
				e.logger.Warn("medical token lookup failed", "error", err)
				return term
			}
			return token
		})
	})
}

// maskIdentity applies the fixed identity rule set in order: display name,
// phone shapes, email shapes, self-introduction patterns.
func (e *maskingEngine) maskIdentity(ctx context.Context, userID, text string) (string, error) {
	text = e.maskDisplayName(ctx, userID, text)
	text = e.maskSpans(ctx, userID, text, phonePattern, domain.EntityPhone)
	text = e.maskSpans(ctx, userID, text, emailPattern, domain.EntityEmail)
	text = e.maskSelfIntroductions(ctx, userID, text)
	return text, nil
}

// maskDisplayName replaces exact occurrences of the user's on-file display
// name. Names of one or two characters are skipped to avoid false positives.
func (e *maskingEngine) maskDisplayName(ctx context.Context, userID, text string) string {
	name, err := e.profiles.DisplayName(ctx, userID)
	if err != nil {
		e.logger.Warn("profile lookup failed, skipping display name masking", "error", err)
		return text
	}

	name = strings.TrimSpace(name)
	if len(name) <= 2 {
		return text
	}

	namePattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		e.logger.Warn("display name not maskable", "error", err)
		return text
	}

	return e.maskSpans(ctx, userID, text, namePattern, domain.EntityPerson)
}

// maskSpans replaces every pattern match outside existing token spans with
// that span's vault token.
func (e *maskingEngine) maskSpans(
	ctx context.Context,
	userID, text string,
	pattern *regexp.Regexp,
	entityType domain.EntityType,
) string {
	return domain.ReplaceOutsideTokens(text, func(segment string) string {
		return pattern.ReplaceAllStringFunc(segment, func(value string) string {
			token, err := e.piiVault.TokenFor(ctx, userID, value, entityType)
			if err != nil {
				e.logger.Warn("identity token lookup failed", "entity_type", entityType.String(), "error", err)
				return value
			}
			return token
		})
	})
}

// maskSelfIntroductions replaces the captured name in self-introduction
// phrases, keeping the phrase itself intact.
func (e *maskingEngine) maskSelfIntroductions(ctx context.Context, userID, text string) string {
	return domain.ReplaceOutsideTokens(text, func(segment string) string {
		matches := selfIntroPattern.FindAllStringSubmatchIndex(segment, -1)
		if len(matches) == 0 {
			return segment
		}

		var b strings.Builder
		b.Grow(len(segment))

		prev := 0
		for _, m := range matches {
			nameStart, nameEnd := m[2], m[3]
			name := segment[nameStart:nameEnd]

			token, err := e.piiVault.TokenFor(ctx, userID, name, domain.EntityPerson)
			if err != nil {
				e.logger.Warn("identity token lookup failed", "entity_type", domain.EntityPerson.String(), "error", err)
				b.WriteString(segment[prev:nameEnd])
				prev = nameEnd
				continue
			}

			b.WriteString(segment[prev:nameStart])
			b.WriteString(token)
			prev = nameEnd
		}
		b.WriteString(segment[prev:])

		return b.String()
	})
}

// UnmaskMedicalOnly restores medical tokens from the preloaded cache.
// Unknown tokens are left untouched.
func (e *maskingEngine) UnmaskMedicalOnly(text string) string {
	text = domain.NormalizeTokenBraces(text)

	for _, token := range domain.FindTokens(text) {
		label, _, ok := domain.ParseToken(token)
		if !ok || label != domain.MedicalLabel {
			continue
		}

		if term, ok := e.tokenVault.Resolve(token); ok {
			text = strings.ReplaceAll(text, token, term)
		}
	}

	return text
}

// UnmaskPII restores identity tokens for that user only.
func (e *maskingEngine) UnmaskPII(ctx context.Context, userID, text string) (string, error) {
	if userID == "" {
		return "", domain.ErrEmptyUserID
	}

	text = domain.NormalizeTokenBraces(text)

	resolved := make(map[string]string)
	var unresolved []string

	for _, token := range domain.FindTokens(text) {
		label, _, ok := domain.ParseToken(token)
		if !ok || label == domain.MedicalLabel {
			continue
		}
		if err := domain.EntityType(label).Validate(); err != nil {
			continue
		}
		if _, done := resolved[token]; done {
			continue
		}

		value, err := e.piiVault.Resolve(ctx, userID, token)
		if err != nil {
			unresolved = append(unresolved, token)
			continue
		}
		resolved[token] = value
	}

	// Bounded last-resort recovery: one full-vault fetch, then give up and
	// leave whatever still fails to resolve in place.
	if len(unresolved) > 0 {
		values, err := e.piiVault.EntriesByUser(ctx, userID)
		if err != nil {
			e.logger.Warn("vault fallback fetch failed", "unresolved_tokens", len(unresolved), "error", err)
		} else {
			remaining := unresolved[:0]
			for _, token := range unresolved {
				if value, ok := values[token]; ok {
					resolved[token] = value
				} else {
					remaining = append(remaining, token)
				}
			}
			for _, token := range remaining {
				e.logger.Warn("identity token left unresolved", "token", token)
			}
		}
	}

	for token, value := range resolved {
		text = strings.ReplaceAll(text, token, value)
	}

	return text, nil
}

// NewMaskingEngine creates a new masking engine instance with the provided dependencies.
func NewMaskingEngine(
	tokenVault TokenVault,
	piiVault PIIVault,
	profiles ProfileDirectory,
	logger *slog.Logger,
) MaskingEngine {
	return &maskingEngine{
		tokenVault:     tokenVault,
		piiVault:       piiVault,
		profiles:       profiles,
		logger:         logger,
		medicalPattern: buildMedicalPattern(domain.MedicalKeywords),
	}
}
