// Package domain defines the masking domain models: placeholder tokens, the
// medical dictionary and PII vault entries, and the fixed medical vocabulary.
//
// Token wire format is `{{LABEL_SUFFIX}}` where LABEL is GMED for medical
// terms or one of PERSON, PHONE, EMAIL for identity spans. The format is a
// compatibility constraint: tokens already issued and persisted in provider
// transcripts must keep parsing.
package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MedicalLabel is the token label shared by all medical dictionary tokens.
const MedicalLabel = "GMED"

// SentinelMedicalToken is returned when the dictionary store fails during
// token assignment. It is never cached and never resolves to a term.
const SentinelMedicalToken = "{{GMED_0}}"

// PIISuffixLength is the number of leading value-hash hex characters used as
// a PII token suffix.
const PIISuffixLength = 8

// EntityType classifies a detected identity span.
type EntityType string

const (
	EntityPerson EntityType = "PERSON"
	EntityPhone  EntityType = "PHONE"
	EntityEmail  EntityType = "EMAIL"
)

// Validate checks if the entity type is a known identity class.
func (e EntityType) Validate() error {
	switch e {
	case EntityPerson, EntityPhone, EntityEmail:
		return nil
	default:
		return ErrInvalidEntityType
	}
}

// String returns the string representation of the entity type.
func (e EntityType) String() string {
	return string(e)
}

var (
	// tokenPattern matches a well-formed placeholder token.
	tokenPattern = regexp.MustCompile(`\{\{([A-Z]+)_([A-Za-z0-9]+)\}\}`)

	// sloppyTokenPattern additionally tolerates whitespace a text generator
	// may have introduced inside the braces or around the underscore.
	sloppyTokenPattern = regexp.MustCompile(`\{\{\s*([A-Z]+)\s*_\s*([A-Za-z0-9]+)\s*\}\}`)
)

// FormatToken renders a placeholder token from its label and suffix.
func FormatToken(label, suffix string) string {
	return fmt.Sprintf("{{%s_%s}}", label, suffix)
}

// MedicalToken builds the dictionary token for a row id.
func MedicalToken(id int64) string {
	return FormatToken(MedicalLabel, strconv.FormatInt(id, 10))
}

// PIIToken builds an identity token from the entity type and the value hash.
// The suffix is the hash prefix, so the token is a pure function of
// (entity type, value) and needs no allocated counter.
func PIIToken(entityType EntityType, valueHash string) string {
	suffix := valueHash
	if len(suffix) > PIISuffixLength {
		suffix = suffix[:PIISuffixLength]
	}
	return FormatToken(entityType.String(), suffix)
}

// ParseToken splits a well-formed token into label and suffix.
// Returns ok=false for anything that is not exactly one token.
func ParseToken(token string) (label, suffix string, ok bool) {
	m := tokenPattern.FindStringSubmatch(token)
	if m == nil || len(m[0]) != len(token) {
		return "", "", false
	}
	return m[1], m[2], true
}

// FindTokens returns every well-formed token occurring in text, in order.
func FindTokens(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// NormalizeTokenBraces collapses stray whitespace inside token braces so that
// tokens surviving a round trip through free-text generation match again.
// Text outside token spans is left untouched.
func NormalizeTokenBraces(text string) string {
	return sloppyTokenPattern.ReplaceAllString(text, "{{${1}_${2}}}")
}

// ReplaceOutsideTokens applies fn to every stretch of text between existing
// tokens and reassembles the result. Token spans pass through untouched, which
// keeps masking idempotent: detection never fires inside a placeholder that a
// previous pass already emitted.
func ReplaceOutsideTokens(text string, fn func(segment string) string) string {
	spans := tokenPattern.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return fn(text)
	}

	var b strings.Builder
	b.Grow(len(text))

	prev := 0
	for _, span := range spans {
		if span[0] > prev {
			b.WriteString(fn(text[prev:span[0]]))
		}
		b.WriteString(text[span[0]:span[1]])
		prev = span[1]
	}
	if prev < len(text) {
		b.WriteString(fn(text[prev:]))
	}

	return b.String()
}
