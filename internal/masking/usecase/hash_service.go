package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SHA256HashService implements HashService with SHA-256 over the lowercased,
// trimmed value. Pure and stateless; the digest is the canonical lookup key
// for both vaults, so the normalization here is a compatibility constraint.
type SHA256HashService struct{}

// NewSHA256HashService creates a new hash service instance.
func NewSHA256HashService() *SHA256HashService {
	return &SHA256HashService{}
}

// Hash returns the hex digest of the normalized value.
func (s *SHA256HashService) Hash(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	digest := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(digest[:])
}
