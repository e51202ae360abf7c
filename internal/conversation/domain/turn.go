// Package domain defines the conversation storage domain models: encrypted
// turns as persisted, and decrypted messages as presented to the chat runtime.
package domain

import (
	"time"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate checks if the role is a known conversation role.
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return ErrInvalidRole
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ContentUnavailable is the sentinel substituted for a turn whose stored
// payload can no longer be decrypted. It keeps history rendering functional
// while never exposing ciphertext or partial plaintext.
const ContentUnavailable = "[Encrypted Content Unavailable]"

// EncryptedTurn is one persisted conversation message. Content is opaque
// outside the application: only base64 ciphertext and nonce are stored.
// Turns are immutable once written; there is no update path.
type EncryptedTurn struct {
	ID         int64
	UserID     string
	Role       Role
	Ciphertext string
	Nonce      string
	Language   string
	// ChatID is set for assistant turns only; it groups an assistant reply
	// with delivery-side bookkeeping outside this layer.
	ChatID    *string
	CreatedAt time.Time
}

// Message is one decrypted turn in presentation order.
type Message struct {
	Role    Role
	Content string
}
