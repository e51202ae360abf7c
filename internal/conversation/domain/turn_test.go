package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Validate(t *testing.T) {
	tests := []struct {
		name        string
		role        Role
		expectError bool
	}{
		{
			name:        "Valid_User",
			role:        RoleUser,
			expectError: false,
		},
		{
			name:        "Valid_Assistant",
			role:        RoleAssistant,
			expectError: false,
		},
		{
			name:        "Invalid_System",
			role:        Role("system"),
			expectError: true,
		},
		{
			name:        "Invalid_Empty",
			role:        Role(""),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.role.Validate()
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidRole)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "user", RoleUser.String())
	assert.Equal(t, "assistant", RoleAssistant.String())
}
