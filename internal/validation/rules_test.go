package validation

import (
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/sakhi-health/chatvault/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("non-nil error wraps ErrInvalidInput", func(t *testing.T) {
		err := WrapValidationError(assert.AnError)
		assert.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestNotBlank(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid string", "hello", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"tab and newline", "\t\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, NotBlank)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNoWhitespace(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"no surrounding whitespace", "user-1", false},
		{"leading whitespace", " user-1", true},
		{"trailing whitespace", "user-1 ", true},
		{"internal whitespace allowed", "user 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, NoWhitespace)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBase64(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"valid base64", "aGVsbG8=", false},
		{"empty string passes", "", false},
		{"invalid base64", "not base64!!", true},
		{"non-string value", 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, Base64)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
