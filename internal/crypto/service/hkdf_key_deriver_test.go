package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
)

func testMasterSecret() cryptoDomain.MasterSecret {
	return cryptoDomain.MasterSecret{Key: []byte("test-master-secret-material")}
}

func TestHKDFKeyDeriver_Derive(t *testing.T) {
	deriver := NewHKDFKeyDeriver(testMasterSecret())

	t.Run("returns a 32-byte key", func(t *testing.T) {
		key, err := deriver.Derive("user-1")
		require.NoError(t, err)
		assert.Len(t, key, cryptoDomain.KeySize)
	})

	t.Run("deterministic for the same user", func(t *testing.T) {
		first, err := deriver.Derive("user-1")
		require.NoError(t, err)
		second, err := deriver.Derive("user-1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("different users get different keys", func(t *testing.T) {
		a, err := deriver.Derive("user-a")
		require.NoError(t, err)
		b, err := deriver.Derive("user-b")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("different master secrets give different keys", func(t *testing.T) {
		other := NewHKDFKeyDeriver(cryptoDomain.MasterSecret{Key: []byte("another-secret")})
		a, err := deriver.Derive("user-1")
		require.NoError(t, err)
		b, err := other.Derive("user-1")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty user id is rejected", func(t *testing.T) {
		_, err := deriver.Derive("")
		assert.ErrorIs(t, err, cryptoDomain.ErrEmptyUserID)
	})
}
