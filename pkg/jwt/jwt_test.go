package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	manager := NewManager("test-secret-key-that-is-long-enough", time.Hour)

	token, err := manager.Generate("alice@example,com", "alice@example.com", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example,com", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "Alice", claims.DisplayName)
	assert.NotEmpty(t, claims.ID, "token must carry a unique id")
}

func TestValidateExpiredToken(t *testing.T) {
	manager := NewManager("test-secret-key-that-is-long-enough", -time.Minute)

	token, err := manager.Generate("alice@example,com", "alice@example.com", "Alice")
	require.NoError(t, err)

	_, err = manager.Validate(token)
	assert.Error(t, err)
}

func TestValidateWrongSecret(t *testing.T) {
	manager := NewManager("secret-one-that-is-long-enough!!", time.Hour)
	other := NewManager("secret-two-that-is-long-enough!!", time.Hour)

	token, err := manager.Generate("alice@example,com", "alice@example.com", "Alice")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
	manager := NewManager("test-secret-key-that-is-long-enough", time.Hour)

	_, err := manager.Validate("definitely.not.a.jwt")
	assert.Error(t, err)
}
