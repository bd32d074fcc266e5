package auth

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Alice Example"))
	assert.ErrorIs(t, ValidateName("Al"), ErrInvalidName)
	assert.ErrorIs(t, ValidateName(strings.Repeat("a", 51)), ErrInvalidName)
	assert.NoError(t, ValidateName(strings.Repeat("a", 50)))
	assert.NoError(t, ValidateName(strings.Repeat("a", 5)))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateEmail(""), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateEmail("a b@example.com"), ErrInvalidEmail)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("12345678"))
	assert.ErrorIs(t, ValidatePassword("1234567"), ErrPasswordTooShort)
}

// Credential material must never serialize.
func TestAccountJSONOmitsSecrets(t *testing.T) {
	hash := "reset-hash"
	expiry := time.Now().Add(15 * time.Minute)
	account := Account{
		ID:               "acc-1",
		FullName:         "Alice Example",
		Email:            "alice@example.com",
		PasswordHash:     "$2a$10$hash",
		Role:             RoleUser,
		ResetTokenHash:   &hash,
		ResetTokenExpiry: &expiry,
	}

	data, err := json.Marshal(account)
	require.NoError(t, err)

	serialized := string(data)
	assert.NotContains(t, serialized, "$2a$10$hash")
	assert.NotContains(t, serialized, "reset-hash")
	assert.Contains(t, serialized, `"email":"alice@example.com"`)
}
