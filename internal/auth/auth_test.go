package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLogin(t *testing.T) {
	a, err := NewAuthenticator(Config{
		Enabled:   true,
		Username:  "operator",
		Password:  "hunter2",
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, a.Enabled())

	token, err := a.Login("operator", "hunter2")
	require.NoError(t, err)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)

	_, err = a.Login("operator", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login("intruder", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithPreHashedPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
	require.NoError(t, err)

	a, err := NewAuthenticator(Config{
		Enabled:   true,
		Username:  "operator",
		Password:  string(hash),
		JWTSecret: "test-secret",
	})
	require.NoError(t, err)

	_, err = a.Login("operator", "hunter2")
	assert.NoError(t, err)
}

func TestDisabledAuthenticator(t *testing.T) {
	a, err := NewAuthenticator(Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, a.Enabled())

	_, err = a.Login("anyone", "anything")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestEnabledWithoutPassword(t *testing.T) {
	_, err := NewAuthenticator(Config{Enabled: true, Username: "operator"})
	assert.Error(t, err)
}
