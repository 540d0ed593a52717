package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("test-secret", time.Nanosecond)

	token, err := m.Generate("operator")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTWrongSecret(t *testing.T) {
	a := NewJWTManager("secret-a", time.Hour)
	b := NewJWTManager("secret-b", time.Hour)

	token, err := a.Generate("operator")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTGarbageToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	_, err := m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRandomSecretPerManager(t *testing.T) {
	a := NewJWTManager("", time.Hour)
	b := NewJWTManager("", time.Hour)

	token, err := a.Generate("operator")
	require.NoError(t, err)

	_, err = a.Verify(token)
	assert.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err, "random secrets differ between managers")
}
