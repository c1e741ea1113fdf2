package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	at := NewAuthToken("secret")
	token, err := at.GenerateToken("alice")
	require.NoError(t, err)

	user, err := at.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewAuthToken("secret").GenerateToken("alice")
	require.NoError(t, err)

	_, err = NewAuthToken("other").VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	at := NewAuthToken("secret").WithTTL(time.Minute)
	issued := time.Now().Add(-time.Hour)
	at.now = func() time.Time { return issued }
	token, err := at.GenerateToken("alice")
	require.NoError(t, err)

	at.now = time.Now
	_, err = at.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateRequiresSecretAndUser(t *testing.T) {
	_, err := NewAuthToken("").GenerateToken("alice")
	assert.Error(t, err)
	_, err = NewAuthToken("secret").GenerateToken("")
	assert.Error(t, err)
}
