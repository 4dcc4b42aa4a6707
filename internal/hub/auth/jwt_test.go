package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("alice", secret, time.Hour)
	require.NoError(t, err)

	account, err := AccountFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", account)
}

func TestAccountFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = AccountFromToken(tok, secret)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccountFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	_, err = AccountFromToken(tok, []byte("wrong-secret"))
	assert.Error(t, err)
}

func TestAccountFromToken_NoSubject(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = AccountFromToken(tok, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccountFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := AccountFromToken("not.a.jwt", []byte("k"))
	assert.Error(t, err)
}
