package util

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseJWT(t *testing.T) {
	secret := "test-secret"
	tokenStr := signToken(t, secret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	userID, err := ParseJWT(tokenStr, secret)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	tokenStr := signToken(t, "right-secret", jwt.MapClaims{"user_id": 42})

	_, err := ParseJWT(tokenStr, "wrong-secret")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpiredToken(t *testing.T) {
	secret := "test-secret"
	tokenStr := signToken(t, secret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	_, err := ParseJWT(tokenStr, secret)
	assert.Error(t, err)
}

func TestParseJWTRequiresUserIDClaim(t *testing.T) {
	secret := "test-secret"
	tokenStr := signToken(t, secret, jwt.MapClaims{"sub": "someone"})

	_, err := ParseJWT(tokenStr, secret)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/insight/today", nil)
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", ExtractToken(r))

	r.Header.Set("Authorization", "bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", ExtractToken(r), "scheme match is case insensitive")

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "Bearer")
	assert.Empty(t, ExtractToken(r))
}
