package jwtutil

import (
	"strings"
	"testing"
	"time"

	"genealogy-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	userID := uuid.New()
	token, err := GenerateToken("user@example.com", userID, "premium")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "premium", claims.AccountType)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestValidateToken_WrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "first-key", ExpirationHours: 1})
	token, err := GenerateToken("user@example.com", uuid.New(), "free")
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "second-key", ExpirationHours: 1})
	claims, err := ValidateToken(token)
	require.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateToken_Tampered(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
	token, err := GenerateToken("user@example.com", uuid.New(), "free")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	claims, err := ValidateToken(tampered)
	require.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateToken_Expired(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	now := time.Now()
	claims := UserClaims{
		Email:       "user@example.com",
		UserID:      uuid.New(),
		AccountType: "free",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	parsed, err := ValidateToken(signed)
	require.Error(t, err)
	assert.Nil(t, parsed)
}

func TestValidateToken_WrongSigningMethod(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	// alg "none" tokens must never validate
	token := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{
		Email:  "user@example.com",
		UserID: uuid.New(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parsed, err := ValidateToken(signed)
	require.Error(t, err)
	assert.Nil(t, parsed)
}
