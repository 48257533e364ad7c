package jwtutil

import (
	"errors"
	"time"

	"genealogy-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	secret     []byte
	expiration = 168 * time.Hour
)

// ErrAccountInactive is returned by callers performing the live account
// lookup, not by token parsing itself; it lives here so middleware and
// handlers agree on one sentinel.
var ErrAccountInactive = errors.New("account is inactive or no longer exists")

// UserClaims represents the JWT claims for an authenticated user
type UserClaims struct {
	Email       string    `json:"email"`
	UserID      uuid.UUID `json:"user_id"`
	AccountType string    `json:"account_type"`
	jwt.RegisteredClaims
}

// Initialize configures the signing key and token lifetime
func Initialize(cfg *config.JWTConfig) {
	secret = []byte(cfg.SigningKey)
	if cfg.ExpirationHours > 0 {
		expiration = time.Duration(cfg.ExpirationHours) * time.Hour
	}
}

// GenerateToken creates a JWT token carrying the user's identity fields
func GenerateToken(email string, userID uuid.UUID, accountType string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Email:       email,
		UserID:      userID,
		AccountType: accountType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
