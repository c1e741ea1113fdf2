// Package auth signs and verifies the bearer tokens that identify the acting
// user. Issuing tokens to end users is left to an external identity service;
// GenerateToken exists for development and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthToken signs and verifies HS256 tokens carrying the user id in "sub".
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthToken(secretKey string) *AuthToken {
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       time.Hour,
		now:       time.Now,
	}
}

// WithTTL allows customising the expiration duration.
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

// GenerateToken issues a token for userID.
func (at *AuthToken) GenerateToken(userID string) (string, error) {
	if at == nil || len(at.secretKey) == 0 {
		return "", errors.New("auth token secret is empty")
	}
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := at.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates the token and returns its subject.
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if at == nil || len(at.secretKey) == 0 {
		return "", errors.New("auth token secret is empty")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	}, jwt.WithTimeFunc(at.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
