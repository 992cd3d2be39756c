// Package server provides the HTTP control API for the booking engine.
package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// adminSubject is the only principal the control API knows; the engine is
// single-operator by design.
const adminSubject = "admin"

// JWTService provides token generation and validation for the control API.
type JWTService struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTService creates a JWT service signing with the given secret.
func NewJWTService(secret string, expiration time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &JWTService{secret: []byte(secret), expiration: expiration}, nil
}

// GenerateToken issues a token for the admin principal.
func (s *JWTService) GenerateToken() (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   adminSubject,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a token and returns its subject. Implements
// middleware.TokenValidator.
func (s *JWTService) ValidateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("token string is empty")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}
	return claims.Subject, nil
}
