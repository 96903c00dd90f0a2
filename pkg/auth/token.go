package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is used when no TTL is configured
	DefaultTokenTTL = 30 * time.Minute

	tokenIssuer = "bibliod"
)

// TokenCodec issues and verifies signed bearer tokens. Tokens are HS256 JWTs
// embedding the subject (username) and an absolute expiry; nothing is stored
// server-side.
type TokenCodec struct {
	key []byte
	ttl time.Duration
}

// NewTokenCodec creates a token codec with the given signing key and TTL.
// A ttl of 0 selects DefaultTokenTTL.
func NewTokenCodec(key string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{
		key: []byte(key),
		ttl: ttl,
	}
}

// Issue signs a token for the subject, expiring at now + TTL
func (c *TokenCodec) Issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the subject. It returns
// ErrExpiredToken when the token is past its expiry and ErrInvalidToken for
// any other failure (malformed structure, wrong signature, missing subject).
func (c *TokenCodec) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
