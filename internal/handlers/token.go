package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "woomanager"

var ErrTokensDisabled = errors.New("API tokens are disabled: API_TOKEN_KEY is not set")

// TokenIssuer signs and verifies HS256 bearer tokens for the JSON API.
type TokenIssuer struct {
	key []byte
	now func() time.Time
}

// NewTokenIssuer returns nil when key is empty, which disables bearer auth.
func NewTokenIssuer(key []byte) *TokenIssuer {
	if len(key) == 0 {
		return nil
	}
	return &TokenIssuer{key: key, now: time.Now}
}

// Issue creates a token for username that expires after ttl.
func (t *TokenIssuer) Issue(username string, ttl time.Duration) (string, error) {
	if t == nil {
		return "", ErrTokensDisabled
	}
	if username == "" {
		return "", errors.New("username is required")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// Verify returns the username a valid token was issued for.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	if t == nil {
		return "", ErrTokensDisabled
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("invalid token: missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
