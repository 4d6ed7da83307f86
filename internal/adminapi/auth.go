// Package adminapi exposes a read-only HTTP introspection surface over a
// running object-tree dispatch engine: the current Node Store as a tree
// (GET /debug/tree) and the vtables registered at a given path
// (GET /debug/vtables/{path}). It is strictly an operator debug side-channel
// distinct from the D-Bus wire transport the engine actually dispatches.
package adminapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors for admin token operations.
var (
	ErrInvalidToken        = errors.New("invalid admin token")
	ErrExpiredToken        = errors.New("admin token has expired")
	ErrInvalidSecretLength = errors.New("admin JWT signing key must be at least 32 characters")
)

// Claims identifies the operator a bearer token was issued to. There is no
// role hierarchy: any valid token grants full read access to the debug
// surface, matching the surface's narrow, read-only scope.
type Claims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

// TokenService issues and validates the HMAC bearer tokens that gate the
// admin HTTP surface, grounded on the teacher's control-plane JWT service
// but trimmed to a single token kind (no access/refresh pair, no roles).
type TokenService struct {
	signingKey string
	issuer     string
	ttl        time.Duration
}

// NewTokenService builds a TokenService from a signing key. Returns
// ErrInvalidSecretLength if the key is too short to be a safe HMAC secret.
func NewTokenService(signingKey string, ttl time.Duration) (*TokenService, error) {
	if len(signingKey) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{signingKey: signingKey, issuer: "sdbusd-adminapi", ttl: ttl}, nil
}

// IssueToken creates a bearer token for operator, valid for the service's
// configured TTL. Used by `sdbusctl login` and by operator tooling that
// mints its own tokens against a shared signing key.
func (s *TokenService) IssueToken(operator string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Operator: operator,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.signingKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies tokenString, returning its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.signingKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
