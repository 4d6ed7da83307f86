// Package middleware provides HTTP middleware for the admin debug surface.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/marmos91/sdbus/internal/adminapi"
)

// Context key type for storing claims.
type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext retrieves admin token claims from the request
// context. Returns nil if no claims are present (i.e. called outside of a
// route guarded by JWTAuth).
func GetClaimsFromContext(ctx context.Context) *adminapi.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*adminapi.Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// JWTAuth validates Bearer tokens in the Authorization header against
// tokens. On success, claims are stored in the request context; otherwise
// the request is rejected with 401.
func JWTAuth(tokens *adminapi.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
