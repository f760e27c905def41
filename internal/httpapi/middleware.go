// Package httpapi is the tenant-facing REST surface: session-guarded
// endpoints for templates, team management, report submission, and
// subscription status.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"mydaylogs/internal/models"
	"mydaylogs/internal/session"
)

type ctxKey string

const claimsKey ctxKey = "session-claims"

// RequireSession validates the Authorization bearer token and stashes the
// claims for handlers downstream.
func RequireSession(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				models.WriteProblem(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
				return
			}
			claims, err := session.Parse(jwtSecret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				models.WriteProblem(w, http.StatusUnauthorized, "unauthorized", "invalid session token", nil)
				return
			}
			if claims.OrganizationID == "" {
				models.WriteProblem(w, http.StatusForbidden, "forbidden", "token carries no organization", nil)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the session claims put there by RequireSession. Handlers
// behind the middleware can assume it is present.
func Claims(r *http.Request) *session.Claims {
	c, _ := r.Context().Value(claimsKey).(*session.Claims)
	return c
}

func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := Claims(r)
		if c == nil || !c.Role.IsAdmin() {
			models.WriteProblem(w, http.StatusForbidden, "forbidden", "admin role required", nil)
			return
		}
		next(w, r)
	}
}
