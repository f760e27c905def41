package cron

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// SharedSecretAuth guards the cron endpoints: Authorization: Bearer <secret>.
// Fails closed when no secret is configured.
func SharedSecretAuth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"cron secret not configured"}`))
				return
			}
			const p = "Bearer "
			auth := r.Header.Get("Authorization")
			token := strings.TrimPrefix(auth, p)
			if !strings.HasPrefix(auth, p) ||
				subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
