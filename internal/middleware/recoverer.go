package middleware

import (
	"net/http"
	"runtime/debug"
	"mydaylogs/internal/logs"
	"mydaylogs/internal/models"
)

// Recoverer catches handler panics, logs the stack and returns a 500 in
// application/problem+json format.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				reqid := GetRequestID(r)
				logs.Logger.Errorf("panic: %v reqid=%s uri=%s method=%s\nstack:\n%s",
					rec, reqid, r.RequestURI, r.Method, string(debug.Stack()))
				models.WriteProblem(w, http.StatusInternalServerError,
					"Internal Server Error",
					"unexpected server error (see logs by reqid)", map[string]any{
						"reqid": reqid,
					})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
