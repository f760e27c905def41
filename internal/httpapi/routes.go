package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the tenant API under /api behind session auth.
func RegisterRoutes(r *mux.Router, jwtSecret string, h *Handler) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(RequireSession(jwtSecret))

	api.HandleFunc("/subscription", h.Subscription).Methods(http.MethodGet)
	api.HandleFunc("/limits/check", h.CheckLimit).Methods(http.MethodGet)

	api.HandleFunc("/templates", requireAdmin(h.CreateTemplate)).Methods(http.MethodPost)
	api.HandleFunc("/templates", h.ListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates/{id}/deactivate", requireAdmin(h.DeactivateTemplate)).Methods(http.MethodPost)
	api.HandleFunc("/templates/{id}/assign", requireAdmin(h.AssignTemplate)).Methods(http.MethodPost)

	api.HandleFunc("/team/invites", requireAdmin(h.Invite)).Methods(http.MethodPost)
	api.HandleFunc("/team/{id}/role", requireAdmin(h.ChangeRole)).Methods(http.MethodPut)

	api.HandleFunc("/reports", h.SubmitReport).Methods(http.MethodPost)
	api.HandleFunc("/reports", h.ListReports).Methods(http.MethodGet)
}
