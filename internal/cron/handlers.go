package cron

import (
	"net/http"

	"github.com/gorilla/mux"

	"mydaylogs/internal/models"
)

type Handler struct {
	jobs *Jobs
}

// RegisterRoutes mounts the cron endpoints behind the shared secret.
func RegisterRoutes(r *mux.Router, secret string, jobs *Jobs) {
	h := &Handler{jobs: jobs}
	sub := r.PathPrefix("/api/cron").Subrouter()
	sub.Use(SharedSecretAuth(secret))
	sub.HandleFunc("/expire-trials", h.ExpireTrials).Methods(http.MethodGet)
	sub.HandleFunc("/cleanup", h.Cleanup).Methods(http.MethodGet)
	sub.HandleFunc("/resync", h.Resync).Methods(http.MethodGet)
}

func (h *Handler) ExpireTrials(w http.ResponseWriter, r *http.Request) {
	sum, err := h.jobs.ExpireTrials(r.Context())
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	sum, err := h.jobs.CleanupRetention(r.Context())
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	sum, err := h.jobs.ResyncAll(r.Context())
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, sum)
}
