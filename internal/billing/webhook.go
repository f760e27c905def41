package billing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82/webhook"

	"mydaylogs/internal/logs"
	"mydaylogs/internal/models"
)

const webhookBodyLimit = 1 << 20 // 1 MiB

// OrgSyncer triggers reconciliation for one organization. Satisfied by
// controller.Reconciler.
type OrgSyncer interface {
	SyncOrganization(ctx context.Context, orgID, userEmail, trigger string) (*models.Subscription, BindingMethod, error)
}

// WebhookHandler verifies Stripe signatures and turns subscription lifecycle
// events into reconciliation runs. Event payloads are decoded into a minimal
// local shape; the reconciler re-fetches authoritative state itself.
type WebhookHandler struct {
	secret string
	syncer OrgSyncer
}

func NewWebhookHandler(secret string, syncer OrgSyncer) *WebhookHandler {
	return &WebhookHandler{secret: secret, syncer: syncer}
}

type eventSubscription struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

type eventCheckoutSession struct {
	ID              string `json:"id"`
	Customer        string `json:"customer"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.secret) == "" {
		writeError(w, http.StatusServiceUnavailable, "webhook secret not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sig) == "" {
		writeError(w, http.StatusBadRequest, "missing Stripe signature")
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, sig, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid Stripe signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session eventCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			writeError(w, http.StatusBadRequest, "decode checkout.session failed")
			return
		}
		email := session.CustomerEmail
		if email == "" {
			email = session.CustomerDetails.Email
		}
		h.sync(w, r, session.Metadata[MetadataOrgKey], email, string(event.Type))

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub eventSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			writeError(w, http.StatusBadRequest, "decode subscription failed")
			return
		}
		h.sync(w, r, sub.Metadata[MetadataOrgKey], "", string(event.Type))

	default:
		logs.Logger.Debugf("billing: webhook ignored (type=%s id=%s)", event.Type, event.ID)
		models.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func (h *WebhookHandler) sync(w http.ResponseWriter, r *http.Request, orgID, email, eventType string) {
	if orgID == "" {
		// Nothing to bind to; ack so the provider does not retry forever.
		logs.Logger.Warnf("billing: webhook %s without %s metadata", eventType, MetadataOrgKey)
		models.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	if _, _, err := h.syncer.SyncOrganization(r.Context(), orgID, email, models.TriggerWebhook); err != nil {
		logs.Logger.Errorf("billing: webhook sync failed (org=%s type=%s): %v", orgID, eventType, err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	models.WriteJSON(w, status, map[string]string{"error": msg})
}
