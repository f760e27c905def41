package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"mydaylogs/internal/billing"
	"mydaylogs/internal/models"
	"mydaylogs/internal/plan"
	"mydaylogs/internal/repo"
)

type ctxKey string

const identityKey ctxKey = "admin-identity"

type Handler struct {
	d         Dependencies
	dashboard *dashboard
}

func (h *Handler) requireMasterAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.d.Auth.RequireMasterAdmin(r)
		if err != nil {
			models.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "master admin access required"})
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identity(r *http.Request) *Identity {
	if id, ok := r.Context().Value(identityKey).(*Identity); ok {
		return id
	}
	return &Identity{Email: "unknown"}
}

// ForceSync handles POST /orgs/{id}/sync: a forced reconciliation run.
func (h *Handler) ForceSync(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	if _, err := h.d.Orgs.Get(r.Context(), orgID); err != nil {
		h.orgError(w, err)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	email := req.Email
	if email == "" {
		email, _ = h.d.Orgs.FirstAdminEmail(r.Context(), orgID)
	}

	sub, method, err := h.d.Rec.SyncOrganization(r.Context(), orgID, email, models.TriggerManual)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"binding_method": method,
		"subscription":   sub,
	})
}

// SetQuota handles PUT /orgs/{id}/quota: per-org limit overrides.
func (h *Handler) SetQuota(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	var req struct {
		TemplateLimit      *int `json:"template_limit"`
		TeamLimit          *int `json:"team_limit"`
		ManagerLimit       *int `json:"manager_limit"`
		MonthlySubmissions *int `json:"monthly_submissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	org, err := h.d.Orgs.SetOverrides(r.Context(), orgID, repo.Overrides{
		TemplateLimit:      req.TemplateLimit,
		TeamLimit:          req.TeamLimit,
		ManagerLimit:       req.ManagerLimit,
		MonthlySubmissions: req.MonthlySubmissions,
	})
	if err != nil {
		h.orgError(w, err)
		return
	}
	h.audit(r, orgID, "quota_override", map[string]any{
		"template_limit":      req.TemplateLimit,
		"team_limit":          req.TeamLimit,
		"manager_limit":       req.ManagerLimit,
		"monthly_submissions": req.MonthlySubmissions,
	})
	models.WriteJSON(w, http.StatusOK, map[string]any{"organization": org})
}

// ClearQuota handles DELETE /orgs/{id}/quota: back to plan defaults.
func (h *Handler) ClearQuota(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	if err := h.d.Orgs.ClearOverrides(r.Context(), orgID); err != nil {
		h.orgError(w, err)
		return
	}
	h.audit(r, orgID, "quota_cleared", nil)
	models.WriteJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// GrantTrial creates a local trial subscription. Trials granted here are
// not bound to the payments provider, so reconciliation runs that find
// nothing remotely leave them alone.
func (h *Handler) GrantTrial(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	if _, err := h.d.Orgs.Get(r.Context(), orgID); err != nil {
		h.orgError(w, err)
		return
	}

	var req struct {
		Plan string `json:"plan"`
		Days int    `json:"days"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Plan == "" {
		req.Plan = plan.Growth
	}
	if !plan.Known(req.Plan) {
		models.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown plan: " + req.Plan})
		return
	}
	days := req.Days
	if days <= 0 {
		days = h.d.TrialDays
	}
	if days <= 0 {
		days = 14
	}

	if live, err := h.d.Subs.GetLive(r.Context(), orgID); err == nil && live != nil {
		models.WriteJSON(w, http.StatusConflict, map[string]string{"error": "organization already has a live subscription"})
		return
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	ends := now.AddDate(0, 0, days)
	sub := &models.Subscription{
		OrganizationID:     orgID,
		PlanName:           req.Plan,
		Status:             models.SubStatusTrialing,
		IsTrial:            true,
		TrialEndsAt:        &ends,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &ends,
	}
	if err := h.d.Subs.Create(r.Context(), sub); err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.audit(r, orgID, "trial_granted", map[string]any{
		"plan":          req.Plan,
		"days":          days,
		"trial_ends_at": ends,
	})
	models.WriteJSON(w, http.StatusCreated, map[string]any{"subscription": sub})
}

// Cancel cancels at the provider, then re-applies the returned remote
// state locally.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	var req struct {
		AtPeriodEnd bool `json:"at_period_end"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	local, err := h.d.Subs.GetLive(r.Context(), orgID)
	if err != nil {
		h.orgError(w, err)
		return
	}
	if local.StripeSubscriptionID == "" {
		models.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "subscription is not bound to the payments provider"})
		return
	}

	remote, err := h.d.Billing.CancelSubscription(r.Context(), local.StripeSubscriptionID, req.AtPeriodEnd)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sub, err := h.d.Rec.Apply(r.Context(), orgID,
		billing.Lookup{Method: billing.BindingMetadata, Subscription: remote},
		models.TriggerManual, identity(r).Email)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

// ChangePlan swaps the provider price. Proration is the provider's
// problem.
func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	var req struct {
		PriceID string `json:"price_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PriceID == "" {
		models.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "price_id required"})
		return
	}

	local, err := h.d.Subs.GetLive(r.Context(), orgID)
	if err != nil {
		h.orgError(w, err)
		return
	}
	if local.StripeSubscriptionID == "" {
		models.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "subscription is not bound to the payments provider"})
		return
	}

	remote, err := h.d.Billing.ChangePrice(r.Context(), local.StripeSubscriptionID, req.PriceID)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sub, err := h.d.Rec.Apply(r.Context(), orgID,
		billing.Lookup{Method: billing.BindingMetadata, Subscription: remote},
		models.TriggerManual, identity(r).Email)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

// Refund refunds a specific payment.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID  string `json:"organization_id"`
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentIntentID == "" {
		models.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_intent_id required"})
		return
	}

	refundID, err := h.d.Billing.RefundPayment(r.Context(), req.PaymentIntentID)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.audit(r, req.OrganizationID, "refund_issued", map[string]any{
		"payment_intent_id": req.PaymentIntentID,
		"refund_id":         refundID,
	})
	models.WriteJSON(w, http.StatusOK, map[string]any{"refund_id": refundID})
}

// Archive renames the organization out of the active namespace; rows are
// never deleted.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	org, err := h.d.Orgs.Archive(r.Context(), orgID, time.Now())
	if err != nil {
		h.orgError(w, err)
		return
	}
	h.audit(r, orgID, "organization_archived", map[string]any{"name": org.Name})
	models.WriteJSON(w, http.StatusOK, map[string]any{"organization": org})
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	entries, err := h.d.Activity.ListByOrg(r.Context(), orgID, 50)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Subscriptions returns raw rows, duplicates included, for support
// diagnostics.
func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["id"]
	subs, err := h.d.Subs.ListByOrg(r.Context(), orgID)
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.fetch(r.Context())
	if err != nil {
		models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models.WriteJSON(w, http.StatusOK, data)
}

func (h *Handler) orgError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "organization not found"})
		return
	}
	models.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (h *Handler) audit(r *http.Request, orgID, event string, extra map[string]any) {
	details, _ := json.Marshal(extra)
	entry := &models.SubscriptionActivityLog{
		OrganizationID: orgID,
		EventType:      event,
		TriggeredBy:    models.TriggerManual,
		AdminEmail:     identity(r).Email,
		Details:        datatypes.JSON(details),
	}
	_ = h.d.Activity.Append(r.Context(), entry)
}
