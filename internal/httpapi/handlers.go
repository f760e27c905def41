package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"mydaylogs/internal/billing"
	"mydaylogs/internal/cache"
	"mydaylogs/internal/limits"
	"mydaylogs/internal/logs"
	"mydaylogs/internal/models"
	"mydaylogs/internal/plan"
	"mydaylogs/internal/repo"
	"mydaylogs/internal/session"
)

// loginSyncTTL throttles opportunistic reconciliation so a busy dashboard
// does not turn every page load into provider API calls.
const loginSyncTTL = 10 * time.Minute

type TaskStore interface {
	CreateTemplate(ctx context.Context, t *models.TaskTemplate) error
	ListTemplates(ctx context.Context, orgID string) ([]models.TaskTemplate, error)
	GetTemplate(ctx context.Context, orgID string, id uint) (*models.TaskTemplate, error)
	DeactivateTemplate(ctx context.Context, orgID string, id uint) error
	CreateAssignment(ctx context.Context, a *models.TemplateAssignment) error
	CreateReport(ctx context.Context, r *models.SubmittedReport) error
	ListReports(ctx context.Context, orgID string, limit int) ([]models.SubmittedReport, error)
}

type OrgStore interface {
	Get(ctx context.Context, orgID string) (*models.Organization, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
	ChangeRole(ctx context.Context, orgID, profileID string, role models.ProfileRole) (*models.Profile, error)
}

type SubscriptionSource interface {
	GetLive(ctx context.Context, orgID string) (*models.Subscription, error)
}

// AuditSink records org-scoped audit rows; these fall under plan retention.
type AuditSink interface {
	AppendAudit(ctx context.Context, e *models.AuditLog) error
}

type Handler struct {
	Tasks  TaskStore
	Orgs   OrgStore
	Subs   SubscriptionSource
	Eval   *limits.Evaluator
	Syncer billing.OrgSyncer
	Cache  cache.Cache
	Audit  AuditSink
}

func (h *Handler) audit(ctx context.Context, c *session.Claims, action string, details map[string]any) {
	if h.Audit == nil {
		return
	}
	raw, _ := json.Marshal(details)
	e := &models.AuditLog{
		OrganizationID: c.OrganizationID,
		ActorEmail:     c.Email,
		Action:         action,
		Details:        datatypes.JSON(raw),
	}
	if err := h.Audit.AppendAudit(ctx, e); err != nil {
		logs.Logger.Warnf("audit append failed for org %s: %v", c.OrganizationID, err)
	}
}

// Subscription reports the caller's plan, limits and usage. A cache-gated
// reconciliation against the payments provider piggybacks on this endpoint,
// which the frontend hits right after login.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	h.maybeSync(r.Context(), c.OrganizationID, c.Email)

	lims, org, err := h.Eval.Limits(r.Context(), c.OrganizationID)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}

	resp := map[string]any{
		"plan":   plan.Starter,
		"status": models.SubStatusInactive,
		"limits": lims,
	}
	sub, err := h.Subs.GetLive(r.Context(), c.OrganizationID)
	switch {
	case err == nil:
		resp["plan"] = sub.PlanName
		resp["status"] = sub.Status
		resp["is_trial"] = sub.IsTrial
		if sub.TrialEndsAt != nil {
			resp["trial_ends_at"] = sub.TrialEndsAt
		}
		if sub.CurrentPeriodEnd != nil {
			resp["current_period_end"] = sub.CurrentPeriodEnd
		}
		resp["cancel_at_period_end"] = sub.CancelAtPeriodEnd
	case errors.Is(err, repo.ErrNotFound):
		// no live row: the starter defaults above stand
	default:
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}

	if org != nil {
		win := plan.SubmissionWindow(org.CreatedAt, time.Now())
		resp["submission_window"] = map[string]any{
			"start":     win.Start,
			"resets_at": win.End,
		}
	}
	models.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) maybeSync(ctx context.Context, orgID, email string) {
	key := "login-sync:" + orgID
	if _, ok := h.Cache.Get(key); ok {
		return
	}
	h.Cache.Set(key, true, loginSyncTTL)
	if _, _, err := h.Syncer.SyncOrganization(ctx, orgID, email, models.TriggerLogin); err != nil {
		logs.Logger.Warnf("login-triggered sync failed for org %s: %v", orgID, err)
	}
}

// CheckLimit lets the UI pre-flight a create action.
func (h *Handler) CheckLimit(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	kind := limits.Kind(r.URL.Query().Get("kind"))
	var (
		res limits.CheckResult
		err error
	)
	switch kind {
	case limits.KindTemplate, limits.KindTeamMember, limits.KindAdmin:
		res, err = h.Eval.CheckCanCreate(r.Context(), kind, c.OrganizationID)
	case "report":
		res, err = h.Eval.CheckReportSubmission(r.Context(), c.OrganizationID)
	default:
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "unknown kind", nil)
		return
	}
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Items       json.RawMessage `json:"items"`
		IsRecurring bool            `json:"is_recurring"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "name required", nil)
		return
	}
	if req.IsRecurring {
		ok, err := h.Eval.HasTaskAutomation(r.Context(), c.OrganizationID)
		if err != nil {
			models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
			return
		}
		if !ok {
			models.WriteProblem(w, http.StatusForbidden, "plan limit",
				"recurring tasks require the growth plan or above", nil)
			return
		}
	}
	res, err := h.Eval.CheckCanCreate(r.Context(), limits.KindTemplate, c.OrganizationID)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	if !res.CanCreate {
		models.WriteProblem(w, http.StatusForbidden, "plan limit", res.Reason, res)
		return
	}

	t := &models.TaskTemplate{
		OrganizationID: c.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Items:          datatypes.JSON(req.Items),
		IsActive:       true,
		IsRecurring:    req.IsRecurring,
		CreatedBy:      c.ProfileID,
	}
	if err := h.Tasks.CreateTemplate(r.Context(), t); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	h.audit(r.Context(), c, "template_created", map[string]any{"template_id": t.ID, "name": t.Name})
	models.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	out, err := h.Tasks.ListTemplates(r.Context(), c.OrganizationID)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"templates": out})
}

func (h *Handler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "invalid template id", nil)
		return
	}
	if err := h.Tasks.DeactivateTemplate(r.Context(), c.OrganizationID, uint(id)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "not found", "template not found", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"deactivated": true})
}

func (h *Handler) AssignTemplate(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "invalid template id", nil)
		return
	}
	var req struct {
		ProfileID string `json:"profile_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProfileID == "" {
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "profile_id required", nil)
		return
	}
	if _, err := h.Tasks.GetTemplate(r.Context(), c.OrganizationID, uint(id)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "not found", "template not found", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	a := &models.TemplateAssignment{
		OrganizationID: c.OrganizationID,
		TemplateID:     uint(id),
		ProfileID:      req.ProfileID,
	}
	if err := h.Tasks.CreateAssignment(r.Context(), a); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusCreated, a)
}

// Invite creates a profile in the caller's organization. Admin seats count
// against their own limit on top of the team limit.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	var req struct {
		Email    string             `json:"email"`
		FullName string             `json:"full_name"`
		Role     models.ProfileRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "email required", nil)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleStaff
	}
	switch req.Role {
	case models.RoleStaff, models.RoleAdmin, models.RoleManager:
	default:
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "role must be staff, admin or manager", nil)
		return
	}

	res, err := h.Eval.CheckCanCreate(r.Context(), limits.KindTeamMember, c.OrganizationID)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	if !res.CanCreate {
		models.WriteProblem(w, http.StatusForbidden, "plan limit", res.Reason, res)
		return
	}
	if req.Role.IsAdmin() {
		res, err = h.Eval.CheckCanCreate(r.Context(), limits.KindAdmin, c.OrganizationID)
		if err != nil {
			models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
			return
		}
		if !res.CanCreate {
			models.WriteProblem(w, http.StatusForbidden, "plan limit", res.Reason, res)
			return
		}
	}

	p := &models.Profile{
		ID:             uuid.NewString(),
		OrganizationID: c.OrganizationID,
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           req.Role,
	}
	if err := h.Orgs.CreateProfile(r.Context(), p); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	h.audit(r.Context(), c, "member_invited", map[string]any{"email": p.Email, "role": p.Role})
	models.WriteJSON(w, http.StatusCreated, p)
}

// ChangeRole updates a team member's role. Promotions to admin or
// manager count against the admin seat limit; demoting the last admin
// is refused.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	profileID := mux.Vars(r)["id"]
	var req struct {
		Role models.ProfileRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "invalid body", nil)
		return
	}
	switch req.Role {
	case models.RoleStaff, models.RoleAdmin, models.RoleManager:
	default:
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "role must be staff, admin or manager", nil)
		return
	}

	if req.Role.IsAdmin() {
		res, err := h.Eval.CheckCanCreate(r.Context(), limits.KindAdmin, c.OrganizationID)
		if err != nil {
			models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
			return
		}
		if !res.CanCreate {
			models.WriteProblem(w, http.StatusForbidden, "plan limit", res.Reason, res)
			return
		}
	}

	p, err := h.Orgs.ChangeRole(r.Context(), c.OrganizationID, profileID, req.Role)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "not found", "profile not found", nil)
		return
	case errors.Is(err, repo.ErrLastAdmin):
		models.WriteProblem(w, http.StatusConflict, "conflict", "organization must keep at least one admin", nil)
		return
	case err != nil:
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	h.audit(r.Context(), c, "role_changed", map[string]any{"profile_id": p.ID, "role": p.Role})
	models.WriteJSON(w, http.StatusOK, p)
}

// SubmitReport records a completed checklist, gated on the rolling
// submission window. Photo attachments need a paid tier.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	var req struct {
		TemplateID uint            `json:"template_id"`
		Answers    json.RawMessage `json:"answers"`
		PhotoURLs  []string        `json:"photo_urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "bad request", "invalid body", nil)
		return
	}

	res, err := h.Eval.CheckReportSubmission(r.Context(), c.OrganizationID)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	if !res.CanCreate {
		models.WriteProblem(w, http.StatusForbidden, "plan limit", res.Reason, res)
		return
	}

	if len(req.PhotoURLs) > 0 {
		ok, err := h.Eval.CanUploadPhotos(r.Context(), c.OrganizationID)
		if err != nil {
			models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
			return
		}
		if !ok {
			models.WriteProblem(w, http.StatusForbidden, "plan limit",
				"photo uploads require the growth plan or above", nil)
			return
		}
	}

	report := &models.SubmittedReport{
		OrganizationID: c.OrganizationID,
		TemplateID:     req.TemplateID,
		SubmittedBy:    c.ProfileID,
		Answers:        datatypes.JSON(req.Answers),
	}
	if len(req.PhotoURLs) > 0 {
		urls, _ := json.Marshal(req.PhotoURLs)
		report.PhotoURLs = datatypes.JSON(urls)
	}
	if err := h.Tasks.CreateReport(r.Context(), report); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	h.audit(r.Context(), c, "report_submitted", map[string]any{"template_id": report.TemplateID})
	models.WriteJSON(w, http.StatusCreated, report)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	c := Claims(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.Tasks.ListReports(r.Context(), c.OrganizationID, limit)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "internal error", err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"reports": out})
}
