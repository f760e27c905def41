// Package limits answers "can this organization perform action X" by
// combining the plan catalog, per-org overrides, and current usage counts.
package limits

import (
	"context"
	"fmt"
	"time"

	"mydaylogs/internal/logs"
	"mydaylogs/internal/models"
	"mydaylogs/internal/plan"
)

type Kind string

const (
	KindTemplate   Kind = "template"
	KindTeamMember Kind = "teamMember"
	KindAdmin      Kind = "admin"
)

type OrgSource interface {
	Get(ctx context.Context, orgID string) (*models.Organization, error)
}

type PlanSource interface {
	ActivePlan(ctx context.Context, orgID string) (string, error)
}

type UsageSource interface {
	Counts(ctx context.Context, orgID string, submissionsSince time.Time) models.UsageCounts
}

// CheckResult is the structured body behind 403 responses, so the UI can
// render an upgrade prompt instead of a bare error string.
type CheckResult struct {
	CanCreate    bool   `json:"canCreate"`
	Reason       string `json:"reason,omitempty"`
	CurrentCount int    `json:"currentCount"`
	MaxAllowed   int    `json:"maxAllowed"`
	Unlimited    bool   `json:"unlimited,omitempty"`
}

type Evaluator struct {
	Orgs  OrgSource
	Plans PlanSource
	Usage UsageSource

	// Clock is overridable in tests; nil means time.Now.
	Clock func() time.Time
}

func NewEvaluator(orgs OrgSource, plans PlanSource, usage UsageSource) *Evaluator {
	return &Evaluator{Orgs: orgs, Plans: plans, Usage: usage}
}

func (e *Evaluator) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

// Limits resolves the effective limits for the organization: catalog row for
// the active plan, with non-nil org overrides applied. A plan lookup failure
// degrades to starter (read path stays permissive-on-paper but never crashes
// the request).
func (e *Evaluator) Limits(ctx context.Context, orgID string) (plan.Limits, *models.Organization, error) {
	org, err := e.Orgs.Get(ctx, orgID)
	if err != nil {
		return plan.Limits{}, nil, err
	}
	planName, err := e.Plans.ActivePlan(ctx, orgID)
	if err != nil {
		logs.Logger.Warnf("limits: plan lookup failed for org %s, assuming starter: %v", orgID, err)
		planName = plan.Starter
	}
	return plan.Merge(plan.GetLimits(planName), org), org, nil
}

// CheckCanCreate gates creation of templates, team members, and admin seats.
// Strict comparison: current < max allows one more.
func (e *Evaluator) CheckCanCreate(ctx context.Context, kind Kind, orgID string) (CheckResult, error) {
	lim, org, err := e.Limits(ctx, orgID)
	if err != nil {
		return CheckResult{}, err
	}
	usage := e.Usage.Counts(ctx, orgID, e.windowStart(org))

	var current, max int
	switch kind {
	case KindTemplate:
		current, max = usage.Templates, lim.MaxTemplates
	case KindTeamMember:
		current, max = usage.TeamMembers, lim.MaxTeamMembers
	case KindAdmin:
		current, max = usage.Admins, lim.MaxAdminAccounts
	default:
		return CheckResult{}, fmt.Errorf("unknown limit kind %q", kind)
	}

	res := CheckResult{CurrentCount: current, MaxAllowed: max, CanCreate: current < max}
	if !res.CanCreate {
		res.Reason = fmt.Sprintf("%s limit reached (%d of %d)", kind, current, max)
	}
	return res, nil
}

// CheckReportSubmission gates report submissions. Only the starter plan has
// a submission cap; it uses a rolling 30-day window anchored on the
// organization's signup date. Unlimited plans skip the window entirely.
func (e *Evaluator) CheckReportSubmission(ctx context.Context, orgID string) (CheckResult, error) {
	lim, org, err := e.Limits(ctx, orgID)
	if err != nil {
		return CheckResult{}, err
	}
	if lim.MaxReportSubmissions == nil {
		return CheckResult{CanCreate: true, Unlimited: true}, nil
	}

	w := plan.SubmissionWindow(org.CreatedAt, e.now())
	usage := e.Usage.Counts(ctx, orgID, w.Start)
	max := *lim.MaxReportSubmissions
	res := CheckResult{
		CurrentCount: usage.MonthlySubmissions,
		MaxAllowed:   max,
		CanCreate:    usage.MonthlySubmissions < max,
	}
	if !res.CanCreate {
		res.Reason = fmt.Sprintf("monthly submission limit reached (%d of %d), resets %s",
			usage.MonthlySubmissions, max, w.End.Format("2006-01-02"))
	}
	return res, nil
}

// CanUploadPhotos is keyed off plan: photo attachments are a paid feature.
func (e *Evaluator) CanUploadPhotos(ctx context.Context, orgID string) (bool, error) {
	planName, err := e.Plans.ActivePlan(ctx, orgID)
	if err != nil {
		return false, err
	}
	return planName != plan.Starter, nil
}

// HasTaskAutomation reports whether recurring-task automation is enabled.
func (e *Evaluator) HasTaskAutomation(ctx context.Context, orgID string) (bool, error) {
	lim, _, err := e.Limits(ctx, orgID)
	if err != nil {
		return false, err
	}
	return lim.HasTaskAutomation, nil
}

// ExcessUsage reports counts over the (possibly just-downgraded) limits.
// Nothing is deleted here; excess rows are a UI warning concern.
func (e *Evaluator) ExcessUsage(ctx context.Context, orgID string) (map[string]int, error) {
	lim, org, err := e.Limits(ctx, orgID)
	if err != nil {
		return nil, err
	}
	usage := e.Usage.Counts(ctx, orgID, e.windowStart(org))

	excess := map[string]int{}
	if over := usage.Templates - lim.MaxTemplates; over > 0 {
		excess["templates"] = over
	}
	if over := usage.TeamMembers - lim.MaxTeamMembers; over > 0 {
		excess["teamMembers"] = over
	}
	if over := usage.Admins - lim.MaxAdminAccounts; over > 0 {
		excess["admins"] = over
	}
	return excess, nil
}

func (e *Evaluator) windowStart(org *models.Organization) time.Time {
	return plan.SubmissionWindow(org.CreatedAt, e.now()).Start
}
