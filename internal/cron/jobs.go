// Package cron implements the scheduled maintenance jobs. They are plain
// HTTP GET endpoints behind a bearer secret; an external scheduler hits them.
// Every job processes its whole batch and reports per-item failures instead
// of aborting on the first error.
package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"mydaylogs/internal/billing"
	"mydaylogs/internal/limits"
	"mydaylogs/internal/logs"
	"mydaylogs/internal/models"
	"mydaylogs/internal/plan"
	"mydaylogs/internal/repo"
)

type TrialStore interface {
	ListExpiredTrials(ctx context.Context, now time.Time) ([]models.Subscription, error)
	ListLive(ctx context.Context) ([]models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
}

type OrgSource interface {
	List(ctx context.Context) ([]models.Organization, error)
	FirstAdminEmail(ctx context.Context, orgID string) (string, error)
}

type PlanSource interface {
	ActivePlan(ctx context.Context, orgID string) (string, error)
}

type CleanupStore interface {
	DeleteReportsBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error)
	DeleteAuditLogsBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error)
}

type ActivitySink interface {
	Append(ctx context.Context, e *models.SubscriptionActivityLog) error
}

type Jobs struct {
	Subs      TrialStore
	Orgs      OrgSource
	Plans     PlanSource
	Cleanup   CleanupStore
	Activity  ActivitySink
	Syncer    billing.OrgSyncer
	Evaluator *limits.Evaluator

	// Clock is overridable in tests; nil means time.Now.
	Clock func() time.Time
}

func (j *Jobs) now() time.Time {
	if j.Clock != nil {
		return j.Clock()
	}
	return time.Now().UTC()
}

// TrialExpirySummary is the JSON body the expire-trials endpoint returns.
type TrialExpirySummary struct {
	Checked    int      `json:"checked"`
	Expired    int      `json:"expired"`
	Downgraded int      `json:"downgraded"`
	Failures   []string `json:"failures,omitempty"`
}

// ExpireTrials downgrades trial subscriptions whose trial end has passed to
// the starter plan. One failed row never aborts the batch.
func (j *Jobs) ExpireTrials(ctx context.Context) (TrialExpirySummary, error) {
	now := j.now()
	expired, err := j.Subs.ListExpiredTrials(ctx, now)
	if err != nil {
		return TrialExpirySummary{}, err
	}

	sum := TrialExpirySummary{Checked: len(expired), Expired: len(expired)}
	for i := range expired {
		sub := &expired[i]
		fromPlan, fromStatus := sub.PlanName, sub.Status

		sub.PlanName = plan.Starter
		sub.IsTrial = false
		sub.TrialEndsAt = nil
		sub.Status = models.SubStatusActive

		if err := j.Subs.Save(ctx, sub); err != nil {
			logs.Logger.Errorf("cron: trial expiry failed for org %s: %v", sub.OrganizationID, err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", sub.OrganizationID, err))
			continue
		}
		sum.Downgraded++

		j.logActivity(ctx, sub, "trial_expired", fromPlan, fromStatus, map[string]any{
			"trial_ended_before": now.Format(time.RFC3339),
		})
	}
	return sum, nil
}

// CleanupSummary is the JSON body the cleanup endpoint returns.
type CleanupSummary struct {
	Organizations    int      `json:"organizations"`
	ReportsDeleted   int64    `json:"reportsDeleted"`
	AuditLogsDeleted int64    `json:"auditLogsDeleted"`
	Skipped          int      `json:"skipped"`
	Failures         []string `json:"failures,omitempty"`
}

// CleanupRetention deletes reports and audit rows older than the plan's
// retention window. An organization whose plan lookup fails is skipped, not
// fatal; the rest of the batch continues.
func (j *Jobs) CleanupRetention(ctx context.Context) (CleanupSummary, error) {
	now := j.now()
	orgs, err := j.Orgs.List(ctx)
	if err != nil {
		return CleanupSummary{}, err
	}

	sum := CleanupSummary{Organizations: len(orgs)}
	for _, org := range orgs {
		planName, err := j.Plans.ActivePlan(ctx, org.ID)
		if err != nil {
			logs.Logger.Warnf("cron: plan lookup failed for org %s, skipping cleanup: %v", org.ID, err)
			sum.Skipped++
			continue
		}
		lim := plan.GetLimits(planName)

		reportCutoff := now.AddDate(0, 0, -lim.ReportRetentionDays)
		n, err := j.Cleanup.DeleteReportsBefore(ctx, org.ID, reportCutoff)
		if err != nil {
			logs.Logger.Errorf("cron: report cleanup failed for org %s: %v", org.ID, err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s reports: %v", org.ID, err))
		} else {
			sum.ReportsDeleted += n
		}

		auditCutoff := now.AddDate(0, 0, -lim.AuditLogRetentionDays)
		n, err = j.Cleanup.DeleteAuditLogsBefore(ctx, org.ID, auditCutoff)
		if err != nil {
			logs.Logger.Errorf("cron: audit cleanup failed for org %s: %v", org.ID, err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s audit: %v", org.ID, err))
		} else {
			sum.AuditLogsDeleted += n
		}
	}
	return sum, nil
}

// ResyncSummary is the JSON body the resync endpoint returns.
type ResyncSummary struct {
	Organizations int      `json:"organizations"`
	Synced        int      `json:"synced"`
	Lapsed        int      `json:"lapsed"`
	Failures      []string `json:"failures,omitempty"`
}

// ResyncAll re-runs reconciliation for every organization, then marks live
// rows whose paid period has lapsed (cancelled or period ended with nothing
// active behind them) as expired. Excess usage after a downgrade is recorded,
// never deleted; trimming is a UI concern.
func (j *Jobs) ResyncAll(ctx context.Context) (ResyncSummary, error) {
	orgs, err := j.Orgs.List(ctx)
	if err != nil {
		return ResyncSummary{}, err
	}

	sum := ResyncSummary{Organizations: len(orgs)}
	for _, org := range orgs {
		email, err := j.Orgs.FirstAdminEmail(ctx, org.ID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s admin lookup: %v", org.ID, err))
			continue
		}
		if _, _, err := j.Syncer.SyncOrganization(ctx, org.ID, email, models.TriggerCron); err != nil {
			logs.Logger.Errorf("cron: resync failed for org %s: %v", org.ID, err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s sync: %v", org.ID, err))
			continue
		}
		sum.Synced++
	}

	lapsed, failures := j.expireLapsed(ctx)
	sum.Lapsed = lapsed
	sum.Failures = append(sum.Failures, failures...)
	return sum, nil
}

func (j *Jobs) expireLapsed(ctx context.Context) (int, []string) {
	now := j.now()
	live, err := j.Subs.ListLive(ctx)
	if err != nil {
		return 0, []string{fmt.Sprintf("list live: %v", err)}
	}

	var lapsed int
	var failures []string
	for i := range live {
		sub := &live[i]
		if sub.IsTrial || !sub.PeriodEnded(now) {
			continue
		}
		fromPlan, fromStatus := sub.PlanName, sub.Status
		sub.Status = models.SubStatusExpired
		if err := j.Subs.Save(ctx, sub); err != nil {
			failures = append(failures, fmt.Sprintf("%s lapse: %v", sub.OrganizationID, err))
			continue
		}
		lapsed++

		details := map[string]any{}
		if j.Evaluator != nil {
			if excess, err := j.Evaluator.ExcessUsage(ctx, sub.OrganizationID); err == nil && len(excess) > 0 {
				details["excess_usage"] = excess
			}
		}
		j.logActivity(ctx, sub, "subscription_lapsed", fromPlan, fromStatus, details)
	}
	return lapsed, failures
}

func (j *Jobs) logActivity(ctx context.Context, sub *models.Subscription, event, fromPlan, fromStatus string, extra map[string]any) {
	details, _ := json.Marshal(extra)
	entry := &models.SubscriptionActivityLog{
		OrganizationID: sub.OrganizationID,
		SubscriptionID: &sub.ID,
		EventType:      event,
		FromPlan:       fromPlan,
		ToPlan:         sub.PlanName,
		FromStatus:     fromStatus,
		ToStatus:       sub.Status,
		TriggeredBy:    models.TriggerCron,
		Details:        datatypes.JSON(details),
	}
	if err := j.Activity.Append(ctx, entry); err != nil {
		// The state change already landed; a lost audit row is logged, not fatal.
		logs.Logger.Errorf("cron: activity log append failed for org %s: %v", sub.OrganizationID, err)
	}
}
