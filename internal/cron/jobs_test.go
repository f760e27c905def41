package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mydaylogs/internal/billing"
	"mydaylogs/internal/models"
	"mydaylogs/internal/plan"
)

type fakeTrialStore struct {
	expired []models.Subscription
	live    []models.Subscription
	saved   []*models.Subscription
	saveErr map[string]error
}

func (f *fakeTrialStore) ListExpiredTrials(context.Context, time.Time) ([]models.Subscription, error) {
	return f.expired, nil
}

func (f *fakeTrialStore) ListLive(context.Context) ([]models.Subscription, error) {
	return f.live, nil
}

func (f *fakeTrialStore) Save(_ context.Context, sub *models.Subscription) error {
	if err := f.saveErr[sub.OrganizationID]; err != nil {
		return err
	}
	f.saved = append(f.saved, sub)
	return nil
}

type fakeOrgSource struct {
	orgs   []models.Organization
	emails map[string]string
}

func (f *fakeOrgSource) List(context.Context) ([]models.Organization, error) { return f.orgs, nil }

func (f *fakeOrgSource) FirstAdminEmail(_ context.Context, orgID string) (string, error) {
	return f.emails[orgID], nil
}

type fakePlanSource struct {
	plans map[string]string
	errs  map[string]error
}

func (f *fakePlanSource) ActivePlan(_ context.Context, orgID string) (string, error) {
	if err := f.errs[orgID]; err != nil {
		return "", err
	}
	return f.plans[orgID], nil
}

type fakeCleanup struct {
	reportCutoffs map[string]time.Time
	auditCutoffs  map[string]time.Time
}

func (f *fakeCleanup) DeleteReportsBefore(_ context.Context, orgID string, cutoff time.Time) (int64, error) {
	if f.reportCutoffs == nil {
		f.reportCutoffs = map[string]time.Time{}
	}
	f.reportCutoffs[orgID] = cutoff
	return 2, nil
}

func (f *fakeCleanup) DeleteAuditLogsBefore(_ context.Context, orgID string, cutoff time.Time) (int64, error) {
	if f.auditCutoffs == nil {
		f.auditCutoffs = map[string]time.Time{}
	}
	f.auditCutoffs[orgID] = cutoff
	return 1, nil
}

type fakeSink struct {
	entries []*models.SubscriptionActivityLog
}

func (f *fakeSink) Append(_ context.Context, e *models.SubscriptionActivityLog) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeJobSyncer struct {
	calls []string
	errs  map[string]error
}

func (f *fakeJobSyncer) SyncOrganization(_ context.Context, orgID, _, _ string) (*models.Subscription, billing.BindingMethod, error) {
	f.calls = append(f.calls, orgID)
	if err := f.errs[orgID]; err != nil {
		return nil, billing.BindingNone, err
	}
	return nil, billing.BindingNone, nil
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestExpireTrialsDowngradesToStarter(t *testing.T) {
	past := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	subs := &fakeTrialStore{expired: []models.Subscription{{
		ID: 1, OrganizationID: "org-1",
		PlanName: plan.Growth, Status: models.SubStatusActive,
		IsTrial: true, TrialEndsAt: &past,
	}}}
	sink := &fakeSink{}
	j := &Jobs{Subs: subs, Activity: sink, Clock: fixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}

	sum, err := j.ExpireTrials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Checked)
	assert.Equal(t, 1, sum.Expired)
	assert.Equal(t, 1, sum.Downgraded)
	assert.Empty(t, sum.Failures)

	require.Len(t, subs.saved, 1)
	got := subs.saved[0]
	assert.Equal(t, plan.Starter, got.PlanName)
	assert.Equal(t, models.SubStatusActive, got.Status)
	assert.False(t, got.IsTrial)
	assert.Nil(t, got.TrialEndsAt)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "trial_expired", sink.entries[0].EventType)
	assert.Equal(t, plan.Growth, sink.entries[0].FromPlan)
	assert.Equal(t, models.TriggerCron, sink.entries[0].TriggeredBy)
}

func TestExpireTrialsOneFailureDoesNotAbortBatch(t *testing.T) {
	subs := &fakeTrialStore{
		expired: []models.Subscription{
			{ID: 1, OrganizationID: "org-bad", IsTrial: true},
			{ID: 2, OrganizationID: "org-good", IsTrial: true},
		},
		saveErr: map[string]error{"org-bad": errors.New("deadlock")},
	}
	j := &Jobs{Subs: subs, Activity: &fakeSink{}}

	sum, err := j.ExpireTrials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Checked)
	assert.Equal(t, 1, sum.Downgraded)
	require.Len(t, sum.Failures, 1)
	assert.Contains(t, sum.Failures[0], "org-bad")
}

func TestCleanupUsesPlanRetention(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cleanup := &fakeCleanup{}
	j := &Jobs{
		Orgs:    &fakeOrgSource{orgs: []models.Organization{{ID: "org-1"}}},
		Plans:   &fakePlanSource{plans: map[string]string{"org-1": plan.Scale}},
		Cleanup: cleanup,
		Clock:   fixedClock(now),
	}

	sum, err := j.CleanupRetention(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Organizations)
	assert.Equal(t, int64(2), sum.ReportsDeleted)
	assert.Equal(t, int64(1), sum.AuditLogsDeleted)

	// scale: 365-day reports, 90-day audit logs
	assert.Equal(t, now.AddDate(0, 0, -365), cleanup.reportCutoffs["org-1"])
	assert.Equal(t, now.AddDate(0, 0, -90), cleanup.auditCutoffs["org-1"])
}

func TestCleanupSkipsOrgOnPlanLookupFailure(t *testing.T) {
	cleanup := &fakeCleanup{}
	j := &Jobs{
		Orgs: &fakeOrgSource{orgs: []models.Organization{
			{ID: "org-broken"}, {ID: "org-ok"},
		}},
		Plans: &fakePlanSource{
			plans: map[string]string{"org-ok": plan.Starter},
			errs:  map[string]error{"org-broken": errors.New("db down")},
		},
		Cleanup: cleanup,
	}

	sum, err := j.CleanupRetention(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)

	// nothing deleted for the skipped org
	_, touched := cleanup.reportCutoffs["org-broken"]
	assert.False(t, touched)
	_, touched = cleanup.reportCutoffs["org-ok"]
	assert.True(t, touched)
}

func TestResyncAllSyncsEveryOrg(t *testing.T) {
	syncer := &fakeJobSyncer{errs: map[string]error{"org-2": errors.New("stripe down")}}
	j := &Jobs{
		Orgs: &fakeOrgSource{
			orgs:   []models.Organization{{ID: "org-1"}, {ID: "org-2"}, {ID: "org-3"}},
			emails: map[string]string{"org-1": "a@acme.co"},
		},
		Subs:     &fakeTrialStore{},
		Syncer:   syncer,
		Activity: &fakeSink{},
	}

	sum, err := j.ResyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Organizations)
	assert.Equal(t, 2, sum.Synced)
	require.Len(t, sum.Failures, 1)
	assert.Contains(t, sum.Failures[0], "org-2")
	assert.Equal(t, []string{"org-1", "org-2", "org-3"}, syncer.calls)
}

func TestResyncExpiresLapsedPeriods(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 20)
	trialEnd := now.AddDate(0, 0, 5)

	subs := &fakeTrialStore{live: []models.Subscription{
		{ID: 1, OrganizationID: "org-lapsed", PlanName: plan.Growth,
			Status: models.SubStatusActive, CurrentPeriodEnd: &past},
		{ID: 2, OrganizationID: "org-current", PlanName: plan.Growth,
			Status: models.SubStatusActive, CurrentPeriodEnd: &future},
		{ID: 3, OrganizationID: "org-trial", PlanName: plan.Growth,
			Status: models.SubStatusActive, IsTrial: true, TrialEndsAt: &trialEnd, CurrentPeriodEnd: &past},
	}}
	sink := &fakeSink{}
	j := &Jobs{
		Orgs:     &fakeOrgSource{},
		Subs:     subs,
		Syncer:   &fakeJobSyncer{},
		Activity: sink,
		Clock:    fixedClock(now),
	}

	sum, err := j.ResyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Lapsed)

	require.Len(t, subs.saved, 1)
	assert.Equal(t, "org-lapsed", subs.saved[0].OrganizationID)
	assert.Equal(t, models.SubStatusExpired, subs.saved[0].Status)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "subscription_lapsed", sink.entries[0].EventType)
}
