package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mydaylogs/internal/billing"
	"mydaylogs/internal/cache"
	"mydaylogs/internal/models"
	"mydaylogs/internal/repo"
)

type fakeOrgDir struct {
	orgs      map[string]*models.Organization
	overrides map[string]repo.Overrides
	archived  []string
}

func (f *fakeOrgDir) Get(_ context.Context, orgID string) (*models.Organization, error) {
	if o, ok := f.orgs[orgID]; ok {
		return o, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeOrgDir) List(context.Context) ([]models.Organization, error) {
	var out []models.Organization
	for _, o := range f.orgs {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrgDir) FirstAdminEmail(context.Context, string) (string, error) {
	return "owner@acme.co", nil
}

func (f *fakeOrgDir) SetOverrides(_ context.Context, orgID string, ov repo.Overrides) (*models.Organization, error) {
	o, ok := f.orgs[orgID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if f.overrides == nil {
		f.overrides = map[string]repo.Overrides{}
	}
	f.overrides[orgID] = ov
	return o, nil
}

func (f *fakeOrgDir) ClearOverrides(_ context.Context, orgID string) error {
	if _, ok := f.orgs[orgID]; !ok {
		return repo.ErrNotFound
	}
	delete(f.overrides, orgID)
	return nil
}

func (f *fakeOrgDir) Archive(_ context.Context, orgID string, _ time.Time) (*models.Organization, error) {
	o, ok := f.orgs[orgID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	f.archived = append(f.archived, orgID)
	return o, nil
}

type fakeSubSrc struct {
	live map[string]*models.Subscription
}

func (f *fakeSubSrc) GetLive(_ context.Context, orgID string) (*models.Subscription, error) {
	if s, ok := f.live[orgID]; ok {
		return s, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeSubSrc) ListByOrg(_ context.Context, orgID string) ([]models.Subscription, error) {
	if s, ok := f.live[orgID]; ok {
		return []models.Subscription{*s}, nil
	}
	return nil, nil
}

func (f *fakeSubSrc) ListLive(context.Context) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range f.live {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSubSrc) Create(_ context.Context, sub *models.Subscription) error {
	if f.live == nil {
		f.live = map[string]*models.Subscription{}
	}
	sub.ID = uint(len(f.live) + 1)
	f.live[sub.OrganizationID] = sub
	return nil
}

type fakeActSrc struct {
	entries []*models.SubscriptionActivityLog
}

func (f *fakeActSrc) Append(_ context.Context, e *models.SubscriptionActivityLog) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeActSrc) ListByOrg(context.Context, string, int) ([]models.SubscriptionActivityLog, error) {
	var out []models.SubscriptionActivityLog
	for _, e := range f.entries {
		out = append(out, *e)
	}
	return out, nil
}

type fakeAdmSyncer struct {
	applied []billing.Lookup
	synced  []string
}

func (f *fakeAdmSyncer) SyncOrganization(_ context.Context, orgID, _, _ string) (*models.Subscription, billing.BindingMethod, error) {
	f.synced = append(f.synced, orgID)
	return &models.Subscription{OrganizationID: orgID}, billing.BindingMetadata, nil
}

func (f *fakeAdmSyncer) Apply(_ context.Context, orgID string, lk billing.Lookup, _, _ string) (*models.Subscription, error) {
	f.applied = append(f.applied, lk)
	return &models.Subscription{OrganizationID: orgID, StripeSubscriptionID: lk.Subscription.ID}, nil
}

type fakeBilling struct {
	cancelled   []string
	atPeriodEnd bool
	priceChange []string
	refunded    []string
}

func (f *fakeBilling) CancelSubscription(_ context.Context, subID string, atPeriodEnd bool) (*billing.RemoteSubscription, error) {
	f.cancelled = append(f.cancelled, subID)
	f.atPeriodEnd = atPeriodEnd
	return &billing.RemoteSubscription{ID: subID, Status: "canceled"}, nil
}

func (f *fakeBilling) ChangePrice(_ context.Context, subID, priceID string) (*billing.RemoteSubscription, error) {
	f.priceChange = append(f.priceChange, subID+":"+priceID)
	return &billing.RemoteSubscription{ID: subID, Status: "active", PriceID: priceID}, nil
}

func (f *fakeBilling) RefundPayment(_ context.Context, paymentIntentID string) (string, error) {
	f.refunded = append(f.refunded, paymentIntentID)
	return "re_1", nil
}

type testEnv struct {
	router  *mux.Router
	orgs    *fakeOrgDir
	subs    *fakeSubSrc
	act     *fakeActSrc
	syncer  *fakeAdmSyncer
	billing *fakeBilling
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orgs: &fakeOrgDir{orgs: map[string]*models.Organization{
			"org-1": {ID: "org-1", Name: "Acme"},
		}},
		subs: &fakeSubSrc{live: map[string]*models.Subscription{
			"org-1": {ID: 1, OrganizationID: "org-1", PlanName: "growth",
				Status: models.SubStatusActive, StripeSubscriptionID: "sub_123"},
		}},
		act:     &fakeActSrc{},
		syncer:  &fakeAdmSyncer{},
		billing: &fakeBilling{},
	}
	env.router = mux.NewRouter()
	Attach(env.router, Dependencies{
		Orgs:     env.orgs,
		Subs:     env.subs,
		Activity: env.act,
		Rec:      env.syncer,
		Billing:  env.billing,
		Auth: &Authorizer{
			MasterPassword: "m@ster",
			JWTSecret:      "jwt-secret",
			Profiles:       &fakeProfiles{},
		},
		Cache: cache.NewMemory(),
	})
	return env
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	r.Header.Set("X-Admin-Password", "m@ster")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	return w
}

func TestAdminRejectsWithoutCredentials(t *testing.T) {
	env := newTestEnv()
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestForceSync(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/admin/orgs/org-1/sync", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"org-1"}, env.syncer.synced)
}

func TestForceSyncUnknownOrg(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/admin/orgs/org-404/sync", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetAndClearQuota(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPut, "/api/admin/orgs/org-1/quota", `{"template_limit":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.orgs.overrides["org-1"].TemplateLimit)
	assert.Equal(t, 10, *env.orgs.overrides["org-1"].TemplateLimit)

	// quota change is audited
	require.NotEmpty(t, env.act.entries)
	assert.Equal(t, "quota_override", env.act.entries[0].EventType)
	assert.Equal(t, "master-admin", env.act.entries[0].AdminEmail)

	w = env.do(http.MethodDelete, "/api/admin/orgs/org-1/quota", "")
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := env.orgs.overrides["org-1"]
	assert.False(t, ok)
}

func TestGrantTrial(t *testing.T) {
	env := newTestEnv()
	env.orgs.orgs["org-2"] = &models.Organization{ID: "org-2", Name: "Beta"}

	w := env.do(http.MethodPost, "/api/admin/orgs/org-2/trial", `{"days":30}`)
	require.Equal(t, http.StatusCreated, w.Code)

	sub := env.subs.live["org-2"]
	require.NotNil(t, sub)
	assert.Equal(t, "growth", sub.PlanName)
	assert.Equal(t, models.SubStatusTrialing, sub.Status)
	assert.True(t, sub.IsTrial)
	require.NotNil(t, sub.TrialEndsAt)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), *sub.TrialEndsAt, time.Minute)

	require.NotEmpty(t, env.act.entries)
	assert.Equal(t, "trial_granted", env.act.entries[0].EventType)
}

func TestGrantTrialRejectsLiveSubscription(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/admin/orgs/org-1/trial", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGrantTrialUnknownPlan(t *testing.T) {
	env := newTestEnv()
	env.orgs.orgs["org-2"] = &models.Organization{ID: "org-2", Name: "Beta"}
	w := env.do(http.MethodPost, "/api/admin/orgs/org-2/trial", `{"plan":"platinum"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAppliesRemoteState(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/admin/orgs/org-1/cancel", `{"at_period_end":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sub_123"}, env.billing.cancelled)
	assert.True(t, env.billing.atPeriodEnd)
	require.Len(t, env.syncer.applied, 1)
	assert.Equal(t, "canceled", env.syncer.applied[0].Subscription.Status)
}

func TestCancelWithoutBoundSubscription(t *testing.T) {
	env := newTestEnv()
	env.subs.live["org-1"].StripeSubscriptionID = ""

	w := env.do(http.MethodPost, "/api/admin/orgs/org-1/cancel", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.billing.cancelled)
}

func TestChangePlan(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/admin/orgs/org-1/plan", `{"price_id":"price_scale"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sub_123:price_scale"}, env.billing.priceChange)
	require.Len(t, env.syncer.applied, 1)
}

func TestRefund(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/admin/refunds",
		`{"organization_id":"org-1","payment_intent_id":"pi_9"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"pi_9"}, env.billing.refunded)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "re_1", resp["refund_id"])
}

func TestArchive(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/admin/orgs/org-1/archive", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"org-1"}, env.orgs.archived)
}

func TestDashboardAggregatesAndCaches(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/api/admin/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	var data DashboardData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, 1, data.Organizations)
	assert.Equal(t, 1, data.LiveByPlan["growth"])
	assert.Equal(t, 1, data.StripeBound)

	// second call is served from cache even after the stores change
	env.subs.live["org-2"] = &models.Subscription{ID: 2, OrganizationID: "org-2",
		PlanName: "scale", Status: models.SubStatusActive}
	w = env.do(http.MethodGet, "/api/admin/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, 1, data.StripeBound)
}
