package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"mydaylogs/internal/billing"
	"mydaylogs/internal/cache"
	"mydaylogs/internal/models"
	"mydaylogs/internal/repo"
)

// OrgDirectory is the slice of the organization store the admin
// surface needs.
type OrgDirectory interface {
	Get(ctx context.Context, orgID string) (*models.Organization, error)
	List(ctx context.Context) ([]models.Organization, error)
	FirstAdminEmail(ctx context.Context, orgID string) (string, error)
	SetOverrides(ctx context.Context, orgID string, ov repo.Overrides) (*models.Organization, error)
	ClearOverrides(ctx context.Context, orgID string) error
	Archive(ctx context.Context, orgID string, now time.Time) (*models.Organization, error)
}

type SubscriptionSource interface {
	GetLive(ctx context.Context, orgID string) (*models.Subscription, error)
	ListByOrg(ctx context.Context, orgID string) ([]models.Subscription, error)
	ListLive(ctx context.Context) ([]models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
}

type ActivitySource interface {
	Append(ctx context.Context, e *models.SubscriptionActivityLog) error
	ListByOrg(ctx context.Context, orgID string, limit int) ([]models.SubscriptionActivityLog, error)
}

// Syncer reconciles local subscription rows against the payments
// provider; satisfied by controller.Reconciler.
type Syncer interface {
	SyncOrganization(ctx context.Context, orgID, userEmail, trigger string) (*models.Subscription, billing.BindingMethod, error)
	Apply(ctx context.Context, orgID string, lk billing.Lookup, trigger, adminEmail string) (*models.Subscription, error)
}

type Dependencies struct {
	Orgs     OrgDirectory
	Subs     SubscriptionSource
	Activity ActivitySource
	Rec      Syncer
	Billing  billing.Actions
	Auth     *Authorizer
	Cache    cache.Cache

	// TrialDays is the default length of an admin-granted trial.
	TrialDays int
}

func Attach(r *mux.Router, d Dependencies) {
	h := &Handler{d: d, dashboard: newDashboard(d)}
	sub := r.PathPrefix("/api/admin").Subrouter()
	sub.Use(h.requireMasterAdmin)

	sub.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)

	sub.HandleFunc("/orgs/{id}/sync", h.ForceSync).Methods(http.MethodPost)
	sub.HandleFunc("/orgs/{id}/quota", h.SetQuota).Methods(http.MethodPut)
	sub.HandleFunc("/orgs/{id}/quota", h.ClearQuota).Methods(http.MethodDelete)
	sub.HandleFunc("/orgs/{id}/trial", h.GrantTrial).Methods(http.MethodPost)
	sub.HandleFunc("/orgs/{id}/cancel", h.Cancel).Methods(http.MethodPost)
	sub.HandleFunc("/orgs/{id}/plan", h.ChangePlan).Methods(http.MethodPost)
	sub.HandleFunc("/orgs/{id}/archive", h.Archive).Methods(http.MethodPost)
	sub.HandleFunc("/orgs/{id}/activity", h.Activity).Methods(http.MethodGet)
	sub.HandleFunc("/orgs/{id}/subscriptions", h.Subscriptions).Methods(http.MethodGet)

	sub.HandleFunc("/refunds", h.Refund).Methods(http.MethodPost)
}
