package controller

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"

	"mydaylogs/internal/billing"
	"mydaylogs/internal/logs"
	"mydaylogs/internal/models"
	"mydaylogs/internal/plan"
	"mydaylogs/internal/repo"
)

// Repositories the reconciler needs.
type SubscriptionRepo interface {
	GetForUpsert(ctx context.Context, orgID, remoteID string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	Save(ctx context.Context, sub *models.Subscription) error
	DeleteOthers(ctx context.Context, orgID string, keepID uint) (int64, error)
}

type ActivityRepo interface {
	Append(ctx context.Context, e *models.SubscriptionActivityLog) error
}

type RemoteLookup interface {
	Find(ctx context.Context, orgID, userEmail string) (billing.Lookup, error)
}

// Reconciler pulls authoritative subscription state from the payments
// provider and writes it into the local store: update-if-exists upsert, then
// a dedupe pass enforcing the one-live-row-per-organization invariant.
type Reconciler struct {
	Subs     SubscriptionRepo
	Activity ActivityRepo
	Remote   RemoteLookup

	// PriceMap maps exact provider price ids to plan names. Consulted
	// before the heuristics in DerivePlan.
	PriceMap map[string]string

	locks keyedMutex
}

func NewReconciler(subs SubscriptionRepo, act ActivityRepo, remote RemoteLookup) *Reconciler {
	return &Reconciler{Subs: subs, Activity: act, Remote: remote}
}

// SyncOrganization fetches remote state and applies it. A lookup that finds
// nothing is not an error: locally granted trials have no remote counterpart
// and must survive, so "none" leaves the local rows untouched.
func (r *Reconciler) SyncOrganization(ctx context.Context, orgID, userEmail, trigger string) (*models.Subscription, billing.BindingMethod, error) {
	lk, err := r.Remote.Find(ctx, orgID, userEmail)
	if err != nil {
		return nil, billing.BindingNone, err
	}
	if lk.Subscription == nil {
		logs.Logger.Debugf("reconcile: org %s has no remote subscription (trigger=%s)", orgID, trigger)
		return nil, billing.BindingNone, nil
	}
	sub, err := r.Apply(ctx, orgID, lk, trigger, "")
	if err != nil {
		return nil, lk.Method, err
	}
	return sub, lk.Method, nil
}

// Apply upserts the local row from a fetched remote snapshot. Write failures
// propagate: swallowing them makes paid customers look unpaid.
func (r *Reconciler) Apply(ctx context.Context, orgID string, lk billing.Lookup, trigger, adminEmail string) (*models.Subscription, error) {
	remote := lk.Subscription
	unlock := r.locks.lock(orgID)
	defer unlock()

	planName := r.derivePlan(remote)
	status := mapStatus(remote.Status)

	local, err := r.Subs.GetForUpsert(ctx, orgID, remote.ID)
	created := false
	if errors.Is(err, repo.ErrNotFound) {
		local = &models.Subscription{OrganizationID: orgID}
		created = true
	} else if err != nil {
		return nil, err
	}

	fromPlan, fromStatus := local.PlanName, local.Status

	local.PlanName = planName
	local.Status = status
	local.IsTrial = remote.Status == "trialing"
	local.TrialEndsAt = epochPtr(remote.TrialEnd)
	local.CurrentPeriodStart = epochPtr(remote.CurrentPeriodStart)
	local.CurrentPeriodEnd = epochPtr(remote.CurrentPeriodEnd)
	local.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	local.StripeSubscriptionID = remote.ID
	local.StripeCustomerID = remote.CustomerID

	if created {
		if err := r.Subs.Create(ctx, local); err != nil {
			return nil, err
		}
	} else {
		if err := r.Subs.Save(ctx, local); err != nil {
			return nil, err
		}
	}

	deduped, err := r.Subs.DeleteOthers(ctx, orgID, local.ID)
	if err != nil {
		return nil, err
	}
	if deduped > 0 {
		// Auto-remediated integrity warning; never surfaced to the end user.
		logs.Logger.Warnf("reconcile: removed %d duplicate subscription rows for org %s", deduped, orgID)
	}

	// No-op transitions are skipped so repeated syncs with the same snapshot
	// do not flood the activity log.
	if created || fromPlan != planName || fromStatus != status {
		details, _ := json.Marshal(map[string]any{
			"binding_method":         string(lk.Method),
			"trigger":                trigger,
			"stripe_subscription_id": remote.ID,
			"deduped_rows":           deduped,
		})
		entry := &models.SubscriptionActivityLog{
			OrganizationID: orgID,
			SubscriptionID: &local.ID,
			EventType:      "subscription_synced",
			FromPlan:       fromPlan,
			ToPlan:         planName,
			FromStatus:     fromStatus,
			ToStatus:       status,
			TriggeredBy:    trigger,
			AdminEmail:     adminEmail,
			Details:        datatypes.JSON(details),
		}
		if err := r.Activity.Append(ctx, entry); err != nil {
			return nil, err
		}
	}
	return local, nil
}

func (r *Reconciler) derivePlan(remote *billing.RemoteSubscription) string {
	if name, ok := r.PriceMap[remote.PriceID]; ok && remote.PriceID != "" && plan.Known(name) {
		return name
	}
	return DerivePlan(remote)
}

// DerivePlan resolves the plan name for a remote subscription: the
// subscription_type metadata field split on "-" ("growth-yearly" -> growth)
// wins; otherwise known substrings of the price id; otherwise starter.
func DerivePlan(remote *billing.RemoteSubscription) string {
	if st := remote.Metadata["subscription_type"]; st != "" {
		name := strings.ToLower(strings.SplitN(st, "-", 2)[0])
		if plan.Known(name) {
			return name
		}
	}
	price := strings.ToLower(remote.PriceID)
	switch {
	case strings.Contains(price, "growth"):
		return plan.Growth
	case strings.Contains(price, "scale"):
		return plan.Scale
	}
	return plan.Starter
}

func mapStatus(remote string) string {
	switch remote {
	case "active":
		return models.SubStatusActive
	case "trialing":
		return models.SubStatusTrialing
	case "canceled", "cancelled":
		return models.SubStatusCancelled
	case "incomplete_expired":
		return models.SubStatusExpired
	default:
		return models.SubStatusInactive
	}
}

func epochPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
