// Package billing is the boundary to the payments provider. Everything the
// rest of the system sees is the provider-neutral RemoteSubscription; the
// Stripe SDK stays behind the Provider interface.
package billing

import (
	"context"
)

// BindingMethod records which lookup strategy located a remote subscription.
type BindingMethod string

const (
	BindingMetadata BindingMethod = "metadata"
	BindingEmail    BindingMethod = "email"
	BindingNone     BindingMethod = "none"
)

// RemoteSubscription is the provider subscription state the reconciler
// consumes. Timestamps are epoch seconds, zero when unset.
type RemoteSubscription struct {
	ID                 string
	CustomerID         string
	Status             string
	PriceID            string
	Metadata           map[string]string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	TrialEnd           int64
}

// IsLive reports whether the remote status grants entitlements.
func (r *RemoteSubscription) IsLive() bool {
	return r.Status == "active" || r.Status == "trialing"
}

// Lookup tags the fetch result with the binding method that resolved it,
// so callers (and tests) can see which phase matched.
type Lookup struct {
	Method       BindingMethod
	Subscription *RemoteSubscription
}

type Customer struct {
	ID    string
	Email string
}

// Provider is the read surface of the payments API the fetcher needs.
type Provider interface {
	ListSubscriptions(ctx context.Context, limit int) ([]*RemoteSubscription, error)
	ListCustomersByEmail(ctx context.Context, email string) ([]Customer, error)
	ListCustomerSubscriptions(ctx context.Context, customerID string) ([]*RemoteSubscription, error)
}
