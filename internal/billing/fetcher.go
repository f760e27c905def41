package billing

import (
	"context"
	"strings"

	"mydaylogs/internal/logs"
)

// MetadataOrgKey is the metadata field binding a remote subscription to an
// organization. Authoritative when present; subscriptions created before
// metadata tagging existed carry nothing and fall back to email lookup.
const MetadataOrgKey = "organization_id"

const defaultPageSize = 100

// Fetcher locates the remote subscription for an organization: first by
// metadata, then by customer email. Both phases stop at the first hit with
// status active or trialing.
type Fetcher struct {
	provider Provider
	pageSize int
}

func NewFetcher(p Provider) *Fetcher {
	return &Fetcher{provider: p, pageSize: defaultPageSize}
}

// Find returns BindingNone with a nil subscription when neither phase
// matches; callers treat that as "no paid subscription", not an error.
// Provider failures propagate: an API outage must never read as unpaid.
func (f *Fetcher) Find(ctx context.Context, orgID, userEmail string) (Lookup, error) {
	subs, err := f.provider.ListSubscriptions(ctx, f.pageSize)
	if err != nil {
		return Lookup{Method: BindingNone}, err
	}
	for _, sub := range subs {
		if sub.Metadata[MetadataOrgKey] == orgID && sub.IsLive() {
			return Lookup{Method: BindingMetadata, Subscription: sub}, nil
		}
	}

	email := strings.TrimSpace(strings.ToLower(userEmail))
	if email == "" {
		return Lookup{Method: BindingNone}, nil
	}

	// Secondary binding: an email can map to several customers, each with
	// several subscriptions; listing order decides.
	customers, err := f.provider.ListCustomersByEmail(ctx, email)
	if err != nil {
		return Lookup{Method: BindingNone}, err
	}
	for _, c := range customers {
		subs, err := f.provider.ListCustomerSubscriptions(ctx, c.ID)
		if err != nil {
			return Lookup{Method: BindingNone}, err
		}
		for _, sub := range subs {
			if sub.IsLive() {
				logs.Logger.Infof("billing: org %s resolved by email binding (customer=%s sub=%s)", orgID, c.ID, sub.ID)
				return Lookup{Method: BindingEmail, Subscription: sub}, nil
			}
		}
	}
	return Lookup{Method: BindingNone}, nil
}
