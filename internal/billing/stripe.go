package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeProvider implements Provider and Actions on the Stripe SDK.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(apiKey string) *StripeProvider {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeProvider{api: api}
}

func (p *StripeProvider) ListSubscriptions(ctx context.Context, limit int) ([]*RemoteSubscription, error) {
	params := &stripe.SubscriptionListParams{
		Status: stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))

	var out []*RemoteSubscription
	it := p.api.Subscriptions.List(params)
	for it.Next() {
		out = append(out, fromStripe(it.Subscription()))
	}
	return out, it.Err()
}

func (p *StripeProvider) ListCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx

	var out []Customer
	it := p.api.Customers.List(params)
	for it.Next() {
		c := it.Customer()
		out = append(out, Customer{ID: c.ID, Email: c.Email})
	}
	return out, it.Err()
}

func (p *StripeProvider) ListCustomerSubscriptions(ctx context.Context, customerID string) ([]*RemoteSubscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	var out []*RemoteSubscription
	it := p.api.Subscriptions.List(params)
	for it.Next() {
		out = append(out, fromStripe(it.Subscription()))
	}
	return out, it.Err()
}

// fromStripe flattens the SDK subscription into the neutral shape. Price and
// period bounds come from the first subscription item.
func fromStripe(s *stripe.Subscription) *RemoteSubscription {
	out := &RemoteSubscription{
		ID:                s.ID,
		Status:            string(s.Status),
		Metadata:          s.Metadata,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		TrialEnd:          s.TrialEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
		out.CurrentPeriodStart = item.CurrentPeriodStart
		out.CurrentPeriodEnd = item.CurrentPeriodEnd
	}
	return out
}
