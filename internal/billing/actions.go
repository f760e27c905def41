package billing

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v82"
)

var ErrNoSubscriptionItem = errors.New("remote subscription has no items")

// Actions is the write surface admin handlers drive. Proration, dunning and
// trial arithmetic stay with the provider.
type Actions interface {
	CancelSubscription(ctx context.Context, subID string, atPeriodEnd bool) (*RemoteSubscription, error)
	ChangePrice(ctx context.Context, subID, priceID string) (*RemoteSubscription, error)
	RefundPayment(ctx context.Context, paymentIntentID string) (string, error)
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subID string, atPeriodEnd bool) (*RemoteSubscription, error) {
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		}
		params.Context = ctx
		s, err := p.api.Subscriptions.Update(subID, params)
		if err != nil {
			return nil, err
		}
		return fromStripe(s), nil
	}
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	s, err := p.api.Subscriptions.Cancel(subID, params)
	if err != nil {
		return nil, err
	}
	return fromStripe(s), nil
}

// ChangePrice swaps the subscription's (single) item to a new price; the
// provider handles proration.
func (p *StripeProvider) ChangePrice(ctx context.Context, subID, priceID string) (*RemoteSubscription, error) {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := p.api.Subscriptions.Get(subID, getParams)
	if err != nil {
		return nil, err
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, ErrNoSubscriptionItem
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(current.Items.Data[0].ID),
			Price: stripe.String(priceID),
		}},
	}
	params.Context = ctx
	s, err := p.api.Subscriptions.Update(subID, params)
	if err != nil {
		return nil, err
	}
	return fromStripe(s), nil
}

func (p *StripeProvider) RefundPayment(ctx context.Context, paymentIntentID string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	r, err := p.api.Refunds.New(params)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}
