package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	subs        []*RemoteSubscription
	customers   map[string][]Customer
	custSubs    map[string][]*RemoteSubscription
	listErr     error
	custErr     error
	custSubsErr error

	emailLookups []string
}

func (f *fakeProvider) ListSubscriptions(context.Context, int) ([]*RemoteSubscription, error) {
	return f.subs, f.listErr
}

func (f *fakeProvider) ListCustomersByEmail(_ context.Context, email string) ([]Customer, error) {
	f.emailLookups = append(f.emailLookups, email)
	return f.customers[email], f.custErr
}

func (f *fakeProvider) ListCustomerSubscriptions(_ context.Context, customerID string) ([]*RemoteSubscription, error) {
	return f.custSubs[customerID], f.custSubsErr
}

func TestFindByMetadata(t *testing.T) {
	p := &fakeProvider{subs: []*RemoteSubscription{
		{ID: "sub_other", Status: "active", Metadata: map[string]string{MetadataOrgKey: "org-2"}},
		{ID: "sub_lapsed", Status: "canceled", Metadata: map[string]string{MetadataOrgKey: "org-1"}},
		{ID: "sub_live", Status: "active", Metadata: map[string]string{MetadataOrgKey: "org-1"}},
	}}

	lk, err := NewFetcher(p).Find(context.Background(), "org-1", "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, BindingMetadata, lk.Method)
	require.NotNil(t, lk.Subscription)
	assert.Equal(t, "sub_live", lk.Subscription.ID)

	// metadata matched, so email lookup never ran
	assert.Empty(t, p.emailLookups)
}

func TestFindFallsBackToEmail(t *testing.T) {
	p := &fakeProvider{
		customers: map[string][]Customer{
			"a@b.c": {{ID: "cus_1", Email: "a@b.c"}},
		},
		custSubs: map[string][]*RemoteSubscription{
			"cus_1": {
				{ID: "sub_old", Status: "canceled"},
				{ID: "sub_live", Status: "trialing"},
			},
		},
	}

	lk, err := NewFetcher(p).Find(context.Background(), "org-1", "  A@B.C ")
	require.NoError(t, err)
	assert.Equal(t, BindingEmail, lk.Method)
	require.NotNil(t, lk.Subscription)
	assert.Equal(t, "sub_live", lk.Subscription.ID)

	// email is normalized before lookup
	assert.Equal(t, []string{"a@b.c"}, p.emailLookups)
}

func TestFindNoMatch(t *testing.T) {
	p := &fakeProvider{}

	lk, err := NewFetcher(p).Find(context.Background(), "org-1", "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, BindingNone, lk.Method)
	assert.Nil(t, lk.Subscription)
}

func TestFindEmptyEmailSkipsPhaseTwo(t *testing.T) {
	p := &fakeProvider{}

	lk, err := NewFetcher(p).Find(context.Background(), "org-1", "   ")
	require.NoError(t, err)
	assert.Equal(t, BindingNone, lk.Method)
	assert.Empty(t, p.emailLookups)
}

func TestFindProviderErrorPropagates(t *testing.T) {
	p := &fakeProvider{listErr: errors.New("stripe down")}

	_, err := NewFetcher(p).Find(context.Background(), "org-1", "a@b.c")
	assert.Error(t, err)
}
