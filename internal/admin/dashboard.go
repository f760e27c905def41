package admin

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"mydaylogs/internal/models"
)

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardTTL      = 30 * time.Second
)

// DashboardData is the aggregate view served to the support console.
type DashboardData struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	Organizations  int             `json:"organizations"`
	LiveByPlan     map[string]int  `json:"live_by_plan"`
	LiveByStatus   map[string]int  `json:"live_by_status"`
	ActiveTrials   int             `json:"active_trials"`
	StripeBound    int             `json:"stripe_bound"`
	UnboundOrgIDs  []string        `json:"unbound_org_ids"`
	Overridden     []overriddenOrg `json:"overridden_orgs"`
	CancellingSoon []string        `json:"cancelling_soon"`
}

type overriddenOrg struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// dashboard serves DashboardData from a short-lived cache and collapses
// concurrent rebuilds into a single query pass.
type dashboard struct {
	d      Dependencies
	single singleflight.Group
}

func newDashboard(d Dependencies) *dashboard {
	return &dashboard{d: d}
}

func (db *dashboard) fetch(ctx context.Context) (*DashboardData, error) {
	if v, ok := db.d.Cache.Get(dashboardCacheKey); ok {
		if data, ok := v.(*DashboardData); ok {
			return data, nil
		}
	}
	v, err, _ := db.single.Do(dashboardCacheKey, func() (any, error) {
		data, err := db.build(ctx)
		if err != nil {
			return nil, err
		}
		db.d.Cache.Set(dashboardCacheKey, data, dashboardTTL)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DashboardData), nil
}

func (db *dashboard) build(ctx context.Context) (*DashboardData, error) {
	orgs, err := db.d.Orgs.List(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := db.d.Subs.ListLive(ctx)
	if err != nil {
		return nil, err
	}

	data := &DashboardData{
		GeneratedAt:  time.Now().UTC(),
		LiveByPlan:   make(map[string]int),
		LiveByStatus: make(map[string]int),
	}
	data.Organizations = len(orgs)

	bound := make(map[string]bool, len(subs))
	for i := range subs {
		s := &subs[i]
		data.LiveByPlan[s.PlanName]++
		data.LiveByStatus[s.Status]++
		if s.IsTrial || s.Status == models.SubStatusTrialing {
			data.ActiveTrials++
		}
		if s.StripeSubscriptionID != "" {
			data.StripeBound++
			bound[s.OrganizationID] = true
		}
		if s.CancelAtPeriodEnd {
			data.CancellingSoon = append(data.CancellingSoon, s.OrganizationID)
		}
	}
	for i := range orgs {
		o := &orgs[i]
		if !bound[o.ID] {
			data.UnboundOrgIDs = append(data.UnboundOrgIDs, o.ID)
		}
		if o.CustomTemplateLimit != nil || o.CustomTeamLimit != nil ||
			o.CustomManagerLimit != nil || o.CustomMonthlySubmissions != nil {
			data.Overridden = append(data.Overridden, overriddenOrg{ID: o.ID, Name: o.Name})
		}
	}
	return data, nil
}
