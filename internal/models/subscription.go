package models

import (
	"time"
)

// Subscription statuses. The intent is exactly one row per organization with
// status active or trialing; the dedupe pass in the reconciler enforces it.
const (
	SubStatusActive    = "active"
	SubStatusTrialing  = "trialing"
	SubStatusCancelled = "cancelled"
	SubStatusExpired   = "expired"
	SubStatusInactive  = "inactive"
)

type Subscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID string `gorm:"index;size:64;not null" json:"organization_id"`
	PlanName       string `gorm:"size:32;not null" json:"plan_name"`
	Status         string `gorm:"size:32;not null" json:"status"`

	IsTrial     bool       `json:"is_trial"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`

	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`

	StripeSubscriptionID string `gorm:"index;size:128" json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     string `gorm:"size:128" json:"stripe_customer_id,omitempty"`
}

// IsLive reports whether the row grants plan entitlements.
func (s *Subscription) IsLive() bool {
	return s.Status == SubStatusActive || s.Status == SubStatusTrialing
}

// PeriodEnded reports whether the paid period is over at the given time.
func (s *Subscription) PeriodEnded(now time.Time) bool {
	return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now)
}
