package models

import (
	"time"

	"gorm.io/datatypes"
)

// Triggers recorded on subscription activity entries.
const (
	TriggerLogin   = "login"
	TriggerCron    = "cron"
	TriggerManual  = "manual"
	TriggerWebhook = "webhook"
)

// SubscriptionActivityLog is append-only. Rows are written whenever
// reconciliation or an admin action changes a subscription's plan or status,
// and are never mutated or deleted.
type SubscriptionActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrganizationID string `gorm:"index;size:64;not null" json:"organization_id"`
	SubscriptionID *uint  `gorm:"index" json:"subscription_id,omitempty"`

	EventType  string `gorm:"size:64;not null" json:"event_type"`
	FromPlan   string `gorm:"size:32" json:"from_plan"`
	ToPlan     string `gorm:"size:32" json:"to_plan"`
	FromStatus string `gorm:"size:32" json:"from_status"`
	ToStatus   string `gorm:"size:32" json:"to_status"`

	TriggeredBy string         `gorm:"size:32" json:"triggered_by"`
	AdminEmail  string         `gorm:"size:255" json:"admin_email,omitempty"`
	Details     datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
}

// AuditLog is the org-scoped application audit trail. Unlike the subscription
// activity log it falls under plan retention and is pruned by the cleanup job.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	OrganizationID string         `gorm:"index;size:64;not null" json:"organization_id"`
	ActorEmail     string         `gorm:"size:255" json:"actor_email"`
	Action         string         `gorm:"size:128;not null" json:"action"`
	Details        datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
}
