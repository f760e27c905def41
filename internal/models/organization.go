package models

import (
	"time"
)

// Organization is the tenant and billing boundary. Organizations are never
// hard-deleted; archival renames them with a timestamp prefix.
type Organization struct {
	ID        string    `gorm:"primaryKey;size:64" json:"organization_id"`
	Name      string    `gorm:"size:255;not null" json:"organization_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Per-organization overrides. nil means "use the plan limit".
	CustomTemplateLimit      *int `json:"custom_template_limit,omitempty"`
	CustomTeamLimit          *int `json:"custom_team_limit,omitempty"`
	CustomManagerLimit       *int `json:"custom_manager_limit,omitempty"`
	CustomMonthlySubmissions *int `json:"custom_monthly_submissions,omitempty"`
}

type ProfileRole string

const (
	RoleAdmin       ProfileRole = "admin"
	RoleManager     ProfileRole = "manager"
	RoleStaff       ProfileRole = "staff"
	RoleMasterAdmin ProfileRole = "master_admin"
	RoleSuperuser   ProfileRole = "superuser"
)

// Profile is a user's membership in exactly one organization.
type Profile struct {
	ID             string      `gorm:"primaryKey;size:64" json:"id"`
	OrganizationID string      `gorm:"index;size:64;not null" json:"organization_id"`
	Email          string      `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName       string      `gorm:"size:255" json:"full_name"`
	Role           ProfileRole `gorm:"size:32;not null" json:"role"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsAdmin reports whether the role counts against the admin-seat limit.
func (r ProfileRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleManager
}
