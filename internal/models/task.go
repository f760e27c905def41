package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskTemplate is a checklist template admins assign to staff. Counted
// against the plan's template limit while is_active is true.
type TaskTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID string         `gorm:"index;size:64;not null" json:"organization_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Description    string         `gorm:"size:1024" json:"description"`
	Items          datatypes.JSON `gorm:"type:jsonb" json:"items,omitempty"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	IsRecurring    bool           `json:"is_recurring"`
	CreatedBy      string         `gorm:"size:64" json:"created_by"`
}

// TemplateAssignment binds a template to a staff profile.
type TemplateAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrganizationID string `gorm:"index;size:64;not null" json:"organization_id"`
	TemplateID     uint   `gorm:"index;not null" json:"template_id"`
	ProfileID      string `gorm:"index;size:64;not null" json:"profile_id"`
}

// SubmittedReport is a completed checklist. Soft-deleted rows (deleted_at set)
// are excluded from usage counts; hard deletion happens only via the
// retention cleanup job.
type SubmittedReport struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	OrganizationID string         `gorm:"index;size:64;not null" json:"organization_id"`
	TemplateID     uint           `gorm:"index" json:"template_id"`
	SubmittedBy    string         `gorm:"size:64;not null" json:"submitted_by"`
	Answers        datatypes.JSON `gorm:"type:jsonb" json:"answers,omitempty"`
	PhotoURLs      datatypes.JSON `gorm:"type:jsonb" json:"photo_urls,omitempty"`
}

// UsageCounts is a point-in-time snapshot used by limit checks.
type UsageCounts struct {
	Templates          int `json:"templateCount"`
	TeamMembers        int `json:"teamMemberCount"`
	Admins             int `json:"adminCount"`
	MonthlySubmissions int `json:"monthlySubmissionCount"`
}
