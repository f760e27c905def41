package plan

// Plan names. Anything else resolves to starter.
const (
	Starter = "starter"
	Growth  = "growth"
	Scale   = "scale"
)

// Limits are the numeric caps and feature flags a plan grants.
// MaxReportSubmissions nil means unlimited.
type Limits struct {
	MaxTemplates         int  `json:"maxTemplates"`
	MaxTeamMembers       int  `json:"maxTeamMembers"`
	MaxAdminAccounts     int  `json:"maxAdminAccounts"`
	MaxReportSubmissions *int `json:"maxReportSubmissions"`
	HasCustomBranding    bool `json:"hasCustomBranding"`
	HasTaskAutomation    bool `json:"hasTaskAutomation"`

	ReportRetentionDays   int `json:"reportRetentionDays"`
	AuditLogRetentionDays int `json:"auditLogRetentionDays"`
}

var starterSubmissions = 50

var catalog = map[string]Limits{
	Starter: {
		MaxTemplates:          3,
		MaxTeamMembers:        5,
		MaxAdminAccounts:      1,
		MaxReportSubmissions:  &starterSubmissions,
		ReportRetentionDays:   90,
		AuditLogRetentionDays: 30,
	},
	Growth: {
		MaxTemplates:          25,
		MaxTeamMembers:        25,
		MaxAdminAccounts:      3,
		MaxReportSubmissions:  nil,
		HasCustomBranding:     true,
		HasTaskAutomation:     true,
		ReportRetentionDays:   180,
		AuditLogRetentionDays: 90,
	},
	Scale: {
		MaxTemplates:          100,
		MaxTeamMembers:        100,
		MaxAdminAccounts:      10,
		MaxReportSubmissions:  nil,
		HasCustomBranding:     true,
		HasTaskAutomation:     true,
		ReportRetentionDays:   365,
		AuditLogRetentionDays: 90,
	},
}

// GetLimits returns the limits for a plan name. Unknown names resolve to
// starter.
func GetLimits(planName string) Limits {
	if l, ok := catalog[planName]; ok {
		return l
	}
	return catalog[Starter]
}

// Known reports whether the name is one of the catalog plans.
func Known(planName string) bool {
	_, ok := catalog[planName]
	return ok
}
