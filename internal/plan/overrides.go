package plan

import (
	"mydaylogs/internal/models"
)

// Merge applies per-organization overrides on top of the plan limits.
// Only non-nil override fields replace catalog values.
func Merge(base Limits, org *models.Organization) Limits {
	if org == nil {
		return base
	}
	out := base
	if org.CustomTemplateLimit != nil {
		out.MaxTemplates = *org.CustomTemplateLimit
	}
	if org.CustomTeamLimit != nil {
		out.MaxTeamMembers = *org.CustomTeamLimit
	}
	if org.CustomManagerLimit != nil {
		out.MaxAdminAccounts = *org.CustomManagerLimit
	}
	if org.CustomMonthlySubmissions != nil {
		v := *org.CustomMonthlySubmissions
		out.MaxReportSubmissions = &v
	}
	return out
}
