package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mydaylogs/internal/models"
)

func TestGetLimitsKnownPlans(t *testing.T) {
	starter := GetLimits(Starter)
	assert.Equal(t, 3, starter.MaxTemplates)
	assert.Equal(t, 5, starter.MaxTeamMembers)
	assert.Equal(t, 1, starter.MaxAdminAccounts)
	require.NotNil(t, starter.MaxReportSubmissions)
	assert.Equal(t, 50, *starter.MaxReportSubmissions)
	assert.False(t, starter.HasTaskAutomation)
	assert.Equal(t, 90, starter.ReportRetentionDays)

	growth := GetLimits(Growth)
	assert.Equal(t, 25, growth.MaxTemplates)
	assert.Nil(t, growth.MaxReportSubmissions)
	assert.True(t, growth.HasCustomBranding)

	scale := GetLimits(Scale)
	assert.Equal(t, 100, scale.MaxTemplates)
	assert.Equal(t, 10, scale.MaxAdminAccounts)
	assert.Equal(t, 365, scale.ReportRetentionDays)
}

func TestGetLimitsUnknownFallsBackToStarter(t *testing.T) {
	assert.Equal(t, GetLimits(Starter), GetLimits("enterprise"))
	assert.Equal(t, GetLimits(Starter), GetLimits(""))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(Starter))
	assert.True(t, Known(Growth))
	assert.True(t, Known(Scale))
	assert.False(t, Known("free"))
}

func TestMergeOverrides(t *testing.T) {
	ten, twoHundred := 10, 200
	org := &models.Organization{
		CustomTemplateLimit:      &ten,
		CustomMonthlySubmissions: &twoHundred,
	}

	out := Merge(GetLimits(Starter), org)
	assert.Equal(t, 10, out.MaxTemplates)
	require.NotNil(t, out.MaxReportSubmissions)
	assert.Equal(t, 200, *out.MaxReportSubmissions)

	// untouched fields keep catalog values
	assert.Equal(t, 5, out.MaxTeamMembers)
	assert.Equal(t, 1, out.MaxAdminAccounts)
}

func TestMergeNilOrg(t *testing.T) {
	base := GetLimits(Growth)
	assert.Equal(t, base, Merge(base, nil))
}

func TestMergeDoesNotAliasCatalog(t *testing.T) {
	n := 5
	org := &models.Organization{CustomMonthlySubmissions: &n}
	out := Merge(GetLimits(Starter), org)

	*out.MaxReportSubmissions = 999
	assert.Equal(t, 50, *GetLimits(Starter).MaxReportSubmissions)
}
