package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mydaylogs/internal/logs"
	"mydaylogs/internal/models"
)

// UsageStore answers read-only aggregate queries for limit checks.
type UsageStore struct{ db *gorm.DB }

func NewUsageStore(db *gorm.DB) *UsageStore { return &UsageStore{db: db} }

// Counts snapshots current usage. A failed count degrades to zero instead of
// failing the request: limit checks must stay permissive rather than block
// unrelated UI on a read error.
func (s *UsageStore) Counts(ctx context.Context, orgID string, submissionsSince time.Time) models.UsageCounts {
	var out models.UsageCounts
	out.Templates = s.count(ctx, s.db.Model(&models.TaskTemplate{}).
		Where("organization_id = ? AND is_active = ?", orgID, true), "templates")
	out.TeamMembers = s.count(ctx, s.db.Model(&models.Profile{}).
		Where("organization_id = ?", orgID), "team members")
	out.Admins = s.count(ctx, s.db.Model(&models.Profile{}).
		Where("organization_id = ? AND role IN ?", orgID, []models.ProfileRole{models.RoleAdmin, models.RoleManager}), "admins")
	out.MonthlySubmissions = s.count(ctx, s.db.Model(&models.SubmittedReport{}).
		Where("organization_id = ? AND deleted_at IS NULL AND created_at >= ?", orgID, submissionsSince), "submissions")
	return out
}

func (s *UsageStore) count(ctx context.Context, q *gorm.DB, what string) int {
	var n int64
	if err := q.WithContext(ctx).Count(&n).Error; err != nil {
		logs.Logger.Warnf("usage count failed (%s): %v", what, err)
		return 0
	}
	return int(n)
}

// ---- retention cleanup (write path: errors propagate) ----

func (s *UsageStore) DeleteReportsBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("organization_id = ? AND created_at < ?", orgID, cutoff).
		Delete(&models.SubmittedReport{})
	return res.RowsAffected, res.Error
}

func (s *UsageStore) DeleteAuditLogsBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("organization_id = ? AND created_at < ?", orgID, cutoff).
		Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
