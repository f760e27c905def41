package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mydaylogs/internal/models"
)

// ActivityStore writes the append-only subscription audit trail. Nothing in
// this store mutates or deletes existing rows.
type ActivityStore struct{ db *gorm.DB }

func NewActivityStore(db *gorm.DB) *ActivityStore { return &ActivityStore{db: db} }

func (s *ActivityStore) Append(ctx context.Context, e *models.SubscriptionActivityLog) error {
	e.CreatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *ActivityStore) ListByOrg(ctx context.Context, orgID string, limit int) ([]models.SubscriptionActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.SubscriptionActivityLog
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// AppendAudit writes an application audit row (subject to plan retention).
func (s *ActivityStore) AppendAudit(ctx context.Context, e *models.AuditLog) error {
	e.CreatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Create(e).Error
}
