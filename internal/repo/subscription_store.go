package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"mydaylogs/internal/models"
	"mydaylogs/internal/plan"
)

type SubscriptionStore struct{ db *gorm.DB }

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore { return &SubscriptionStore{db: db} }

// GetLive returns the organization's active-or-trialing row, preferring one
// bound to a remote subscription id when duplicates exist.
func (s *SubscriptionStore) GetLive(ctx context.Context, orgID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND status IN ?", orgID, []string{models.SubStatusActive, models.SubStatusTrialing}).
		Order("CASE WHEN stripe_subscription_id <> '' THEN 0 ELSE 1 END, updated_at desc").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetForUpsert picks the row the reconciler should update in place: the one
// already bound to the remote id if present, otherwise the newest row.
func (s *SubscriptionStore) GetForUpsert(ctx context.Context, orgID, remoteID string) (*models.Subscription, error) {
	var sub models.Subscription
	if remoteID != "" {
		err := s.db.WithContext(ctx).
			Where("organization_id = ? AND stripe_subscription_id = ?", orgID, remoteID).
			First(&sub).Error
		if err == nil {
			return &sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("updated_at desc").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionStore) ListByOrg(ctx context.Context, orgID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("updated_at desc").
		Find(&subs).Error
	return subs, err
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *models.Subscription) error {
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *SubscriptionStore) Save(ctx context.Context, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(sub).Error
}

// DeleteOthers removes every other subscription row for the organization.
// It is the dedupe pass behind the one-row-per-org invariant.
func (s *SubscriptionStore) DeleteOthers(ctx context.Context, orgID string, keepID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("organization_id = ? AND id <> ?", orgID, keepID).
		Delete(&models.Subscription{})
	return res.RowsAffected, res.Error
}

// ListExpiredTrials returns trial rows whose trial end has passed. Granted
// and synced trials carry status trialing; both live statuses match so no
// trial row escapes expiry.
func (s *SubscriptionStore) ListExpiredTrials(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("is_trial = ? AND status IN ? AND trial_ends_at < ?",
			true, []string{models.SubStatusActive, models.SubStatusTrialing}, now).
		Find(&subs).Error
	return subs, err
}

// ListLive returns every active-or-trialing row (resync-all iterates these).
func (s *SubscriptionStore) ListLive(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.SubStatusActive, models.SubStatusTrialing}).
		Find(&subs).Error
	return subs, err
}

// ActivePlan resolves the plan the organization is entitled to right now.
// No live row means starter.
func (s *SubscriptionStore) ActivePlan(ctx context.Context, orgID string) (string, error) {
	sub, err := s.GetLive(ctx, orgID)
	if errors.Is(err, ErrNotFound) {
		return plan.Starter, nil
	}
	if err != nil {
		return "", err
	}
	if !plan.Known(sub.PlanName) {
		return plan.Starter, nil
	}
	return sub.PlanName, nil
}
