package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mydaylogs/internal/models"
)

type TaskStore struct{ db *gorm.DB }

func NewTaskStore(db *gorm.DB) *TaskStore { return &TaskStore{db: db} }

func (s *TaskStore) CreateTemplate(ctx context.Context, t *models.TaskTemplate) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *TaskStore) GetTemplate(ctx context.Context, orgID string, id uint) (*models.TaskTemplate, error) {
	var t models.TaskTemplate
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskStore) ListTemplates(ctx context.Context, orgID string) ([]models.TaskTemplate, error) {
	var out []models.TaskTemplate
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// DeactivateTemplate frees a template slot without losing history.
func (s *TaskStore) DeactivateTemplate(ctx context.Context, orgID string, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.TaskTemplate{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TaskStore) CreateAssignment(ctx context.Context, a *models.TemplateAssignment) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *TaskStore) CreateReport(ctx context.Context, r *models.SubmittedReport) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *TaskStore) ListReports(ctx context.Context, orgID string, limit int) ([]models.SubmittedReport, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.SubmittedReport
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND deleted_at IS NULL", orgID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
