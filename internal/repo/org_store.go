package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mydaylogs/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrLastAdmin = errors.New("organization must retain at least one admin")
)

type OrgStore struct{ db *gorm.DB }

func NewOrgStore(db *gorm.DB) *OrgStore { return &OrgStore{db: db} }

func (s *OrgStore) Get(ctx context.Context, orgID string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).Where("id = ?", orgID).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *OrgStore) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	return s.db.WithContext(ctx).Create(org).Error
}

func (s *OrgStore) Save(ctx context.Context, org *models.Organization) error {
	return s.db.WithContext(ctx).Save(org).Error
}

// List returns all non-archived organizations (cron iterates over these).
func (s *OrgStore) List(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Where("name NOT LIKE ?", "archived-%").
		Order("created_at asc").
		Find(&orgs).Error
	return orgs, err
}

// Archive never hard-deletes: the record is renamed with a timestamp prefix
// so foreign keys and audit history stay intact.
func (s *OrgStore) Archive(ctx context.Context, orgID string, now time.Time) (*models.Organization, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(org.Name, "archived-") {
		return org, nil
	}
	org.Name = fmt.Sprintf("archived-%s-%s", now.UTC().Format("20060102150405"), org.Name)
	if err := s.Save(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Overrides carries nullable per-field quota overrides. A nil field leaves
// the stored value untouched; use ClearOverrides to reset to plan defaults.
type Overrides struct {
	TemplateLimit      *int
	TeamLimit          *int
	ManagerLimit       *int
	MonthlySubmissions *int
}

func (s *OrgStore) SetOverrides(ctx context.Context, orgID string, ov Overrides) (*models.Organization, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if ov.TemplateLimit != nil {
		org.CustomTemplateLimit = ov.TemplateLimit
	}
	if ov.TeamLimit != nil {
		org.CustomTeamLimit = ov.TeamLimit
	}
	if ov.ManagerLimit != nil {
		org.CustomManagerLimit = ov.ManagerLimit
	}
	if ov.MonthlySubmissions != nil {
		org.CustomMonthlySubmissions = ov.MonthlySubmissions
	}
	if err := s.Save(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrgStore) ClearOverrides(ctx context.Context, orgID string) error {
	return s.db.WithContext(ctx).Model(&models.Organization{}).
		Where("id = ?", orgID).
		Updates(map[string]any{
			"custom_template_limit":      nil,
			"custom_team_limit":          nil,
			"custom_manager_limit":       nil,
			"custom_monthly_submissions": nil,
		}).Error
}

// ---- profiles ----

func (s *OrgStore) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).Where("id = ?", profileID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *OrgStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *OrgStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Email = strings.ToLower(p.Email)
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.db.WithContext(ctx).Create(p).Error
}

// FirstAdminEmail returns the oldest admin profile's email. The remote
// fetcher needs an email for its fallback phase; the first admin is the
// closest thing to "the account owner" the data model has.
func (s *OrgStore) FirstAdminEmail(ctx context.Context, orgID string) (string, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND role = ?", orgID, models.RoleAdmin).
		Order("created_at asc").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

// ChangeRole updates a profile's role, refusing a change that would leave
// the organization without any admin.
func (s *OrgStore) ChangeRole(ctx context.Context, orgID, profileID string, role models.ProfileRole) (*models.Profile, error) {
	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	if p.Role == models.RoleAdmin && role != models.RoleAdmin {
		var admins int64
		err := s.db.WithContext(ctx).Model(&models.Profile{}).
			Where("organization_id = ? AND role = ?", p.OrganizationID, models.RoleAdmin).
			Count(&admins).Error
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, ErrLastAdmin
		}
	}
	p.Role = role
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}
