package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *models.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(c).Error
}

// Save writes every column of an existing customer.
func (r *Repository) Save(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListParams filters the customer list. A nil ZoneID lists every zone.
type ListParams struct {
	ZoneID *uuid.UUID
	pagination.Params
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, params ListParams, cursor *pagination.Cursor) ([]models.Customer, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if params.ZoneID != nil {
		q = q.Where("zone_id = ?", *params.ZoneID)
	}
	var rows []models.Customer
	err := q.Scopes(pagination.Scope("", cursor, params.Limit)).Find(&rows).Error
	return rows, err
}

// ListGeocoded returns customers that can be placed on the map.
func (r *Repository) ListGeocoded(ctx context.Context, orgID uuid.UUID) ([]models.Customer, error) {
	var rows []models.Customer
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", orgID).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}
