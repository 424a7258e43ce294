package deals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	"github.com/frostline/frostline-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, d *models.ManufacturerDeal) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.ManufacturerDeal, error) {
	var d models.ManufacturerDeal
	if err := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

type ListFilter struct {
	Status *enums.DealStatus
	pagination.Params
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter, cursor *pagination.Cursor) ([]models.ManufacturerDeal, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var rows []models.ManufacturerDeal
	err := q.Scopes(pagination.Scope("", cursor, filter.Limit)).Find(&rows).Error
	return rows, err
}

// Decision is the review outcome written onto a pending deal.
type Decision struct {
	Status     enums.DealStatus
	Reason     *string
	ReviewedBy *uuid.UUID
	At         time.Time
}

// Decide moves a pending deal to its decided status. It reports false when
// the deal was no longer pending.
func (r *Repository) Decide(ctx context.Context, id uuid.UUID, d Decision) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ManufacturerDeal{}).
		Where("id = ? AND status = ?", id, enums.DealPending).
		Updates(map[string]any{
			"status":           d.Status,
			"rejection_reason": d.Reason,
			"reviewed_by":      d.ReviewedBy,
			"reviewed_at":      d.At,
			"updated_at":       d.At,
		})
	return res.RowsAffected > 0, res.Error
}

// ListExpiredPending returns pending deals across orgs whose expiration date has passed.
func (r *Repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.ManufacturerDeal, error) {
	var rows []models.ManufacturerDeal
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiration_date IS NOT NULL AND expiration_date < ?", enums.DealPending, now).
		Order("expiration_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
