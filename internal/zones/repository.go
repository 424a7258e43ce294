package zones

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, z *models.Zone) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(z).Error
}

func (r *Repository) Update(ctx context.Context, z *models.Zone) error {
	return r.db.WithContext(ctx).
		Model(&models.Zone{}).
		Where("org_id = ? AND id = ?", z.OrgID, z.ID).
		Updates(map[string]any{
			"name":       z.Name,
			"color":      z.Color,
			"states":     z.States,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

// Delete removes the zone and reports whether a row was deleted.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).Delete(&models.Zone{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Zone, error) {
	var z models.Zone
	if err := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&z).Error; err != nil {
		return nil, err
	}
	return &z, nil
}

// List returns every zone of the org. Orgs carry a handful of zones, so state
// lookups filter in memory rather than relying on array operators.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]models.Zone, error) {
	var rows []models.Zone
	err := r.db.WithContext(ctx).Where("org_id = ?", orgID).Order("name ASC").Find(&rows).Error
	return rows, err
}
