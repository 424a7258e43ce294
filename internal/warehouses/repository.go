package warehouses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db/models"
)

// Repository persists warehouses. Every read is scoped to an org.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, w *models.Warehouse) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error) {
	var w models.Warehouse
	if err := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) FindByCode(ctx context.Context, orgID uuid.UUID, code string) (*models.Warehouse, error) {
	var w models.Warehouse
	if err := r.db.WithContext(ctx).Where("org_id = ? AND code = ?", orgID, code).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]models.Warehouse, error) {
	var rows []models.Warehouse
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("code ASC").
		Find(&rows).Error
	return rows, err
}

// ListByIDs loads the given warehouses in one query, keyed by ID.
func (r *Repository) ListByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Warehouse, error) {
	out := make(map[uuid.UUID]models.Warehouse, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Warehouse
	if err := r.db.WithContext(ctx).Where("org_id = ? AND id IN ?", orgID, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, w := range rows {
		out[w.ID] = w
	}
	return out, nil
}
