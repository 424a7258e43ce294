package products

import (
	"context"
	"strings"

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

func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) Save(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindByItemCode(ctx context.Context, orgID uuid.UUID, itemCode string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("org_id = ? AND item_code = ?", orgID, itemCode).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListFilter narrows the catalogue listing.
type ListFilter struct {
	WarehouseID     *uuid.UUID
	Category        *enums.ProductCategory
	IncludeInactive bool
	pagination.Params
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter, cursor *pagination.Cursor) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if filter.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.Category != nil {
		q = q.Where("category = ?", *filter.Category)
	}
	var rows []models.Product
	err := q.Scopes(pagination.Scope("", cursor, filter.Limit)).Find(&rows).Error
	return rows, err
}

// ListActive returns active products, optionally limited to ids, for price sheet generation.
func (r *Repository) ListActive(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Where("org_id = ? AND is_active = ?", orgID, true)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var rows []models.Product
	err := q.Order("item_code ASC").Find(&rows).Error
	return rows, err
}

// SearchCriteria is the structured form of a catalogue search. Every keyword
// must match the item code or the description.
type SearchCriteria struct {
	Keywords       []string
	Category       *enums.ProductCategory
	MaxCostPerLb   *float64
	WarehouseState string
	Limit          int
}

func (r *Repository) Search(ctx context.Context, orgID uuid.UUID, c SearchCriteria) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*").
		Where("products.org_id = ? AND products.is_active = ?", orgID, true)

	for _, kw := range c.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		like := "%" + escapeLike(kw) + "%"
		q = q.Where("(LOWER(products.item_code) LIKE ? ESCAPE '\\' OR LOWER(products.description) LIKE ? ESCAPE '\\')", like, like)
	}
	if c.Category != nil {
		q = q.Where("products.category = ?", *c.Category)
	}
	if c.MaxCostPerLb != nil {
		q = q.Where("products.cost_per_lb IS NOT NULL AND products.cost_per_lb <= ?", *c.MaxCostPerLb)
	}
	if state := strings.ToUpper(strings.TrimSpace(c.WarehouseState)); state != "" {
		q = q.Joins("JOIN warehouses ON warehouses.id = products.warehouse_id").
			Where("warehouses.state = ?", state)
	}

	var rows []models.Product
	err := q.Order("products.item_code ASC").Limit(pagination.NormalizeLimit(c.Limit)).Find(&rows).Error
	return rows, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
