package pricesheets

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

// Create inserts the sheet and its items.
func (r *Repository) Create(ctx context.Context, sheet *models.PriceSheet) error {
	if sheet.ID == uuid.Nil {
		sheet.ID = uuid.New()
	}
	items := sheet.Items
	sheet.Items = nil
	defer func() { sheet.Items = items }()

	if err := r.db.WithContext(ctx).Create(sheet).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].PriceSheetID = sheet.ID
	}
	return r.db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (r *Repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.PriceSheet, error) {
	var sheet models.PriceSheet
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&sheet).Error
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// ListFilter narrows sheet listings.
type ListFilter struct {
	ZoneID *uuid.UUID
	Status *enums.PriceSheetStatus
	pagination.Params
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter, cursor *pagination.Cursor) ([]models.PriceSheet, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if filter.ZoneID != nil {
		q = q.Where("zone_id = ?", *filter.ZoneID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var rows []models.PriceSheet
	err := q.Scopes(pagination.Scope("", cursor, filter.Limit)).Find(&rows).Error
	return rows, err
}

// CountItems returns item counts keyed by sheet id.
func (r *Repository) CountItems(ctx context.Context, sheetIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(sheetIDs))
	if len(sheetIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PriceSheetID uuid.UUID
		N            int
	}
	err := r.db.WithContext(ctx).Model(&models.PriceSheetItem{}).
		Select("price_sheet_id, COUNT(*) AS n").
		Where("price_sheet_id IN ?", sheetIDs).
		Group("price_sheet_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PriceSheetID] = row.N
	}
	return out, nil
}

// UpdateStatus moves a sheet from one status to another. It reports false
// when the sheet was no longer in the expected status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PriceSheetStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	switch to {
	case enums.PriceSheetPublished:
		updates["published_at"] = at
	case enums.PriceSheetArchived:
		updates["archived_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&models.PriceSheet{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// ListExpiredPublished returns published sheets across all orgs whose window closed before now.
func (r *Repository) ListExpiredPublished(ctx context.Context, now time.Time, limit int) ([]models.PriceSheet, error) {
	var rows []models.PriceSheet
	err := r.db.WithContext(ctx).
		Where("status = ? AND valid_until <= ?", enums.PriceSheetPublished, now).
		Order("valid_until ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
