package freight

import (
	"context"
	"time"

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

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, rate *models.FreightRate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).Delete(&models.FreightRate{})
	return res.RowsAffected > 0, res.Error
}

// ListFilter narrows rate listings. ActiveAt hides rates outside their window.
type ListFilter struct {
	OriginWarehouseID *uuid.UUID
	DestinationZoneID *uuid.UUID
	ActiveAt          *time.Time
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]models.FreightRate, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if filter.OriginWarehouseID != nil {
		q = q.Where("origin_warehouse_id = ?", *filter.OriginWarehouseID)
	}
	if filter.DestinationZoneID != nil {
		q = q.Where("destination_zone_id = ?", *filter.DestinationZoneID)
	}
	if filter.ActiveAt != nil {
		q = activeAt(q, *filter.ActiveAt)
	}
	var rows []models.FreightRate
	err := q.Order("valid_until DESC").Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// ActiveRate returns the newest rate for the lane that is valid at now.
func (r *Repository) ActiveRate(ctx context.Context, orgID, originWarehouseID, zoneID uuid.UUID, now time.Time) (*models.FreightRate, error) {
	var rate models.FreightRate
	err := activeAt(r.db.WithContext(ctx), now).
		Where("org_id = ? AND origin_warehouse_id = ? AND destination_zone_id = ?", orgID, originWarehouseID, zoneID).
		Order("valid_from DESC").
		Order("created_at DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// ActiveRatesForZone returns, per origin warehouse, the newest rate into the
// zone that is valid at now.
func (r *Repository) ActiveRatesForZone(ctx context.Context, orgID, zoneID uuid.UUID, now time.Time) (map[uuid.UUID]models.FreightRate, error) {
	var rows []models.FreightRate
	err := activeAt(r.db.WithContext(ctx), now).
		Where("org_id = ? AND destination_zone_id = ?", orgID, zoneID).
		Order("valid_from DESC").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.FreightRate, len(rows))
	for _, rate := range rows {
		if _, seen := out[rate.OriginWarehouseID]; !seen {
			out[rate.OriginWarehouseID] = rate
		}
	}
	return out, nil
}

// ExpiringLane is a lane whose latest rate lapses soon with nothing to replace it.
type ExpiringLane struct {
	OrgID             uuid.UUID
	OriginWarehouseID uuid.UUID
	DestinationZoneID uuid.UUID
	ValidUntil        time.Time
}

// ListExpiringLanes finds lanes whose latest valid_until falls in [now, now+ahead).
// Lanes that already lapsed are not reported again.
func (r *Repository) ListExpiringLanes(ctx context.Context, now time.Time, ahead time.Duration) ([]ExpiringLane, error) {
	var rows []models.FreightRate
	err := r.db.WithContext(ctx).
		Where("valid_until >= ?", now).
		Order("org_id, origin_warehouse_id, destination_zone_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	type laneKey struct{ org, origin, zone uuid.UUID }
	latest := map[laneKey]time.Time{}
	var order []laneKey
	for _, rate := range rows {
		k := laneKey{rate.OrgID, rate.OriginWarehouseID, rate.DestinationZoneID}
		prev, seen := latest[k]
		if !seen {
			order = append(order, k)
		}
		if !seen || rate.ValidUntil.After(prev) {
			latest[k] = rate.ValidUntil
		}
	}

	horizon := now.Add(ahead)
	var out []ExpiringLane
	for _, k := range order {
		if until := latest[k]; until.Before(horizon) {
			out = append(out, ExpiringLane{OrgID: k.org, OriginWarehouseID: k.origin, DestinationZoneID: k.zone, ValidUntil: until})
		}
	}
	return out, nil
}

func activeAt(q *gorm.DB, now time.Time) *gorm.DB {
	return q.Where("valid_from <= ? AND valid_until > ?", now, now)
}
