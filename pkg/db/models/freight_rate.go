package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frostline/frostline-backend/pkg/enums"
)

// FreightRate is a per-lb lane rate from a warehouse to a zone with a validity window.
type FreightRate struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID             uuid.UUID               `gorm:"column:org_id;type:uuid;not null"`
	OriginWarehouseID uuid.UUID               `gorm:"column:origin_warehouse_id;type:uuid;not null"`
	DestinationZoneID uuid.UUID               `gorm:"column:destination_zone_id;type:uuid;not null"`
	RatePerLb         decimal.Decimal         `gorm:"column:rate_per_lb;type:numeric(10,4);not null"`
	Source            enums.FreightRateSource `gorm:"column:source;not null;default:'manual'"`
	Carrier           *string                 `gorm:"column:carrier"`
	ValidFrom         time.Time               `gorm:"column:valid_from;not null"`
	ValidUntil        time.Time               `gorm:"column:valid_until;not null"`
	CreatedBy         *uuid.UUID              `gorm:"column:created_by;type:uuid"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}

// ActiveAt reports whether the rate may be used for pricing at the given instant.
func (r FreightRate) ActiveAt(now time.Time) bool {
	return !now.Before(r.ValidFrom) && now.Before(r.ValidUntil)
}
