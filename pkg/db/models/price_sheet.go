package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frostline/frostline-backend/pkg/enums"
)

// PriceSheet is a published list of delivered prices for one zone.
type PriceSheet struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID       uuid.UUID              `gorm:"column:org_id;type:uuid;not null"`
	ZoneID      uuid.UUID              `gorm:"column:zone_id;type:uuid;not null"`
	Name        string                 `gorm:"column:name;not null"`
	Status      enums.PriceSheetStatus `gorm:"column:status;not null;default:'draft'"`
	ValidFrom   time.Time              `gorm:"column:valid_from;not null"`
	ValidUntil  time.Time              `gorm:"column:valid_until;not null"`
	PublishedAt *time.Time             `gorm:"column:published_at"`
	ArchivedAt  *time.Time             `gorm:"column:archived_at"`
	CreatedBy   uuid.UUID              `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	Items []PriceSheetItem `gorm:"foreignKey:PriceSheetID;references:ID"`
}

// PriceSheetItem is one product line; all money figures are per lb.
type PriceSheetItem struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PriceSheetID        uuid.UUID       `gorm:"column:price_sheet_id;type:uuid;not null"`
	ProductID           uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	WarehouseID         uuid.UUID       `gorm:"column:warehouse_id;type:uuid;not null"`
	FreightRateID       uuid.UUID       `gorm:"column:freight_rate_id;type:uuid;not null"`
	ItemCode            string          `gorm:"column:item_code;not null"`
	Description         string          `gorm:"column:description;not null"`
	PackSize            string          `gorm:"column:pack_size;not null"`
	CostPerLb           decimal.Decimal `gorm:"column:cost_per_lb;type:numeric(12,4);not null"`
	MarginPercent       decimal.Decimal `gorm:"column:margin_percent;type:numeric(6,2);not null"`
	MarginAmount        decimal.Decimal `gorm:"column:margin_amount;type:numeric(12,4);not null"`
	FreightPerLb        decimal.Decimal `gorm:"column:freight_per_lb;type:numeric(10,4);not null"`
	DeliveredPricePerLb decimal.Decimal `gorm:"column:delivered_price_per_lb;type:numeric(12,4);not null"`
	Position            int             `gorm:"column:position;not null"`
}
