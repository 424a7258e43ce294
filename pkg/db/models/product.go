package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frostline/frostline-backend/internal/pricing"
	"github.com/frostline/frostline-backend/pkg/enums"
)

// Product is a frozen SKU held at a warehouse.
type Product struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID             uuid.UUID              `gorm:"column:org_id;type:uuid;not null"`
	WarehouseID       uuid.UUID              `gorm:"column:warehouse_id;type:uuid;not null"`
	ItemCode          string                 `gorm:"column:item_code;not null"`
	Description       string                 `gorm:"column:description;not null"`
	PackSize          string                 `gorm:"column:pack_size;not null"`
	Category          *enums.ProductCategory `gorm:"column:category"`
	UnitCost          decimal.Decimal        `gorm:"column:unit_cost;type:numeric(12,4);not null"`
	CaseWeightLbs     *decimal.Decimal       `gorm:"column:case_weight_lbs;type:numeric(10,4)"`
	CostPerLb         *decimal.Decimal       `gorm:"column:cost_per_lb;type:numeric(12,4)"`
	QuantityAvailable int                    `gorm:"column:quantity_available;not null;default:0"`
	IsActive          bool                   `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// RecomputeCostPerLb keeps cost_per_lb in step with unit cost and case weight.
// It must run after any change to either field. Products without a positive
// case weight have no per-lb cost.
func (p *Product) RecomputeCostPerLb() {
	if p.CaseWeightLbs == nil {
		p.CostPerLb = nil
		return
	}
	perLb, err := pricing.CostPerLb(p.UnitCost.InexactFloat64(), p.CaseWeightLbs.InexactFloat64())
	if err != nil {
		p.CostPerLb = nil
		return
	}
	cost := decimal.NewFromFloat(perLb)
	p.CostPerLb = &cost
}
