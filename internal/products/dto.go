package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
)

// WeightSource tells the client how a case weight was obtained.
type WeightSource string

const (
	WeightExplicit   WeightSource = "explicit"
	WeightParsed     WeightSource = "parsed"
	WeightAI         WeightSource = "ai"
	WeightUnresolved WeightSource = "unresolved"
)

// ProductDTO is the client representation of a product. Money is per case
// (unit_cost) or per lb (cost_per_lb).
type ProductDTO struct {
	ID                uuid.UUID              `json:"id"`
	WarehouseID       uuid.UUID              `json:"warehouse_id"`
	ItemCode          string                 `json:"item_code"`
	Description       string                 `json:"description"`
	PackSize          string                 `json:"pack_size"`
	Category          *enums.ProductCategory `json:"category,omitempty"`
	UnitCost          float64                `json:"unit_cost"`
	CaseWeightLbs     *float64               `json:"case_weight_lbs"`
	CostPerLb         *float64               `json:"cost_per_lb"`
	QuantityAvailable int                    `json:"quantity_available"`
	IsActive          bool                   `json:"is_active"`
	WeightSource      WeightSource           `json:"weight_source,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func toDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:                p.ID,
		WarehouseID:       p.WarehouseID,
		ItemCode:          p.ItemCode,
		Description:       p.Description,
		PackSize:          p.PackSize,
		Category:          p.Category,
		UnitCost:          p.UnitCost.InexactFloat64(),
		CaseWeightLbs:     optionalFloat(p.CaseWeightLbs),
		CostPerLb:         optionalFloat(p.CostPerLb),
		QuantityAvailable: p.QuantityAvailable,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, toDTO(p))
	}
	return out
}

func optionalFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

func optionalDecimal(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
