package pricesheets

import (
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
)

// Warning codes attached to a generated sheet for products that were skipped.
const (
	WarningMissingRate    = "missing_rate"
	WarningMissingCost    = "missing_cost"
	WarningMissingProduct = "missing_product"
)

// Warning explains why a product did not make it onto a sheet.
type Warning struct {
	Code        string     `json:"code"`
	ProductID   uuid.UUID  `json:"product_id"`
	ItemCode    string     `json:"item_code,omitempty"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	Message     string     `json:"message"`
}

type ItemDTO struct {
	ProductID           uuid.UUID `json:"product_id"`
	WarehouseID         uuid.UUID `json:"warehouse_id"`
	FreightRateID       uuid.UUID `json:"freight_rate_id"`
	ItemCode            string    `json:"item_code"`
	Description         string    `json:"description"`
	PackSize            string    `json:"pack_size"`
	CostPerLb           float64   `json:"cost_per_lb"`
	MarginPercent       float64   `json:"margin_percent"`
	MarginAmount        float64   `json:"margin_amount"`
	FreightPerLb        float64   `json:"freight_per_lb"`
	DeliveredPricePerLb float64   `json:"delivered_price_per_lb"`
}

// SheetDTO is the client view of a price sheet. Items is omitted on listings.
type SheetDTO struct {
	ID          uuid.UUID              `json:"id"`
	ZoneID      uuid.UUID              `json:"zone_id"`
	Name        string                 `json:"name"`
	Status      enums.PriceSheetStatus `json:"status"`
	ValidFrom   time.Time              `json:"valid_from"`
	ValidUntil  time.Time              `json:"valid_until"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
	ArchivedAt  *time.Time             `json:"archived_at,omitempty"`
	CreatedBy   uuid.UUID              `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ItemCount   int                    `json:"item_count"`
	Items       []ItemDTO              `json:"items,omitempty"`
}

// GenerateResult is a freshly generated draft plus the products it skipped.
type GenerateResult struct {
	Sheet    SheetDTO  `json:"sheet"`
	Warnings []Warning `json:"warnings"`
}

func toSheetDTO(s models.PriceSheet, withItems bool) SheetDTO {
	out := SheetDTO{
		ID:          s.ID,
		ZoneID:      s.ZoneID,
		Name:        s.Name,
		Status:      s.Status,
		ValidFrom:   s.ValidFrom,
		ValidUntil:  s.ValidUntil,
		PublishedAt: s.PublishedAt,
		ArchivedAt:  s.ArchivedAt,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		ItemCount:   len(s.Items),
	}
	if withItems {
		out.Items = make([]ItemDTO, 0, len(s.Items))
		for _, it := range s.Items {
			out.Items = append(out.Items, toItemDTO(it))
		}
	}
	return out
}

func toItemDTO(it models.PriceSheetItem) ItemDTO {
	return ItemDTO{
		ProductID:           it.ProductID,
		WarehouseID:         it.WarehouseID,
		FreightRateID:       it.FreightRateID,
		ItemCode:            it.ItemCode,
		Description:         it.Description,
		PackSize:            it.PackSize,
		CostPerLb:           it.CostPerLb.InexactFloat64(),
		MarginPercent:       it.MarginPercent.InexactFloat64(),
		MarginAmount:        it.MarginAmount.InexactFloat64(),
		FreightPerLb:        it.FreightPerLb.InexactFloat64(),
		DeliveredPricePerLb: it.DeliveredPricePerLb.InexactFloat64(),
	}
}
