package deals

import (
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
)

type DealDTO struct {
	ID                 uuid.UUID        `json:"id"`
	Manufacturer       string           `json:"manufacturer"`
	ProductDescription string           `json:"product_description"`
	PricePerLb         float64          `json:"price_per_lb"`
	Quantity           *string          `json:"quantity,omitempty"`
	PackSize           *string          `json:"pack_size,omitempty"`
	CaseWeightLbs      *float64         `json:"case_weight_lbs,omitempty"`
	ExpirationDate     *time.Time       `json:"expiration_date,omitempty"`
	Terms              *string          `json:"terms,omitempty"`
	Status             enums.DealStatus `json:"status"`
	RejectionReason    *string          `json:"rejection_reason,omitempty"`
	ReviewedBy         *uuid.UUID       `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time       `json:"reviewed_at,omitempty"`
	CreatedBy          uuid.UUID        `json:"created_by"`
	CreatedAt          time.Time        `json:"created_at"`
}

func toDTO(d models.ManufacturerDeal) DealDTO {
	out := DealDTO{
		ID:                 d.ID,
		Manufacturer:       d.Manufacturer,
		ProductDescription: d.ProductDescription,
		PricePerLb:         d.PricePerLb.InexactFloat64(),
		Quantity:           d.Quantity,
		PackSize:           d.PackSize,
		ExpirationDate:     d.ExpirationDate,
		Terms:              d.Terms,
		Status:             d.Status,
		RejectionReason:    d.RejectionReason,
		ReviewedBy:         d.ReviewedBy,
		ReviewedAt:         d.ReviewedAt,
		CreatedBy:          d.CreatedBy,
		CreatedAt:          d.CreatedAt,
	}
	if d.CaseWeightLbs != nil {
		w := d.CaseWeightLbs.InexactFloat64()
		out.CaseWeightLbs = &w
	}
	return out
}
