package freight

import (
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
)

// RateDTO is the client view of a lane rate. Active is evaluated at render time.
type RateDTO struct {
	ID                uuid.UUID               `json:"id"`
	OriginWarehouseID uuid.UUID               `json:"origin_warehouse_id"`
	DestinationZoneID uuid.UUID               `json:"destination_zone_id"`
	RatePerLb         float64                 `json:"rate_per_lb"`
	Source            enums.FreightRateSource `json:"source"`
	Carrier           *string                 `json:"carrier,omitempty"`
	ValidFrom         time.Time               `json:"valid_from"`
	ValidUntil        time.Time               `json:"valid_until"`
	Active            bool                    `json:"active"`
	CreatedBy         *uuid.UUID              `json:"created_by,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

func ToRateDTO(r models.FreightRate, now time.Time) RateDTO {
	return RateDTO{
		ID:                r.ID,
		OriginWarehouseID: r.OriginWarehouseID,
		DestinationZoneID: r.DestinationZoneID,
		RatePerLb:         r.RatePerLb.InexactFloat64(),
		Source:            r.Source,
		Carrier:           r.Carrier,
		ValidFrom:         r.ValidFrom,
		ValidUntil:        r.ValidUntil,
		Active:            r.ActiveAt(now),
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
	}
}

func ToRateDTOs(rows []models.FreightRate, now time.Time) []RateDTO {
	out := make([]RateDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToRateDTO(r, now))
	}
	return out
}
