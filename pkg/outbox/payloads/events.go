package payloads

import (
	"time"

	"github.com/google/uuid"
)

// PriceSheetPublishedEvent is emitted when a draft sheet goes out to sales.
type PriceSheetPublishedEvent struct {
	PriceSheetID uuid.UUID `json:"price_sheet_id"`
	ZoneID       uuid.UUID `json:"zone_id"`
	Name         string    `json:"name"`
	ItemCount    int       `json:"item_count"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidUntil   time.Time `json:"valid_until"`
}

// PriceSheetArchivedEvent is emitted on manual archive and on expiry.
type PriceSheetArchivedEvent struct {
	PriceSheetID uuid.UUID `json:"price_sheet_id"`
	Reason       string    `json:"reason"`
	ArchivedAt   time.Time `json:"archived_at"`
}

// DealDecisionEvent carries both accepted and rejected manufacturer deals.
type DealDecisionEvent struct {
	DealID       uuid.UUID `json:"deal_id"`
	Manufacturer string    `json:"manufacturer"`
	PricePerLb   string    `json:"price_per_lb"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	DecidedAt    time.Time `json:"decided_at"`
}

// FreightRateCreatedEvent announces a new lane rate.
type FreightRateCreatedEvent struct {
	FreightRateID     uuid.UUID `json:"freight_rate_id"`
	OriginWarehouseID uuid.UUID `json:"origin_warehouse_id"`
	DestinationZoneID uuid.UUID `json:"destination_zone_id"`
	RatePerLb         string    `json:"rate_per_lb"`
	Source            string    `json:"source"`
	ValidUntil        time.Time `json:"valid_until"`
}
