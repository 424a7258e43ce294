package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregatePriceSheet       OutboxAggregateType = "price_sheet"
	AggregateManufacturerDeal OutboxAggregateType = "manufacturer_deal"
	AggregateFreightRate      OutboxAggregateType = "freight_rate"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePriceSheet,
	AggregateManufacturerDeal,
	AggregateFreightRate,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return known(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType names a domain event published through the outbox.
type OutboxEventType string

const (
	EventPriceSheetPublished OutboxEventType = "price_sheet_published"
	EventPriceSheetArchived  OutboxEventType = "price_sheet_archived"
	EventDealAccepted        OutboxEventType = "deal_accepted"
	EventDealRejected        OutboxEventType = "deal_rejected"
	EventFreightRateCreated  OutboxEventType = "freight_rate_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPriceSheetPublished,
	EventPriceSheetArchived,
	EventDealAccepted,
	EventDealRejected,
	EventFreightRateCreated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return known(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}
