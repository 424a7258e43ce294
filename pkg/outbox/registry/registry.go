// Package registry maps outbox event types to their topic and payload type.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	"github.com/frostline/frostline-backend/pkg/outbox"
	"github.com/frostline/frostline-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.Envelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks rows that can never be published as-is.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func poison(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// event binds an event type to the payload struct T it carries.
func event[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// NewEventRegistry maps every domain event to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, errors.New("domain topic is required")
	}

	known := []EventDescriptor{
		event[payloads.PriceSheetPublishedEvent](enums.EventPriceSheetPublished, enums.AggregatePriceSheet),
		event[payloads.PriceSheetArchivedEvent](enums.EventPriceSheetArchived, enums.AggregatePriceSheet),
		event[payloads.DealDecisionEvent](enums.EventDealAccepted, enums.AggregateManufacturerDeal),
		event[payloads.DealDecisionEvent](enums.EventDealRejected, enums.AggregateManufacturerDeal),
		event[payloads.FreightRateCreatedEvent](enums.EventFreightRateCreated, enums.AggregateFreightRate),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(known))}
	for _, desc := range known {
		desc.Topic = topic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and envelope, then decodes
// the typed payload. Every failure is non-retryable.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	switch {
	case !ok:
		return nil, poison("unsupported event type %s", row.EventType)
	case desc.AggregateType != row.AggregateType:
		return nil, poison("aggregate mismatch: expected %s got %s", desc.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, poison("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, poison("%s: %w", row.EventType, err)
	}
	if envelope.EventType != "" && envelope.EventType != row.EventType {
		return nil, poison("envelope event %s does not match row %s", envelope.EventType, row.EventType)
	}
	if row.OrgID != uuid.Nil && envelope.OrgID != row.OrgID {
		return nil, poison("envelope org %s does not match row org %s", envelope.OrgID, row.OrgID)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, poison("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
