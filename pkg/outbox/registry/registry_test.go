package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	"github.com/frostline/frostline-backend/pkg/outbox"
	"github.com/frostline/frostline-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)
	sheetID := uuid.New()

	event := models.OutboxEvent{
		EventType:     enums.EventPriceSheetPublished,
		AggregateType: enums.AggregatePriceSheet,
		AggregateID:   sheetID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.PriceSheetPublishedEvent{
			PriceSheetID: sheetID,
			Name:         "SoCal week 42",
			ItemCount:    12,
		})),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "domain-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.PriceSheetPublishedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.PriceSheetID != sheetID || payload.ItemCount != 12 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryResolveRejects(t *testing.T) {
	reg := newTestEventRegistry(t)
	valid := mustEnvelope(t, []byte(`{"deal_id":"00000000-0000-0000-0000-000000000001"}`))

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("order_created"),
			AggregateType: enums.AggregateManufacturerDeal,
			AggregateID:   uuid.New(),
			Payload:       valid,
		},
		"aggregate mismatch": {
			EventType:     enums.EventDealAccepted,
			AggregateType: enums.AggregatePriceSheet,
			AggregateID:   uuid.New(),
			Payload:       valid,
		},
		"missing aggregate id": {
			EventType:     enums.EventDealAccepted,
			AggregateType: enums.AggregateManufacturerDeal,
			Payload:       valid,
		},
		"null payload": {
			EventType:     enums.EventDealRejected,
			AggregateType: enums.AggregateManufacturerDeal,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`null`)),
		},
		"envelope for another event": {
			EventType:     enums.EventDealAccepted,
			AggregateType: enums.AggregateManufacturerDeal,
			AggregateID:   uuid.New(),
			Payload: mustMarshal(t, outbox.Envelope{
				EventID:   uuid.NewString(),
				EventType: enums.EventDealRejected,
				OrgID:     uuid.New(),
				Data:      json.RawMessage(`{}`),
			}),
		},
		"envelope for another org": {
			OrgID:         uuid.New(),
			EventType:     enums.EventDealAccepted,
			AggregateType: enums.AggregateManufacturerDeal,
			AggregateID:   uuid.New(),
			Payload:       valid,
		},
		"envelope without org": {
			EventType:     enums.EventDealRejected,
			AggregateType: enums.AggregateManufacturerDeal,
			AggregateID:   uuid.New(),
			Payload: mustMarshal(t, outbox.Envelope{
				EventID: uuid.NewString(),
				Data:    json.RawMessage(`{}`),
			}),
		},
	}
	for name, event := range cases {
		_, err := reg.Resolve(event)
		var nonRetry NonRetryableError
		if !errors.As(err, &nonRetry) {
			t.Fatalf("%s: expected non-retryable error, got %v", name, err)
		}
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected error without domain topic")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "domain-topic"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	return mustMarshal(t, outbox.Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		OrgID:      uuid.New(),
		Data:       data,
	})
}
