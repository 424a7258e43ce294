package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
)

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  terminal_at DATETIME
);`).Error)
	return db
}

func TestEmitWritesEnvelope(t *testing.T) {
	db := setupOutboxDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	orgID := uuid.New()
	sheetID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			OrgID:         orgID,
			EventType:     enums.EventPriceSheetPublished,
			AggregateType: enums.AggregatePriceSheet,
			AggregateID:   sheetID,
			Data:          map[string]any{"price_sheet_id": sheetID},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orgID, rows[0].OrgID)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, env.Version)
	assert.Equal(t, orgID, env.OrgID)
	assert.Equal(t, rows[0].ID.String(), env.EventID)
	assert.Equal(t, enums.EventPriceSheetPublished, env.EventType)
	assert.True(t, fixed.Equal(env.OccurredAt))
	assert.JSONEq(t, fmt.Sprintf(`{"price_sheet_id":%q}`, sheetID), string(env.Data))
}

func TestEmitRejectsUnroutableEvents(t *testing.T) {
	db := setupOutboxDB(t)
	svc := NewService(NewRepository(db), nil)
	base := DomainEvent{
		OrgID:         uuid.New(),
		EventType:     enums.EventDealAccepted,
		AggregateType: enums.AggregateManufacturerDeal,
		AggregateID:   uuid.New(),
		Data:          map[string]string{"deal_id": "x"},
	}

	unknownType := base
	unknownType.EventType = "deal_exploded"
	noAggregate := base
	noAggregate.AggregateID = uuid.Nil
	noData := base
	noData.Data = nil

	for name, ev := range map[string]DomainEvent{"type": unknownType, "aggregate": noAggregate, "data": noData} {
		assert.Error(t, svc.Emit(context.Background(), db, ev), name)
	}
	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRequiresTransactionAndOrg(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{OrgID: uuid.New()}))

	db := setupOutboxDB(t)
	assert.Error(t, svc.Emit(context.Background(), db, DomainEvent{}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := setupOutboxDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, repo.Insert(db, models.OutboxEvent{
			ID:            ids[i],
			OrgID:         uuid.New(),
			EventType:     enums.EventDealAccepted,
			AggregateType: enums.AggregateManufacturerDeal,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
		}))
	}

	require.NoError(t, repo.MarkPublishedTx(db, ids[0]))
	require.NoError(t, repo.MarkFailedTx(db, ids[1], fmt.Errorf("timeout")))
	require.NoError(t, repo.MarkTerminalTx(db, ids[2], fmt.Errorf("bad payload"), 0))

	pending, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[1], pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)

	pending, err = repo.FetchUnpublishedForPublish(db, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, pending, "rows at max attempts are skipped")

	removed, err := repo.DeletePublishedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}
