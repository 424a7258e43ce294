package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
)

// Snapshot is the breaker state as read from a StateStore. Version increases on every write.
type Snapshot struct {
	State          enums.BreakerState
	FailureCount   int
	LastFailureAt  *time.Time
	OpenedAt       *time.Time
	TrialStartedAt *time.Time
	Version        int64
}

// StateStore persists breaker state. CompareAndSwap must only write when the
// stored version still equals expected, and report whether it did.
type StateStore interface {
	Load(ctx context.Context, name string) (Snapshot, error)
	CompareAndSwap(ctx context.Context, name string, expected int64, next Snapshot) (bool, error)
}

func closedSnapshot() Snapshot {
	return Snapshot{State: enums.BreakerClosed}
}

// MemoryStateStore keeps breaker state in process memory.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]Snapshot
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]Snapshot)}
}

func (s *MemoryStateStore) Load(_ context.Context, name string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.states[name]; ok {
		return snap, nil
	}
	return closedSnapshot(), nil
}

func (s *MemoryStateStore) CompareAndSwap(_ context.Context, name string, expected int64, next Snapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[name]
	if !ok {
		current = closedSnapshot()
	}
	if current.Version != expected {
		return false, nil
	}
	next.Version = expected + 1
	s.states[name] = next
	return true, nil
}

// GormStateStore keeps one circuit_breaker_states row per breaker so state
// survives restarts and is shared by every replica.
type GormStateStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStateStore(db *gorm.DB) *GormStateStore {
	return &GormStateStore{db: db, now: time.Now}
}

func (s *GormStateStore) Load(ctx context.Context, name string) (Snapshot, error) {
	var row models.CircuitBreakerState
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seed := models.CircuitBreakerState{
			Name:      name,
			State:     enums.BreakerClosed,
			UpdatedAt: s.now().UTC(),
		}
		if err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&seed).Error; err != nil {
			return Snapshot{}, err
		}
		return closedSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		State:          row.State,
		FailureCount:   row.FailureCount,
		LastFailureAt:  row.LastFailureAt,
		OpenedAt:       row.OpenedAt,
		TrialStartedAt: row.TrialStartedAt,
		Version:        row.Version,
	}, nil
}

func (s *GormStateStore) CompareAndSwap(ctx context.Context, name string, expected int64, next Snapshot) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.CircuitBreakerState{}).
		Where("name = ? AND version = ?", name, expected).
		Updates(map[string]any{
			"state":            next.State,
			"failure_count":    next.FailureCount,
			"last_failure_at":  next.LastFailureAt,
			"opened_at":        next.OpenedAt,
			"trial_started_at": next.TrialStartedAt,
			"version":          expected + 1,
			"updated_at":       s.now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
