package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frostline/frostline-backend/pkg/enums"
	"github.com/frostline/frostline-backend/pkg/logger"
)

const maxSwapAttempts = 5

// ErrStateContention is returned when the breaker state kept changing underneath a write.
var ErrStateContention = errors.New("circuit breaker state contention")

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name             string
	FailureThreshold int
	Cooldown         time.Duration
}

// Admission is the answer to "may I call the dependency now?".
type Admission struct {
	Allowed bool
	// Trial is set for the single call admitted while half-open.
	Trial   bool
	RetryAt time.Time
}

// StateChangeFunc observes breaker transitions.
type StateChangeFunc func(ctx context.Context, name string, from, to enums.BreakerState)

// CircuitBreaker is a closed/open/half-open breaker whose state lives in a
// StateStore, so every replica sees the same state.
//
//	closed    --threshold consecutive failures--> open
//	open      --cooldown elapsed, next call-----> half_open (one trial)
//	half_open --trial succeeds------------------> closed
//	half_open --trial fails---------------------> open
type CircuitBreaker struct {
	cfg      BreakerConfig
	store    StateStore
	logg     *logger.Logger
	now      func() time.Time
	onChange StateChangeFunc
}

func NewCircuitBreaker(cfg BreakerConfig, store StateStore, logg *logger.Logger) (*CircuitBreaker, error) {
	if store == nil {
		return nil, fmt.Errorf("breaker state store required")
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return nil, fmt.Errorf("breaker name required")
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("breaker failure threshold must be positive")
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("breaker cooldown must be positive")
	}
	return &CircuitBreaker{cfg: cfg, store: store, logg: logg, now: time.Now}, nil
}

// OnStateChange registers a transition observer.
func (b *CircuitBreaker) OnStateChange(fn StateChangeFunc) {
	b.onChange = fn
}

func (b *CircuitBreaker) Name() string { return b.cfg.Name }

// Allow decides whether a call may proceed. After the cooldown the first caller
// moves the breaker to half-open and becomes the trial; everyone else is held
// back until the trial reports or itself goes stale after another cooldown.
func (b *CircuitBreaker) Allow(ctx context.Context) (Admission, error) {
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		snap, err := b.store.Load(ctx, b.cfg.Name)
		if err != nil {
			return Admission{}, err
		}
		now := b.now().UTC()

		switch snap.State {
		case enums.BreakerOpen:
			retryAt := b.cooldownEnd(snap.OpenedAt, now)
			if now.Before(retryAt) {
				return Admission{Allowed: false, RetryAt: retryAt}, nil
			}
		case enums.BreakerHalfOpen:
			retryAt := b.cooldownEnd(snap.TrialStartedAt, now)
			if now.Before(retryAt) {
				return Admission{Allowed: false, RetryAt: retryAt}, nil
			}
		default:
			return Admission{Allowed: true}, nil
		}

		next := snap
		next.State = enums.BreakerHalfOpen
		next.TrialStartedAt = &now
		ok, err := b.store.CompareAndSwap(ctx, b.cfg.Name, snap.Version, next)
		if err != nil {
			return Admission{}, err
		}
		if ok {
			b.transition(ctx, snap.State, next.State)
			return Admission{Allowed: true, Trial: true}, nil
		}
	}
	return Admission{}, ErrStateContention
}

// RecordSuccess clears the consecutive failure count and closes a half-open
// breaker. An open breaker stays open until its cooldown admits a trial, so a
// straggler admitted before the breaker tripped cannot close it early.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context) error {
	return b.update(ctx, func(snap Snapshot, now time.Time) (Snapshot, bool) {
		switch {
		case snap.State == enums.BreakerOpen:
			return snap, false
		case snap.State == enums.BreakerClosed && snap.FailureCount == 0:
			return snap, false
		}
		next := snap
		next.State = enums.BreakerClosed
		next.FailureCount = 0
		next.OpenedAt = nil
		next.TrialStartedAt = nil
		return next, true
	})
}

// RecordFailure counts a failure, opening the breaker at the threshold or
// immediately when the half-open trial fails.
func (b *CircuitBreaker) RecordFailure(ctx context.Context) error {
	return b.update(ctx, func(snap Snapshot, now time.Time) (Snapshot, bool) {
		next := snap
		next.FailureCount++
		next.LastFailureAt = &now
		switch snap.State {
		case enums.BreakerHalfOpen:
			next.State = enums.BreakerOpen
			next.OpenedAt = &now
			next.TrialStartedAt = nil
		case enums.BreakerClosed:
			if next.FailureCount >= b.cfg.FailureThreshold {
				next.State = enums.BreakerOpen
				next.OpenedAt = &now
			}
		}
		return next, true
	})
}

// Reset forces the breaker closed.
func (b *CircuitBreaker) Reset(ctx context.Context) error {
	return b.update(ctx, func(snap Snapshot, now time.Time) (Snapshot, bool) {
		return Snapshot{State: enums.BreakerClosed}, true
	})
}

// IsOpen reports whether calls are currently being rejected outright.
func (b *CircuitBreaker) IsOpen(ctx context.Context) (bool, error) {
	snap, err := b.store.Load(ctx, b.cfg.Name)
	if err != nil {
		return false, err
	}
	if snap.State != enums.BreakerOpen {
		return false, nil
	}
	now := b.now().UTC()
	return now.Before(b.cooldownEnd(snap.OpenedAt, now)), nil
}

// Status is a read-only view for operators.
type Status struct {
	Name          string             `json:"name"`
	State         enums.BreakerState `json:"state"`
	FailureCount  int                `json:"failure_count"`
	Threshold     int                `json:"threshold"`
	LastFailureAt *time.Time         `json:"last_failure_at,omitempty"`
	OpenedAt      *time.Time         `json:"opened_at,omitempty"`
	RetryAt       *time.Time         `json:"retry_at,omitempty"`
}

func (b *CircuitBreaker) Status(ctx context.Context) (Status, error) {
	snap, err := b.store.Load(ctx, b.cfg.Name)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Name:          b.cfg.Name,
		State:         snap.State,
		FailureCount:  snap.FailureCount,
		Threshold:     b.cfg.FailureThreshold,
		LastFailureAt: snap.LastFailureAt,
		OpenedAt:      snap.OpenedAt,
	}
	if snap.State == enums.BreakerOpen && snap.OpenedAt != nil {
		retry := snap.OpenedAt.Add(b.cfg.Cooldown)
		st.RetryAt = &retry
	}
	return st, nil
}

func (b *CircuitBreaker) update(ctx context.Context, mutate func(Snapshot, time.Time) (Snapshot, bool)) error {
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		snap, err := b.store.Load(ctx, b.cfg.Name)
		if err != nil {
			return err
		}
		next, changed := mutate(snap, b.now().UTC())
		if !changed {
			return nil
		}
		ok, err := b.store.CompareAndSwap(ctx, b.cfg.Name, snap.Version, next)
		if err != nil {
			return err
		}
		if ok {
			if next.State != snap.State {
				b.transition(ctx, snap.State, next.State)
			}
			return nil
		}
	}
	return ErrStateContention
}

func (b *CircuitBreaker) cooldownEnd(since *time.Time, now time.Time) time.Time {
	if since == nil {
		return now
	}
	return since.Add(b.cfg.Cooldown)
}

func (b *CircuitBreaker) transition(ctx context.Context, from, to enums.BreakerState) {
	if b.logg != nil {
		logCtx := b.logg.WithFields(ctx, map[string]any{
			"breaker": b.cfg.Name,
			"from":    from,
			"to":      to,
		})
		if to == enums.BreakerOpen {
			b.logg.Warn(logCtx, "circuit_breaker.opened")
		} else {
			b.logg.Info(logCtx, "circuit_breaker.transition")
		}
	}
	if b.onChange != nil {
		b.onChange(ctx, b.cfg.Name, from, to)
	}
}
