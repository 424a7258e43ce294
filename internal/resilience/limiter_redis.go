package resilience

import (
	"context"
	"time"

	"github.com/frostline/frostline-backend/pkg/redis"
)

type windowCounter interface {
	FixedWindow(ctx context.Context, scope string, window time.Duration) (redis.WindowState, error)
}

// RedisLimiter shares fixed windows across replicas through Redis counters.
// Rejected requests still increment the counter; the window length is unaffected.
type RedisLimiter struct {
	counter windowCounter
	prefix  string
	now     func() time.Time
}

func NewRedisLimiter(counter windowCounter, prefix string) *RedisLimiter {
	return &RedisLimiter{counter: counter, prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Check(ctx context.Context, scope string, limit int, window time.Duration) (Decision, error) {
	key := scope
	if l.prefix != "" {
		key = l.prefix + ":" + scope
	}
	state, err := l.counter.FixedWindow(ctx, key, window)
	if err != nil {
		return Decision{}, err
	}

	remaining := limit - int(state.Count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   state.Count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(state.ResetIn),
	}, nil
}
