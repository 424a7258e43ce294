package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frostline/frostline-backend/pkg/config"
)

func TestIncrWithTTLStartsWindowOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for want := int64(1); want <= 3; want++ {
		count, err := client.IncrWithTTL(ctx, "fl:rate_limit:org-1:price_sheet_export", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d got %d", want, count)
		}
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected a single expire, got %d", len(mock.expireCalls))
	}
}

func TestFixedWindowReportsReset(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	state, err := client.FixedWindow(ctx, "ai:user-1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Count != 1 || state.ResetIn != time.Minute {
		t.Fatalf("unexpected first window state %+v", state)
	}
	if len(mock.pexpireCalls) != 1 || mock.pexpireCalls[0].key != "fl:rate_limit:ai:user-1" {
		t.Fatalf("expected window expiry on first hit, got %+v", mock.pexpireCalls)
	}

	mock.ttl["fl:rate_limit:ai:user-1"] = 20 * time.Second
	state, err = client.FixedWindow(ctx, "ai:user-1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Count != 2 || state.ResetIn != 20*time.Second {
		t.Fatalf("unexpected second window state %+v", state)
	}
	if len(mock.pexpireCalls) != 1 {
		t.Fatalf("expiry should not be reset inside the window")
	}
}

func TestFixedWindowRestoresLostExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	mock.incr["fl:rate_limit:ai:user-2"] = 4
	mock.ttl["fl:rate_limit:ai:user-2"] = -1

	state, err := client.FixedWindow(ctx, "ai:user-2", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.ResetIn != time.Minute {
		t.Fatalf("expected restored window, got %v", state.ResetIn)
	}
	if len(mock.pexpireCalls) != 1 {
		t.Fatalf("expected expiry to be restored")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "fl:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "fl:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.LockKey("cron:cycle"); got != "fl:lock:cron:cycle" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.IdempotencyKey(" ", "k"); got != "fl:idempotency:k" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

type mockCmdable struct {
	data         map[string]string
	incr         map[string]int64
	ttl          map[string]time.Duration
	expireCalls  []expireCall
	pexpireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
		ttl:  make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

// Eval understands the two lock scripts.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key, owner := keys[0], fmt.Sprint(args[0])
	if m.data[key] != owner {
		return redis.NewCmdResult(int64(0), nil)
	}
	switch script {
	case releaseLockScript:
		delete(m.data, key)
	case extendLockScript:
		m.ttl[key] = time.Duration(args[1].(int64)) * time.Millisecond
	}
	return redis.NewCmdResult(int64(1), nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.pexpireCalls = append(m.pexpireCalls, expireCall{key: key, ttl: expiration})
	m.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) PTTL(ctx context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(m.ttl[key], nil)
}

func TestLockScriptsCheckOwner(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.LockKey("cron-worker:prod")

	if ok, _ := client.SetNX(ctx, key, "cycle-a", time.Minute); !ok {
		t.Fatal("expected lock acquired")
	}
	if ok, err := client.ExtendLock(ctx, key, "cycle-b", time.Hour); err != nil || ok {
		t.Fatalf("foreign owner must not extend, ok=%v err=%v", ok, err)
	}
	if ok, err := client.ExtendLock(ctx, key, "cycle-a", 5*time.Minute); err != nil || !ok {
		t.Fatalf("owner should extend, ok=%v err=%v", ok, err)
	}
	if mock.ttl[key] != 5*time.Minute {
		t.Fatalf("expected ttl 5m, got %s", mock.ttl[key])
	}
	if ok, _ := client.ReleaseLock(ctx, key, "cycle-b"); ok {
		t.Fatal("foreign owner must not release")
	}
	if ok, _ := client.ReleaseLock(ctx, key, "cycle-a"); !ok {
		t.Fatal("owner should release")
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected key deleted, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6379/2", PoolSize: 20, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 2 || opts.Password != "secret" {
		t.Fatalf("unexpected url options %+v", opts)
	}
	if opts.PoolSize != 20 || opts.DialTimeout != time.Second {
		t.Fatalf("config should fill unset pool settings, got %+v", opts)
	}
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}
