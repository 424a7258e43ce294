package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
)

// DefaultTimeout bounds every guarded vendor call.
const DefaultTimeout = 20 * time.Second

// GuardConfig configures a Guard.
type GuardConfig struct {
	Limit   int
	Window  time.Duration
	Timeout time.Duration
	// ScopePrefix namespaces limiter scopes, e.g. "ai".
	ScopePrefix string
}

// CallObserver receives the outcome of each guarded call.
type CallObserver interface {
	ObserveCall(operation, outcome string, duration time.Duration)
}

// Outcome labels reported to a CallObserver.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
	OutcomeBreakerOpen = "breaker_open"
	OutcomeCanceled    = "canceled"
)

// Guard wraps calls to an external dependency with a per-user rate limit, a
// shared circuit breaker and a timeout. Rejections are returned as typed
// errors: RATE_LIMIT_EXCEEDED (429) and DEPENDENCY_ERROR (503), both carrying
// a retry time.
type Guard struct {
	cfg      GuardConfig
	limiter  RateLimiter
	breaker  *CircuitBreaker
	logg     *logger.Logger
	observer CallObserver
}

func NewGuard(cfg GuardConfig, limiter RateLimiter, breaker *CircuitBreaker, logg *logger.Logger, observer CallObserver) (*Guard, error) {
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if breaker == nil {
		return nil, fmt.Errorf("circuit breaker required")
	}
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit and window must be positive")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Guard{cfg: cfg, limiter: limiter, breaker: breaker, logg: logg, observer: observer}, nil
}

func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

// Do runs fn under the guard. Any error returned by fn, and any timeout, counts
// as a breaker failure and is returned as a DEPENDENCY_ERROR with no vendor detail.
// When the caller's own context ends first the breaker is left alone and the
// context error is returned as is.
func (g *Guard) Do(ctx context.Context, userID, operation string, fn func(ctx context.Context) error) error {
	scope := strings.TrimSpace(userID)
	if scope == "" {
		scope = "anonymous"
	}
	if g.cfg.ScopePrefix != "" {
		scope = g.cfg.ScopePrefix + ":" + scope
	}

	decision, err := g.limiter.Check(ctx, scope, g.cfg.Limit, g.cfg.Window)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting")
	}
	if !decision.Allowed {
		g.observe(operation, OutcomeRateLimited, 0)
		g.warn(ctx, "ai.rate_limit.blocked", map[string]any{
			"operation": operation,
			"scope":     scope,
			"limit":     decision.Limit,
			"reset_at":  decision.ResetAt,
		})
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many assistant requests, try again later").
			WithDetails(map[string]any{
				"limit":    decision.Limit,
				"reset_at": decision.ResetAt.UTC(),
			}).
			WithRetryAt(decision.ResetAt)
	}

	admission, err := g.breaker.Allow(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "circuit breaker unavailable")
	}
	if !admission.Allowed {
		g.observe(operation, OutcomeBreakerOpen, 0)
		return pkgerrors.New(pkgerrors.CodeDependency, "assistant temporarily degraded").
			WithDetails(map[string]any{
				"reason":   "circuit_open",
				"retry_at": admission.RetryAt.UTC(),
			}).
			WithRetryAt(admission.RetryAt)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	callErr := fn(callCtx)
	elapsed := time.Since(start)

	if callErr == nil {
		g.observe(operation, OutcomeSuccess, elapsed)
		if err := g.breaker.RecordSuccess(ctx); err != nil {
			g.warn(ctx, "circuit_breaker.record_success_failed", map[string]any{"error": err.Error()})
		}
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		g.observe(operation, OutcomeCanceled, elapsed)
		g.warn(ctx, "ai.call.canceled", map[string]any{
			"operation": operation,
			"trial":     admission.Trial,
		})
		return ctxErr
	}

	outcome := OutcomeFailure
	if errors.Is(callErr, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		outcome = OutcomeTimeout
	}
	g.observe(operation, outcome, elapsed)
	if err := g.breaker.RecordFailure(ctx); err != nil {
		g.warn(ctx, "circuit_breaker.record_failure_failed", map[string]any{"error": err.Error()})
	}
	if g.logg != nil {
		logCtx := g.logg.WithFields(ctx, map[string]any{
			"operation": operation,
			"outcome":   outcome,
			"trial":     admission.Trial,
		})
		g.logg.Error(logCtx, "ai.call.failed", callErr)
	}

	return pkgerrors.Wrap(pkgerrors.CodeDependency, callErr, "assistant request failed")
}

func (g *Guard) observe(operation, outcome string, d time.Duration) {
	if g.observer != nil {
		g.observer.ObserveCall(operation, outcome, d)
	}
}

func (g *Guard) warn(ctx context.Context, msg string, fields map[string]any) {
	if g.logg == nil {
		return
	}
	g.logg.Warn(g.logg.WithFields(ctx, fields), msg)
}
