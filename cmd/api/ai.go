package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/frostline/frostline-backend/internal/ai"
	"github.com/frostline/frostline-backend/internal/resilience"
	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/db"
	"github.com/frostline/frostline-backend/pkg/enums"
	"github.com/frostline/frostline-backend/pkg/llm"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/metrics"
	"github.com/frostline/frostline-backend/pkg/redis"
)

const aiBreakerName = "llm"

// aiStack is the assistant plus the breaker operators can inspect. breaker is
// nil when AI is disabled.
type aiStack struct {
	capability ai.Capability
	breaker    *resilience.CircuitBreaker
}

func buildAI(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, m *metrics.AIMetrics) (aiStack, error) {
	if !cfg.AI.Enabled() || !cfg.FeatureFlags.AIAssist {
		return aiStack{capability: ai.Disabled{}}, nil
	}

	client, err := llm.NewClient(cfg.AI.APIKey, cfg.AI.Model,
		llm.WithBaseURL(cfg.AI.BaseURL),
		llm.WithMaxTokens(cfg.AI.MaxTokens),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.AI.Timeout}),
	)
	if err != nil {
		return aiStack{}, fmt.Errorf("llm client: %w", err)
	}

	var store resilience.StateStore
	switch strings.ToLower(cfg.Resilience.BreakerBackend) {
	case "memory":
		store = resilience.NewMemoryStateStore()
	case "database", "":
		store = resilience.NewGormStateStore(dbClient.DB())
	default:
		return aiStack{}, fmt.Errorf("unknown breaker backend %q", cfg.Resilience.BreakerBackend)
	}
	breaker, err := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:             aiBreakerName,
		FailureThreshold: cfg.Resilience.BreakerThreshold,
		Cooldown:         cfg.Resilience.BreakerCooldown,
	}, store, logg)
	if err != nil {
		return aiStack{}, err
	}
	breaker.OnStateChange(func(_ context.Context, name string, _, to enums.BreakerState) {
		m.SetBreakerOpen(name, to != enums.BreakerClosed)
	})

	limiter, err := buildLimiter(cfg.Resilience, dbClient, redisClient)
	if err != nil {
		return aiStack{}, err
	}
	guard, err := resilience.NewGuard(resilience.GuardConfig{
		Limit:       cfg.Resilience.RateLimitRequests,
		Window:      cfg.Resilience.RateLimitWindow,
		Timeout:     cfg.AI.Timeout,
		ScopePrefix: "ai",
	}, limiter, breaker, logg, m)
	if err != nil {
		return aiStack{}, err
	}

	svc, err := ai.NewService(client, guard, logg)
	if err != nil {
		return aiStack{}, err
	}
	return aiStack{capability: svc, breaker: breaker}, nil
}

func buildLimiter(cfg config.ResilienceConfig, dbClient *db.Client, redisClient *redis.Client) (resilience.RateLimiter, error) {
	switch strings.ToLower(cfg.RateLimitBackend) {
	case "memory":
		return resilience.NewMemoryLimiter(), nil
	case "database":
		return resilience.NewDBLimiter(dbClient.DB()), nil
	case "redis", "":
		return resilience.NewRedisLimiter(redisClient, "rl"), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}
}
