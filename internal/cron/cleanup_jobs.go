package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/frostline/frostline-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultRateLimitTTL    = 24 * time.Hour
)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPurger
	Retention  time.Duration
}

// NewOutboxRetentionJob deletes published outbox rows older than the retention.
// Unpublished and terminal rows are kept for inspection.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{logg: params.Logger, repo: params.Repository, retention: retention, now: time.Now}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxPurger
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox.retention.done")
	return deleted, nil
}

type rateLimitCleaner interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

type RateLimitCleanupJobParams struct {
	Logger  *logger.Logger
	Limiter rateLimitCleaner
	TTL     time.Duration
}

// NewRateLimitCleanupJob purges persisted AI rate-limit entries older than TTL.
func NewRateLimitCleanupJob(params RateLimitCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("limiter required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultRateLimitTTL
	}
	return &rateLimitCleanupJob{logg: params.Logger, limiter: params.Limiter, ttl: ttl, now: time.Now}, nil
}

type rateLimitCleanupJob struct {
	logg    *logger.Logger
	limiter rateLimitCleaner
	ttl     time.Duration
	now     func() time.Time
}

func (j *rateLimitCleanupJob) Name() string { return "ai-rate-limit-cleanup" }

func (j *rateLimitCleanupJob) Run(ctx context.Context) (int64, error) {
	before := j.now().UTC().Add(-j.ttl)
	deleted, err := j.limiter.Cleanup(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("rate limit cleanup: %w", err)
	}
	if deleted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "rows_deleted", deleted), "ai.rate_limit.cleanup")
	}
	return deleted, nil
}
