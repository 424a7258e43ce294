package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/metrics"
	"github.com/frostline/frostline-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	idleCeiling    = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond

	messageSource = "frostline"
)

// terminalReason says why a row left the publish queue without being sent.
type terminalReason string

const (
	reasonUnroutable  terminalReason = "unroutable"
	reasonMaxAttempts terminalReason = "max_attempts"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

// orderedPublisher can unblock an ordering key after a failed publish.
type orderedPublisher interface {
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Repository outboxRepository
	Registry   registryResolver
	Metrics    *metrics.OutboxMetrics
	// Publishers overrides the Pub/Sub publisher lookup in tests.
	Publishers func(topic string) publisher
}

// Service drains the outbox table onto Pub/Sub. Each batch runs inside one
// transaction so claimed rows stay locked until their status is written.
type Service struct {
	logg     *logger.Logger
	db       dbClient
	repo     outboxRepository
	pubsub   pubSubClient
	registry registryResolver
	metrics  *metrics.OutboxMetrics

	lookup     func(topic string) publisher
	publishers map[string]publisher
	jitter     *rand.Rand

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

// batchStats summarises one pass over the outbox.
type batchStats struct {
	claimed   int
	published int
	retried   int
	terminal  int
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	s := &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		registry:     params.Registry,
		metrics:      params.Metrics,
		lookup:       params.Publishers,
		publishers:   map[string]publisher{},
		jitter:       rand.New(rand.NewSource(time.Now().UnixNano())),
		batchSize:    positiveOr(params.Config.BatchSize, 50),
		maxAttempts:  positiveOr(params.Config.MaxAttempts, 10),
		pollInterval: time.Duration(positiveOr(params.Config.PollIntervalMS, 500)) * time.Millisecond,
	}
	if s.lookup == nil {
		s.lookup = s.gcpPublisher
	}
	return s, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (s *Service) gcpPublisher(topic string) publisher {
	p := s.pubsub.Publisher(topic)
	if p == nil {
		return nil
	}
	p.EnableMessageOrdering = true
	return &gcpPublisher{Publisher: p}
}

// publisherFor caches one publisher per topic; Pub/Sub publishers batch
// internally and are meant to be long lived.
func (s *Service) publisherFor(topic string) publisher {
	if p, ok := s.publishers[topic]; ok {
		return p
	}
	p := s.lookup(topic)
	if p != nil {
		s.publishers[topic] = p
	}
	return p
}

// Run polls until ctx is canceled. A full batch triggers an immediate
// follow-up; an empty one waits a poll interval; an error backs off.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	wait := s.pollInterval
	for ctx.Err() == nil {
		stats, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = nextBackoff(wait, s.pollInterval, idleCeiling)
		case stats.claimed >= s.batchSize:
			wait = 0
		default:
			wait = s.pollInterval
		}
		if stats.claimed > 0 {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"claimed":   stats.claimed,
				"published": stats.published,
				"retried":   stats.retried,
				"terminal":  stats.terminal,
			}), "outbox batch done")
		}
		if wait > 0 {
			if err := sleep(ctx, wait+s.jitterFor(wait)); err != nil {
				break
			}
		}
	}
	s.logg.Info(ctx, "outbox publisher stopping")
	return ctx.Err()
}

func (s *Service) jitterFor(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(s.jitter.Int63n(int64(jitterWindow)))
}

func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		stats.claimed = len(events)
		s.metrics.SetBatchSize(len(events))

		for _, event := range events {
			outcome, err := s.handle(ctx, tx, event)
			if err != nil {
				return err
			}
			s.metrics.Observe(string(event.EventType), outcome)
			switch outcome {
			case metrics.OutboxPublished:
				stats.published++
			case metrics.OutboxRetried:
				stats.retried++
			default:
				stats.terminal++
			}
		}
		return nil
	})
	return stats, err
}

// handle publishes one row and records the result. The returned error is only
// set when the row status itself could not be written.
func (s *Service) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (string, error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"org_id":        event.OrgID.String(),
		"event_type":    string(event.EventType),
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	})

	resolved, err := s.registry.Resolve(event)
	if err == nil {
		err = s.publish(ctx, event, resolved)
	}
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		return metrics.OutboxPublished, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return metrics.OutboxTerminal, s.terminate(logCtx, tx, event, reasonUnroutable, err)
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return metrics.OutboxTerminal, s.terminate(logCtx, tx, event, reasonMaxAttempts, err)
	}

	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed, will retry")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return "", fmt.Errorf("mark failed %s: %w", event.ID, markErr)
	}
	return metrics.OutboxRetried, nil
}

func (s *Service) terminate(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason terminalReason, cause error) error {
	attempts := event.AttemptCount
	if reason == reasonMaxAttempts {
		attempts = s.maxAttempts
		cause = fmt.Errorf("gave up after %d attempts: %w", attempts, cause)
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"terminal_reason": string(reason),
		"error":           cause.Error(),
	}), "outbox event dropped")
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, attempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	msg := newMessage(event, resolved)
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for %s returned no result", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		if op, ok := pub.(orderedPublisher); ok {
			op.ResumePublish(msg.OrderingKey)
		}
		return err
	}
	return nil
}

// newMessage builds the Pub/Sub message for a row. Events for one aggregate
// share an ordering key so a sheet's publish always precedes its archive.
func newMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: orderingKey(event),
		Attributes: map[string]string{
			"source":         messageSource,
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"org_id":         event.OrgID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func orderingKey(event models.OutboxEvent) string {
	return string(event.AggregateType) + ":" + event.AggregateID.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current < base {
		current = base
	}
	if current*2 > ceiling {
		return ceiling
	}
	return current * 2
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
