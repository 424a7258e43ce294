package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub domain topic is required")
)

// Client owns the Pub/Sub connection and the publishers handed out from it.
// Close flushes every publisher before closing the connection.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	logg      *logger.Logger

	mu         sync.Mutex
	publishers []*pubsub.Publisher
}

// NewClient connects to Pub/Sub and makes sure the domain topic exists.
// PUBSUB_EMULATOR_HOST is honoured by the underlying library.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.DomainTopic) == "" {
		return nil, errTopicRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, cfg: cfg, logg: logg}

	topic := topicResourceName(projectID, cfg.DomainTopic)
	err = c.checkTopic(ctx, topic)
	if isNotFound(err) && cfg.CreateTopic {
		err = c.createTopic(ctx, topic)
	}
	if err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context, topic string) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
	if err != nil {
		return fmt.Errorf("topic %s: %w", topic, err)
	}
	return nil
}

func (c *Client) createTopic(ctx context.Context, topic string) error {
	_, err := c.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topic})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, "topic", topic), "pubsub topic created")
	}
	return nil
}

func isNotFound(err error) bool {
	return err != nil && status.Code(errors.Unwrap(err)) == codes.NotFound
}

// Publisher returns a new publisher for a topic id or full resource name,
// configured with the client's batching settings. Nil when the name is empty.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	topic := topicResourceName(c.projectID, name)
	if topic == "" {
		return nil
	}
	p := c.client.Publisher(topic)
	if c.cfg.BatchDelay > 0 {
		p.PublishSettings.DelayThreshold = c.cfg.BatchDelay
	}
	if c.cfg.BatchMaxSize > 0 {
		p.PublishSettings.CountThreshold = c.cfg.BatchMaxSize
	}

	c.mu.Lock()
	c.publishers = append(c.publishers, p)
	c.mu.Unlock()
	return p
}

// Ping checks the domain topic is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.checkTopic(ctx, topicResourceName(c.projectID, c.cfg.DomainTopic))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	pubs := c.publishers
	c.publishers = nil
	c.mu.Unlock()
	for _, p := range pubs {
		p.Stop()
	}
	return c.client.Close()
}

func topicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case strings.TrimSpace(projectID) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(projectID) + "/topics/" + name
}
