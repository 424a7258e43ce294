// Package bigquery ships freight quote analytics to a BigQuery table.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery freight quote table is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client writes to one dataset. The freight quote table is created on first
// start, partitioned by day on requested_at.
type Client struct {
	client *bigquery.Client
	quotes *bigquery.Table
	logg   *logger.Logger
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	datasetID := strings.TrimSpace(cfg.Dataset)
	table := strings.TrimSpace(cfg.FreightQuoteTable)
	switch {
	case projectID == "":
		return nil, errProjectIDRequired
	case datasetID == "":
		return nil, errDatasetRequired
	case table == "":
		return nil, errTableNameRequired
	}

	bq, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bq, quotes: bq.Dataset(datasetID).Table(table), logg: logg}

	if err := c.ensureQuoteTable(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dataset": datasetID,
			"table":   table,
		}), "bigquery quote sink ready")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if strings.TrimSpace(gcp.CredentialsJSON) != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	}
	if strings.TrimSpace(gcp.ApplicationCredentials) != "" {
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// ensureQuoteTable checks the dataset exists and creates the quote table if
// it is missing. Other metadata errors are returned as-is.
func (c *Client) ensureQuoteTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.quotes.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("checking table %q: %w", c.quotes.TableID, err)
	}

	dataset := c.client.Dataset(c.quotes.DatasetID)
	if _, err := dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.quotes.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.quotes.DatasetID, err)
	}

	err := c.quotes.Create(ctx, &bigquery.TableMetadata{
		Description: "Freight quotes requested from the dashboard calculator.",
		Schema:      freightQuoteSchema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "requested_at",
		},
		Clustering: &bigquery.Clustering{Fields: []string{"org_id", "destination_state"}},
	})
	if err != nil && !isConflict(err) {
		return fmt.Errorf("creating table %q: %w", c.quotes.TableID, err)
	}
	return nil
}

// Ping checks the quote table is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.quotes == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	_, err := c.quotes.Metadata(ctx)
	return err
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	return apiStatus(err) == http.StatusNotFound
}

// isConflict covers two API replicas racing to create the same table.
func isConflict(err error) bool {
	return apiStatus(err) == http.StatusConflict
}

func apiStatus(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
