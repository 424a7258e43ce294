package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

// FreightQuoteRow is one quote requested from the freight calculator.
type FreightQuoteRow struct {
	QuoteID          uuid.UUID
	OrgID            uuid.UUID
	UserID           uuid.UUID
	OriginState      string
	DestinationState string
	WeightLbs        float64
	Provider         string
	DryQuote         float64
	ReeferEstimate   *float64
	RatePerLb        *float64
	SavedAsRate      bool
	RequestedAt      time.Time
}

// Save implements bigquery.ValueSaver. QuoteID doubles as the insert ID so
// retried inserts are deduplicated.
func (r FreightQuoteRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"quote_id":          r.QuoteID.String(),
		"org_id":            r.OrgID.String(),
		"user_id":           r.UserID.String(),
		"origin_state":      r.OriginState,
		"destination_state": r.DestinationState,
		"weight_lbs":        r.WeightLbs,
		"provider":          r.Provider,
		"dry_quote":         r.DryQuote,
		"saved_as_rate":     r.SavedAsRate,
		"requested_at":      r.RequestedAt.UTC(),
	}
	if r.ReeferEstimate != nil {
		row["reefer_estimate"] = *r.ReeferEstimate
	}
	if r.RatePerLb != nil {
		row["rate_per_lb"] = *r.RatePerLb
	}
	return row, r.QuoteID.String(), nil
}

var freightQuoteSchema = bigquery.Schema{
	{Name: "quote_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "org_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "user_id", Type: bigquery.StringFieldType},
	{Name: "origin_state", Type: bigquery.StringFieldType, Required: true},
	{Name: "destination_state", Type: bigquery.StringFieldType, Required: true},
	{Name: "weight_lbs", Type: bigquery.FloatFieldType, Required: true},
	{Name: "provider", Type: bigquery.StringFieldType},
	{Name: "dry_quote", Type: bigquery.FloatFieldType},
	{Name: "reefer_estimate", Type: bigquery.FloatFieldType},
	{Name: "rate_per_lb", Type: bigquery.FloatFieldType},
	{Name: "saved_as_rate", Type: bigquery.BooleanFieldType},
	{Name: "requested_at", Type: bigquery.TimestampFieldType, Required: true},
}

// RecordFreightQuote streams one quote into the quote table.
func (c *Client) RecordFreightQuote(ctx context.Context, row FreightQuoteRow) error {
	if c == nil || c.quotes == nil {
		return errClientNotInitialized
	}
	if err := c.quotes.Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("insert freight quote %s: %w", row.QuoteID, err)
	}
	return nil
}
