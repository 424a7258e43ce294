package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/frostline/frostline-backend/internal/freight"
	"github.com/frostline/frostline-backend/pkg/logger"
)

const defaultRateExpiryAhead = 72 * time.Hour

type expiringLaneLister interface {
	ListExpiringLanes(ctx context.Context, now time.Time, ahead time.Duration) ([]freight.ExpiringLane, error)
}

type FreightRateReportJobParams struct {
	Logger *logger.Logger
	Rates  expiringLaneLister
	Ahead  time.Duration
}

// NewFreightRateReportJob warns about lanes whose last rate lapses soon, so a
// fresh rate can be entered before price sheets start skipping products.
func NewFreightRateReportJob(params FreightRateReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rates == nil {
		return nil, fmt.Errorf("freight repository required")
	}
	ahead := params.Ahead
	if ahead <= 0 {
		ahead = defaultRateExpiryAhead
	}
	return &freightRateReportJob{logg: params.Logger, rates: params.Rates, ahead: ahead, now: time.Now}, nil
}

type freightRateReportJob struct {
	logg  *logger.Logger
	rates expiringLaneLister
	ahead time.Duration
	now   func() time.Time
}

func (j *freightRateReportJob) Name() string { return "freight-rate-report" }

// Run only reports; it changes no rows.
func (j *freightRateReportJob) Run(ctx context.Context) (int64, error) {
	lanes, err := j.rates.ListExpiringLanes(ctx, j.now().UTC(), j.ahead)
	if err != nil {
		return 0, fmt.Errorf("list expiring lanes: %w", err)
	}
	for _, lane := range lanes {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"org_id":              lane.OrgID.String(),
			"origin_warehouse_id": lane.OriginWarehouseID.String(),
			"destination_zone_id": lane.DestinationZoneID.String(),
			"valid_until":         lane.ValidUntil,
		}), "freight.rate.expiring")
	}
	j.logg.Info(j.logg.WithField(ctx, "lanes", len(lanes)), "freight.rate.report")
	return 0, nil
}
