package cron

import (
	"context"
	"fmt"

	"github.com/frostline/frostline-backend/pkg/logger"
)

type sheetExpirer interface {
	ExpirePublished(ctx context.Context) (int, error)
}

// NewPriceSheetExpiryJob archives published sheets whose validity ended.
func NewPriceSheetExpiryJob(logg *logger.Logger, sheets sheetExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sheets == nil {
		return nil, fmt.Errorf("price sheet service required")
	}
	return &priceSheetExpiryJob{logg: logg, sheets: sheets}, nil
}

type priceSheetExpiryJob struct {
	logg   *logger.Logger
	sheets sheetExpirer
}

func (j *priceSheetExpiryJob) Name() string { return "price-sheet-expiry" }

func (j *priceSheetExpiryJob) Run(ctx context.Context) (int64, error) {
	n, err := j.sheets.ExpirePublished(ctx)
	if n > 0 {
		j.logg.Info(j.logg.WithField(ctx, "archived", n), "price_sheet.expired")
	}
	return int64(n), err
}

type dealExpirer interface {
	ExpirePending(ctx context.Context) (int, error)
}

// NewDealExpiryJob rejects pending deals whose expiration date passed.
func NewDealExpiryJob(logg *logger.Logger, deals dealExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deals == nil {
		return nil, fmt.Errorf("deal service required")
	}
	return &dealExpiryJob{logg: logg, deals: deals}, nil
}

type dealExpiryJob struct {
	logg  *logger.Logger
	deals dealExpirer
}

func (j *dealExpiryJob) Name() string { return "deal-expiry" }

func (j *dealExpiryJob) Run(ctx context.Context) (int64, error) {
	n, err := j.deals.ExpirePending(ctx)
	if n > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", n), "deals.expired")
	}
	return int64(n), err
}
