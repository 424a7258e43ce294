package reefer

import (
	"math"
	"strings"
	"time"

	"github.com/frostline/frostline-backend/internal/pricing"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

const (
	// Multiplier converts a dry LTL quote into a refrigerated baseline.
	Multiplier = 1.30
	// MinCharge is the smallest point estimate ever returned, in dollars.
	MinCharge = 350.00
	// RangeSpread is the +/- fraction used for the low/high band.
	RangeSpread = 0.15
)

var seasonalFactors = map[time.Month]float64{
	time.April:    1.08,
	time.May:      1.08,
	time.June:     1.15,
	time.July:     1.15,
	time.August:   1.15,
	time.November: 1.05,
	time.December: 1.05,
}

var regionalFactors = map[string]float64{
	"CA": 1.12,
	"FL": 1.10,
	"NY": 1.08,
	"NJ": 1.08,
	"WA": 1.06,
	"OR": 1.06,
	"TX": 1.05,
}

// Factors records every adjustment applied to the dry quote.
type Factors struct {
	Multiplier        float64 `json:"multiplier"`
	Seasonal          float64 `json:"seasonal"`
	Regional          float64 `json:"regional"`
	OriginState       string  `json:"origin_state"`
	MinChargeApplied  bool    `json:"min_charge_applied"`
	RawEstimate       float64 `json:"raw_estimate"`
	MinimumCharge     float64 `json:"minimum_charge"`
	RangeSpreadFactor float64 `json:"range_spread"`
}

// Result is a refrigerated freight estimate in dollars.
type Result struct {
	Estimate  float64 `json:"estimate"`
	RangeLow  float64 `json:"range_low"`
	RangeHigh float64 `json:"range_high"`
	Factors   Factors `json:"factors"`
}

// Estimate scales a dry LTL quote to a reefer estimate. The low/high band is
// derived from the raw figure; only the point estimate is floored at MinCharge,
// so a floored estimate may sit above RangeHigh for very small shipments.
func Estimate(dryQuote float64, originState string, shipDate time.Time) (Result, error) {
	if math.IsNaN(dryQuote) || math.IsInf(dryQuote, 0) || dryQuote < 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "dry quote must be a non-negative amount").
			WithDetails(map[string]any{"dry_quote": dryQuote})
	}

	state := NormalizeState(originState)
	seasonal := SeasonalFactor(shipDate)
	regional := RegionalFactor(state)

	raw := dryQuote * Multiplier * seasonal * regional
	estimate := raw
	floored := false
	if estimate < MinCharge {
		estimate = MinCharge
		floored = true
	}

	return Result{
		Estimate:  roundCents(estimate),
		RangeLow:  roundCents(raw * (1 - RangeSpread)),
		RangeHigh: roundCents(raw * (1 + RangeSpread)),
		Factors: Factors{
			Multiplier:        Multiplier,
			Seasonal:          seasonal,
			Regional:          regional,
			OriginState:       state,
			MinChargeApplied:  floored,
			RawEstimate:       roundCents(raw),
			MinimumCharge:     MinCharge,
			RangeSpreadFactor: RangeSpread,
		},
	}, nil
}

// PerLb spreads an estimate across a shipment weight at per-lb precision.
func PerLb(amount, weightLbs float64) (float64, error) {
	if weightLbs <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "weight must be greater than zero")
	}
	return pricing.Round(amount / weightLbs), nil
}

func SeasonalFactor(shipDate time.Time) float64 {
	if f, ok := seasonalFactors[shipDate.Month()]; ok {
		return f
	}
	return 1.0
}

func RegionalFactor(state string) float64 {
	if f, ok := regionalFactors[NormalizeState(state)]; ok {
		return f
	}
	return 1.0
}

func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
