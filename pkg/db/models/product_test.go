package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostline/frostline-backend/internal/pricing"
)

func TestRecomputeCostPerLbMatchesPricingCalculator(t *testing.T) {
	cases := []struct {
		name   string
		cost   string
		weight string
	}{
		{name: "whole pounds", cost: "84.00", weight: "40"},
		{name: "repeating fraction", cost: "100.00", weight: "3"},
		{name: "fractional weight", cost: "57.3125", weight: "12.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			weight := decimal.RequireFromString(tc.weight)
			p := &Product{UnitCost: decimal.RequireFromString(tc.cost), CaseWeightLbs: &weight}
			p.RecomputeCostPerLb()

			want, err := pricing.CostPerLb(p.UnitCost.InexactFloat64(), weight.InexactFloat64())
			require.NoError(t, err)
			require.NotNil(t, p.CostPerLb)
			assert.Equal(t, want, p.CostPerLb.InexactFloat64())
		})
	}
}

func TestRecomputeCostPerLbClearsWithoutPositiveWeight(t *testing.T) {
	stale := decimal.NewFromInt(9)
	zero := decimal.Zero
	negative := decimal.NewFromInt(-4)
	for _, weight := range []*decimal.Decimal{nil, &zero, &negative} {
		p := &Product{UnitCost: decimal.NewFromInt(50), CaseWeightLbs: weight, CostPerLb: &stale}
		p.RecomputeCostPerLb()
		assert.Nil(t, p.CostPerLb)
	}
}
