package pricing

import (
	"math"

	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places every per-lb figure is rounded to.
const Precision int32 = 4

var hundred = decimal.NewFromInt(100)

// Breakdown is the per-lb delivered price of a product to a zone.
type Breakdown struct {
	CostPerLb    float64 `json:"cost_per_lb"`
	MarginAmount float64 `json:"margin_amount"`
	FreightPerLb float64 `json:"freight_per_lb"`
	Total        float64 `json:"total"`
}

// CostPerLb converts a case cost into a per-lb cost.
func CostPerLb(unitCost, caseWeightLbs float64) (float64, error) {
	if err := finite("unit_cost", unitCost); err != nil {
		return 0, err
	}
	if err := finite("case_weight_lbs", caseWeightLbs); err != nil {
		return 0, err
	}
	if caseWeightLbs <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "case weight must be greater than zero").
			WithDetails(map[string]any{"case_weight_lbs": caseWeightLbs})
	}
	cost := decimal.NewFromFloat(unitCost).Div(decimal.NewFromFloat(caseWeightLbs))
	return toFloat(cost), nil
}

// MarginAmount returns the per-lb margin for the given percent, which must be within [0, 100].
func MarginAmount(costPerLb, marginPercent float64) (float64, error) {
	if err := finite("cost_per_lb", costPerLb); err != nil {
		return 0, err
	}
	if err := ValidateMarginPercent(marginPercent); err != nil {
		return 0, err
	}
	amount := decimal.NewFromFloat(costPerLb).Mul(decimal.NewFromFloat(marginPercent)).Div(hundred)
	return toFloat(amount), nil
}

// DeliveredPrice adds margin and freight to a per-lb cost. Every component is
// rounded before summing so the total always equals the sum of the parts shown.
func DeliveredPrice(costPerLb, marginPercent, freightPerLb float64) (Breakdown, error) {
	margin, err := MarginAmount(costPerLb, marginPercent)
	if err != nil {
		return Breakdown{}, err
	}
	if err := finite("freight_per_lb", freightPerLb); err != nil {
		return Breakdown{}, err
	}
	if freightPerLb < 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "freight per lb cannot be negative").
			WithDetails(map[string]any{"freight_per_lb": freightPerLb})
	}

	cost := round(decimal.NewFromFloat(costPerLb))
	freight := round(decimal.NewFromFloat(freightPerLb))
	total := cost.Add(decimal.NewFromFloat(margin)).Add(freight)

	return Breakdown{
		CostPerLb:    toFloat(cost),
		MarginAmount: margin,
		FreightPerLb: toFloat(freight),
		Total:        toFloat(total),
	}, nil
}

// ValidateMarginPercent rejects margins outside [0, 100].
func ValidateMarginPercent(marginPercent float64) error {
	if err := finite("margin_percent", marginPercent); err != nil {
		return err
	}
	if marginPercent < 0 || marginPercent > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "margin percent must be between 0 and 100").
			WithDetails(map[string]any{"margin_percent": marginPercent})
	}
	return nil
}

// Round applies the shared per-lb precision to an arbitrary value.
func Round(value float64) float64 {
	return toFloat(decimal.NewFromFloat(value))
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := round(d).Float64()
	return f
}

func finite(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must be a finite number")
	}
	return nil
}
