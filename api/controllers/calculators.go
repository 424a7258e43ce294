package controllers

import (
	"context"
	"net/http"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/packsize"
	"github.com/frostline/frostline-backend/internal/pricing"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
)

type PackSizeParser interface {
	Parse(ctx context.Context, userID, packSize, description string) packsize.Result
}

type parsePackSizeRequest struct {
	PackSize    string `json:"pack_size" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	// UseAI allows the assistant fallback when the patterns do not match.
	UseAI bool `json:"use_ai"`
}

// ParsePackSize resolves a pack-size string to a case weight. An unparseable
// string is a successful response with a null weight.
func ParsePackSize(parser PackSizeParser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		var payload parsePackSizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !payload.UseAI || parser == nil {
			weight := packsize.ParseSync(payload.PackSize)
			responses.WriteSuccess(w, packsize.Result{WeightLbs: weight, Unparseable: weight == nil})
			return
		}
		responses.WriteSuccess(w, parser.Parse(r.Context(), actor.UserID.String(), payload.PackSize, payload.Description))
	}
}

// deliveredPriceRequest accepts either cost_per_lb directly or the case
// figures it is derived from.
type deliveredPriceRequest struct {
	CostPerLb     *float64 `json:"cost_per_lb,omitempty"`
	UnitCost      *float64 `json:"unit_cost,omitempty"`
	CaseWeightLbs *float64 `json:"case_weight_lbs,omitempty"`
	MarginPercent float64  `json:"margin_percent"`
	FreightPerLb  float64  `json:"freight_per_lb"`
}

func DeliveredPrice(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorOrFail(w, r, logg); !ok {
			return
		}
		var payload deliveredPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var cost float64
		switch {
		case payload.CostPerLb != nil:
			cost = *payload.CostPerLb
		case payload.UnitCost != nil && payload.CaseWeightLbs != nil:
			derived, err := pricing.CostPerLb(*payload.UnitCost, *payload.CaseWeightLbs)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			cost = derived
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cost_per_lb or unit_cost with case_weight_lbs is required"))
			return
		}

		breakdown, err := pricing.DeliveredPrice(cost, payload.MarginPercent, payload.FreightPerLb)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}
