package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/freight"
	"github.com/frostline/frostline-backend/internal/reefer"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/freightquote"
	"github.com/frostline/frostline-backend/pkg/logger"
)

type createRateRequest struct {
	OriginWarehouseID string     `json:"origin_warehouse_id" validate:"required,uuid"`
	DestinationZoneID string     `json:"destination_zone_id" validate:"required,uuid"`
	RatePerLb         float64    `json:"rate_per_lb" validate:"gt=0"`
	Carrier           string     `json:"carrier" validate:"max=120"`
	ValidFrom         *time.Time `json:"valid_from,omitempty"`
	ValidUntil        time.Time  `json:"valid_until" validate:"required"`
	Source            string     `json:"source,omitempty"`
}

type quoteRequest struct {
	OriginWarehouseID string     `json:"origin_warehouse_id" validate:"required,uuid"`
	DestinationZip    string     `json:"destination_zip" validate:"required"`
	DestinationState  string     `json:"destination_state" validate:"required,usstate"`
	DestinationZoneID *string    `json:"destination_zone_id,omitempty" validate:"omitempty,uuid"`
	WeightLbs         float64    `json:"weight_lbs" validate:"gt=0"`
	Pallets           int        `json:"pallets" validate:"gte=0"`
	ShipDate          *time.Time `json:"ship_date,omitempty"`
	Reefer            bool       `json:"reefer"`
	SaveAsRate        bool       `json:"save_as_rate"`
}

type reeferEstimateRequest struct {
	DryQuote    float64    `json:"dry_quote" validate:"gte=0"`
	OriginState string     `json:"origin_state" validate:"required,usstate"`
	ShipDate    *time.Time `json:"ship_date,omitempty"`
}

type quoteResponse struct {
	DryQuote   freightquote.Quote `json:"dry_quote"`
	Reefer     *reefer.Result     `json:"reefer,omitempty"`
	RatePerLb  float64            `json:"rate_per_lb"`
	SavedRate  *freight.RateDTO   `json:"saved_rate,omitempty"`
	ShipDate   time.Time          `json:"ship_date"`
	QuotedAt   time.Time          `json:"quoted_at"`
	OriginCode string             `json:"origin_warehouse_code"`
}

func ListFreightRates(svc freight.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "freight")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		origin, err := validators.QueryUUID(r, "origin_warehouse_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		zone, err := validators.QueryUUID(r, "destination_zone_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListRates(r.Context(), actor.OrgID, freight.ListRatesInput{
			OriginWarehouseID: origin,
			DestinationZoneID: zone,
			IncludeExpired:    validators.QueryBool(r, "include_expired"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, freight.ToRateDTOs(rows, time.Now().UTC()))
	}
}

func CreateFreightRate(svc freight.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "freight")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		var payload createRateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		origin, err := parseBodyUUID(payload.OriginWarehouseID, "origin_warehouse_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		zone, err := parseBodyUUID(payload.DestinationZoneID, "destination_zone_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := freight.CreateRateInput{
			OriginWarehouseID: origin,
			DestinationZoneID: zone,
			RatePerLb:         payload.RatePerLb,
			Carrier:           payload.Carrier,
			ValidFrom:         payload.ValidFrom,
			ValidUntil:        payload.ValidUntil,
		}
		if raw := strings.TrimSpace(payload.Source); raw != "" {
			source, err := enums.ParseFreightRateSource(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source"))
				return
			}
			input.Source = source
		}

		rate, err := svc.CreateRate(r.Context(), actor.OrgID, actor.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, freight.ToRateDTO(*rate, time.Now().UTC()))
	}
}

func DeleteFreightRate(svc freight.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "freight")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		id, err := parseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteRate(r.Context(), actor.OrgID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func QuoteFreight(svc freight.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "freight")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		origin, err := parseBodyUUID(payload.OriginWarehouseID, "origin_warehouse_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := freight.QuoteInput{
			OriginWarehouseID: origin,
			DestinationZip:    payload.DestinationZip,
			DestinationState:  payload.DestinationState,
			WeightLbs:         payload.WeightLbs,
			Pallets:           payload.Pallets,
			ShipDate:          payload.ShipDate,
			Reefer:            payload.Reefer,
			SaveAsRate:        payload.SaveAsRate,
		}
		if payload.DestinationZoneID != nil {
			zoneID, err := parseBodyUUID(*payload.DestinationZoneID, "destination_zone_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.DestinationZoneID = &zoneID
		}

		result, err := svc.Quote(r.Context(), actor.OrgID, actor.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := quoteResponse{
			DryQuote:   result.DryQuote,
			Reefer:     result.Reefer,
			RatePerLb:  result.RatePerLb,
			ShipDate:   result.ShipDate,
			QuotedAt:   result.QuotedAt,
			OriginCode: result.OriginCode,
		}
		if result.SavedRate != nil {
			saved := freight.ToRateDTO(*result.SavedRate, result.QuotedAt)
			resp.SavedRate = &saved
		}
		responses.WriteSuccess(w, resp)
	}
}

func EstimateReefer(svc freight.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "freight")
			return
		}
		if _, ok := actorOrFail(w, r, logg); !ok {
			return
		}
		var payload reeferEstimateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.EstimateReefer(freight.ReeferInput{
			DryQuote:    payload.DryQuote,
			OriginState: payload.OriginState,
			ShipDate:    payload.ShipDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
