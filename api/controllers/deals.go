package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/deals"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
)

// maxExtractBodyBytes leaves headroom over deals.MaxEmailLength for JSON
// escaping and multi-byte runes.
const maxExtractBodyBytes = 4 * deals.MaxEmailLength

type extractDealRequest struct {
	Email string `json:"email" validate:"required"`
}

type rejectDealRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func ExtractDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deal")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxExtractBodyBytes)
		var payload extractDealRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := svc.Extract(r.Context(), actor.OrgID, actor.UserID, payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, deal)
	}
}

func ListDeals(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deal")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := deals.ListFilter{Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseDealStatus(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		page, err := svc.List(r.Context(), actor.OrgID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealAction(svc, logg, func(r *http.Request, orgID, _, id uuid.UUID) (*deals.DealDTO, error) {
		return svc.Get(r.Context(), orgID, id)
	})
}

func AcceptDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealAction(svc, logg, func(r *http.Request, orgID, userID, id uuid.UUID) (*deals.DealDTO, error) {
		return svc.Accept(r.Context(), orgID, userID, id)
	})
}

// RejectDeal takes an optional {"reason": "..."} body.
func RejectDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealAction(svc, logg, func(r *http.Request, orgID, userID, id uuid.UUID) (*deals.DealDTO, error) {
		var payload rejectDealRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				return nil, err
			}
		}
		return svc.Reject(r.Context(), orgID, userID, id, payload.Reason)
	})
}

func dealAction(svc deals.Service, logg *logger.Logger, act func(r *http.Request, orgID, userID, id uuid.UUID) (*deals.DealDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deal")
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
		deal, err := act(r, actor.OrgID, actor.UserID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}
