package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/customers"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/types"
)

type createCustomerRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	Address      string  `json:"address" validate:"required"`
	City         string  `json:"city"`
	State        string  `json:"state" validate:"omitempty,usstate"`
	PostalCode   string  `json:"postal_code"`
	ZoneID       *string `json:"zone_id,omitempty"`
}

type updateCustomerRequest struct {
	Name         *string                `json:"name,omitempty" validate:"omitempty,max=200"`
	ContactEmail *string                `json:"contact_email,omitempty" validate:"omitempty,email"`
	Address      *string                `json:"address,omitempty"`
	City         *string                `json:"city,omitempty"`
	State        *string                `json:"state,omitempty" validate:"omitempty,usstate"`
	PostalCode   *string                `json:"postal_code,omitempty"`
	ZoneID       types.Optional[string] `json:"zone_id"`
}

func CreateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customer")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		var payload createCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := customers.CreateInput{
			Name:         payload.Name,
			ContactEmail: payload.ContactEmail,
			Address:      payload.Address,
			City:         payload.City,
			State:        payload.State,
			PostalCode:   payload.PostalCode,
		}
		if payload.ZoneID != nil {
			zoneID, err := uuid.Parse(*payload.ZoneID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid zone_id"))
				return
			}
			input.ZoneID = &zoneID
		}

		created, err := svc.Create(r.Context(), actor.OrgID, actor.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customers.ToDTO(*created))
	}
}

func UpdateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customer")
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
		var payload updateCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := customers.UpdateInput{
			Name:         payload.Name,
			ContactEmail: payload.ContactEmail,
			Address:      payload.Address,
			City:         payload.City,
			State:        payload.State,
			PostalCode:   payload.PostalCode,
		}
		if payload.ZoneID.Set {
			input.ZoneID = types.Null[uuid.UUID]()
			if payload.ZoneID.Value != nil {
				zoneID, err := uuid.Parse(*payload.ZoneID.Value)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid zone_id"))
					return
				}
				input.ZoneID = types.Of(zoneID)
			}
		}

		updated, err := svc.Update(r.Context(), actor.OrgID, actor.UserID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customers.ToDTO(*updated))
	}
}

func ListCustomers(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customer")
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
		zoneID, err := validators.QueryUUID(r, "zone_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), actor.OrgID, customers.ListParams{ZoneID: zoneID, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customers.ToDTOPage(page))
	}
}

// CustomerMap returns geocoded customers grouped by zone.
func CustomerMap(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customer")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.MapView(r.Context(), actor.OrgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
