package controllers

import (
	"net/http"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/warehouses"
	"github.com/frostline/frostline-backend/pkg/logger"
)

type createWarehouseRequest struct {
	Code       string   `json:"code" validate:"required,max=32"`
	Name       string   `json:"name" validate:"required,max=200"`
	Address    string   `json:"address" validate:"required"`
	City       string   `json:"city" validate:"required"`
	State      string   `json:"state" validate:"required,usstate"`
	PostalCode string   `json:"postal_code" validate:"required"`
	Latitude   *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

func CreateWarehouse(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "warehouse")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}

		var payload createWarehouseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor.OrgID, actor.UserID, warehouses.CreateInput{
			Code:       payload.Code,
			Name:       payload.Name,
			Address:    payload.Address,
			City:       payload.City,
			State:      payload.State,
			PostalCode: payload.PostalCode,
			Latitude:   payload.Latitude,
			Longitude:  payload.Longitude,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, warehouses.ToDTO(*created))
	}
}

func ListWarehouses(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "warehouse")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.List(r.Context(), actor.OrgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, warehouses.ToDTOs(rows))
	}
}

func GetWarehouse(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "warehouse")
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
		found, err := svc.Get(r.Context(), actor.OrgID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, warehouses.ToDTO(*found))
	}
}
