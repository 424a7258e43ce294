package controllers

import (
	"net/http"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/address"
	"github.com/frostline/frostline-backend/pkg/logger"
)

const (
	addressQueryMaxLen = 200
	placeIDMaxLen      = 256
)

// AddressSuggest returns autocomplete suggestions for the customer and
// warehouse forms. GET /address/suggest?query=&language=
func AddressSuggest(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "address")
			return
		}
		suggestions, err := svc.Suggest(r.Context(), address.SuggestRequest{
			Query:    validators.QueryString(r, "query", addressQueryMaxLen),
			Language: validators.QueryString(r, "language", 8),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"suggestions": suggestions})
	}
}

// AddressResolve turns a suggestion's place id into a located address.
// GET /address/resolve?place_id=
func AddressResolve(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "address")
			return
		}
		loc, err := svc.Resolve(r.Context(), address.ResolveRequest{
			PlaceID: validators.QueryString(r, "place_id", placeIDMaxLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loc)
	}
}
