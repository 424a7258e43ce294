package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/pricesheets"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
)

type generatePriceSheetRequest struct {
	ZoneID               string             `json:"zone_id" validate:"required,uuid"`
	Name                 string             `json:"name" validate:"required,max=200"`
	ValidFrom            *time.Time         `json:"valid_from,omitempty"`
	ValidUntil           time.Time          `json:"valid_until" validate:"required"`
	DefaultMarginPercent float64            `json:"default_margin_percent" validate:"gte=0,lte=100"`
	Margins              map[string]float64 `json:"margins,omitempty"`
	ProductIDs           []string           `json:"product_ids,omitempty"`
}

func (p generatePriceSheetRequest) toInput() (pricesheets.GenerateInput, error) {
	zoneID, err := parseBodyUUID(p.ZoneID, "zone_id")
	if err != nil {
		return pricesheets.GenerateInput{}, err
	}
	productIDs, err := parseUUIDList(p.ProductIDs, "product_ids")
	if err != nil {
		return pricesheets.GenerateInput{}, err
	}
	margins := make(map[uuid.UUID]float64, len(p.Margins))
	for raw, pct := range p.Margins {
		id, err := parseBodyUUID(raw, "margins")
		if err != nil {
			return pricesheets.GenerateInput{}, err
		}
		margins[id] = pct
	}
	return pricesheets.GenerateInput{
		ZoneID:               zoneID,
		Name:                 p.Name,
		ValidFrom:            p.ValidFrom,
		ValidUntil:           p.ValidUntil,
		DefaultMarginPercent: p.DefaultMarginPercent,
		Margins:              margins,
		ProductIDs:           productIDs,
	}, nil
}

func GeneratePriceSheet(svc pricesheets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "price sheet")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		var payload generatePriceSheetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Generate(r.Context(), actor.OrgID, actor.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ListPriceSheets(svc pricesheets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "price sheet")
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
		filter := pricesheets.ListFilter{ZoneID: zoneID, Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePriceSheetStatus(strings.ToLower(raw))
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

func GetPriceSheet(svc pricesheets.Service, logg *logger.Logger) http.HandlerFunc {
	return priceSheetAction(svc, logg, func(r *http.Request, orgID, _, id uuid.UUID) (*pricesheets.SheetDTO, error) {
		return svc.Get(r.Context(), orgID, id)
	})
}

func PublishPriceSheet(svc pricesheets.Service, logg *logger.Logger) http.HandlerFunc {
	return priceSheetAction(svc, logg, func(r *http.Request, orgID, userID, id uuid.UUID) (*pricesheets.SheetDTO, error) {
		return svc.Publish(r.Context(), orgID, userID, id)
	})
}

func ArchivePriceSheet(svc pricesheets.Service, logg *logger.Logger) http.HandlerFunc {
	return priceSheetAction(svc, logg, func(r *http.Request, orgID, userID, id uuid.UUID) (*pricesheets.SheetDTO, error) {
		return svc.Archive(r.Context(), orgID, userID, id)
	})
}

func priceSheetAction(svc pricesheets.Service, logg *logger.Logger, act func(r *http.Request, orgID, userID, id uuid.UUID) (*pricesheets.SheetDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "price sheet")
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
		sheet, err := act(r, actor.OrgID, actor.UserID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sheet)
	}
}

// ExportPriceSheet streams the sheet as xlsx (default) or pdf.
func ExportPriceSheet(svc pricesheets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "price sheet")
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
		format, err := pricesheets.ParseExportFormat(r.URL.Query().Get("format"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := svc.Export(r.Context(), actor.OrgID, id, format)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFile(w, file.Filename, file.ContentType, file.Body)
	}
}
