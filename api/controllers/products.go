package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/api/validators"
	"github.com/frostline/frostline-backend/internal/products"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/types"
)

// MaxUploadBytes caps inventory spreadsheet uploads.
const MaxUploadBytes = 10 << 20

type createProductRequest struct {
	WarehouseID       string   `json:"warehouse_id" validate:"required,uuid"`
	ItemCode          string   `json:"item_code" validate:"required,max=64"`
	Description       string   `json:"description" validate:"required,max=500"`
	PackSize          string   `json:"pack_size" validate:"max=120"`
	Category          *string  `json:"category,omitempty"`
	UnitCost          float64  `json:"unit_cost" validate:"gte=0"`
	CaseWeightLbs     *float64 `json:"case_weight_lbs,omitempty" validate:"omitempty,gt=0"`
	QuantityAvailable int      `json:"quantity_available" validate:"gte=0"`
}

func (p createProductRequest) toInput() (products.CreateInput, error) {
	warehouseID, err := uuid.Parse(p.WarehouseID)
	if err != nil {
		return products.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid warehouse_id")
	}
	input := products.CreateInput{
		WarehouseID:       warehouseID,
		ItemCode:          p.ItemCode,
		Description:       p.Description,
		PackSize:          p.PackSize,
		UnitCost:          p.UnitCost,
		CaseWeightLbs:     p.CaseWeightLbs,
		QuantityAvailable: p.QuantityAvailable,
	}
	if p.Category != nil {
		category, err := parseCategory(*p.Category)
		if err != nil {
			return products.CreateInput{}, err
		}
		input.Category = &category
	}
	return input, nil
}

type updateProductRequest struct {
	WarehouseID       *string                 `json:"warehouse_id,omitempty" validate:"omitempty,uuid"`
	Description       *string                 `json:"description,omitempty" validate:"omitempty,max=500"`
	PackSize          *string                 `json:"pack_size,omitempty" validate:"omitempty,max=120"`
	Category          types.Optional[string]  `json:"category"`
	UnitCost          *float64                `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	CaseWeightLbs     types.Optional[float64] `json:"case_weight_lbs"`
	QuantityAvailable *int                    `json:"quantity_available,omitempty" validate:"omitempty,gte=0"`
	IsActive          *bool                   `json:"is_active,omitempty"`
}

func (p updateProductRequest) toInput() (products.UpdateInput, error) {
	input := products.UpdateInput{
		Description:       p.Description,
		PackSize:          p.PackSize,
		UnitCost:          p.UnitCost,
		CaseWeightLbs:     p.CaseWeightLbs,
		QuantityAvailable: p.QuantityAvailable,
		IsActive:          p.IsActive,
	}
	if p.WarehouseID != nil {
		id, err := uuid.Parse(*p.WarehouseID)
		if err != nil {
			return products.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid warehouse_id")
		}
		input.WarehouseID = &id
	}
	if p.Category.Set {
		input.Category = types.Null[enums.ProductCategory]()
		if p.Category.Value != nil {
			category, err := parseCategory(*p.Category.Value)
			if err != nil {
				return products.UpdateInput{}, err
			}
			input.Category = types.Of(category)
		}
	}
	return input, nil
}

func parseCategory(raw string) (enums.ProductCategory, error) {
	category, err := enums.ParseProductCategory(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
			WithDetails(map[string]any{"field": "category", "value": raw})
	}
	return category, nil
}

func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), actor.OrgID, actor.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
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
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Update(r.Context(), actor.OrgID, actor.UserID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
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
		if err := svc.Delete(r.Context(), actor.OrgID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
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
		warehouseID, err := validators.QueryUUID(r, "warehouse_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := products.ListFilter{
			WarehouseID:     warehouseID,
			IncludeInactive: validators.QueryBool(r, "include_inactive"),
			Params:          params,
		}
		if raw := r.URL.Query().Get("category"); raw != "" {
			category, err := parseCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filter.Category = &category
		}

		page, err := svc.List(r.Context(), actor.OrgID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// UploadProducts accepts a multipart form with the spreadsheet in "file".
func UploadProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
		if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload exceeds size limit").
					WithDetails(map[string]any{"max_bytes": MaxUploadBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "only .xlsx uploads are supported").
				WithDetails(map[string]any{"filename": header.Filename}))
			return
		}

		result, err := svc.Upload(r.Context(), actor.OrgID, actor.UserID, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CategorizeProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
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
		product, err := svc.Categorize(r.Context(), actor.OrgID, actor.UserID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func SearchProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		actor, ok := actorOrFail(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.QueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.QueryString(r, "q", 500)
		result, err := svc.Search(r.Context(), actor.OrgID, actor.UserID, query, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
