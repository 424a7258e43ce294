package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

// MaxUploadRows bounds a single inventory spreadsheet.
const MaxUploadRows = 5000

const (
	colItemCode    = "item_code"
	colDescription = "description"
	colPackSize    = "pack_size"
	colUnitCost    = "unit_cost"
	colCaseWeight  = "case_weight_lbs"
	colQuantity    = "quantity"
	colWarehouse   = "warehouse_code"
	colCategory    = "category"
)

var requiredColumns = []string{colItemCode, colDescription, colPackSize, colUnitCost, colWarehouse}

// UploadResult summarizes an inventory upload. Rows are applied independently,
// so a bad row never blocks the rest of the sheet.
type UploadResult struct {
	Created           int         `json:"created"`
	Updated           int         `json:"updated"`
	Failed            int         `json:"failed"`
	Errors            []RowError  `json:"errors"`
	UnresolvedWeights []string    `json:"unresolved_weights"`
	AIAssistedWeights int         `json:"ai_assisted_weights"`
	ProductIDs        []uuid.UUID `json:"-"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type uploadRow struct {
	itemCode    string
	description string
	packSize    string
	unitCost    float64
	caseWeight  *float64
	quantity    int
	warehouse   string
	category    *enums.ProductCategory
}

// Upload reads the first sheet of an .xlsx workbook and upserts products by item code.
func (s *service) Upload(ctx context.Context, orgID, userID uuid.UUID, r io.Reader) (*UploadResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is not a readable .xlsx workbook")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read worksheet")
	}
	if len(rows) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook has no data rows")
	}
	if len(rows)-1 > MaxUploadRows {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many rows").
			WithDetails(map[string]any{"max_rows": MaxUploadRows})
	}

	header, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	result := &UploadResult{Errors: []RowError{}, UnresolvedWeights: []string{}}
	warehouses := map[string]uuid.UUID{}
	for i, raw := range rows[1:] {
		if blank(raw) {
			continue
		}
		row, err := parseRow(header, raw)
		if err == nil {
			err = s.applyRow(ctx, orgID, userID, row, warehouses, result)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: i + 2, Message: rowMessage(err)})
		}
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"created":    result.Created,
			"updated":    result.Updated,
			"failed":     result.Failed,
			"unresolved": len(result.UnresolvedWeights),
		}), "products.upload.completed")
	}
	return result, nil
}

func (s *service) applyRow(ctx context.Context, orgID, userID uuid.UUID, row uploadRow, warehouses map[string]uuid.UUID, result *UploadResult) error {
	warehouseID, ok := warehouses[row.warehouse]
	if !ok {
		w, err := s.warehouses.FindByCode(ctx, orgID, row.warehouse)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown warehouse_code %q", row.warehouse))
			}
			return err
		}
		warehouseID = w.ID
		warehouses[row.warehouse] = warehouseID
	}

	existing, err := s.repo.FindByItemCode(ctx, orgID, row.itemCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	p := existing
	if p == nil {
		p = &models.Product{OrgID: orgID, ItemCode: row.itemCode, IsActive: true}
	}
	p.WarehouseID = warehouseID
	p.Description = row.description
	p.PackSize = row.packSize
	p.UnitCost = decimal.NewFromFloat(row.unitCost)
	p.QuantityAvailable = row.quantity
	p.IsActive = true
	if row.category != nil {
		p.Category = row.category
	}

	switch s.resolveWeight(ctx, userID, p, row.caseWeight) {
	case WeightUnresolved:
		result.UnresolvedWeights = append(result.UnresolvedWeights, row.itemCode)
	case WeightAI:
		result.AIAssistedWeights++
	}
	p.RecomputeCostPerLb()

	if existing == nil {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		result.Created++
	} else {
		if err := s.repo.Save(ctx, p); err != nil {
			return err
		}
		result.Updated++
	}
	result.ProductIDs = append(result.ProductIDs, p.ID)
	return nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		switch key {
		case "sku", "item", "item_#", "item_no":
			key = colItemCode
		case "case_weight", "weight_lbs", "case_wt":
			key = colCaseWeight
		case "qty", "quantity_available":
			key = colQuantity
		case "warehouse":
			key = colWarehouse
		case "cost", "case_cost":
			key = colUnitCost
		}
		if _, dup := index[key]; !dup && key != "" {
			index[key] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required columns").
			WithDetails(map[string]any{"missing": missing})
	}
	return index, nil
}

func parseRow(header map[string]int, raw []string) (uploadRow, error) {
	cell := func(col string) string {
		i, ok := header[col]
		if !ok || i >= len(raw) {
			return ""
		}
		return strings.TrimSpace(raw[i])
	}

	row := uploadRow{
		itemCode:    cell(colItemCode),
		description: cell(colDescription),
		packSize:    cell(colPackSize),
		warehouse:   strings.ToUpper(cell(colWarehouse)),
	}
	if row.itemCode == "" || row.description == "" {
		return row, pkgerrors.New(pkgerrors.CodeValidation, "item_code and description are required")
	}
	if row.warehouse == "" {
		return row, pkgerrors.New(pkgerrors.CodeValidation, "warehouse_code is required")
	}

	cost, err := parseMoney(cell(colUnitCost))
	if err != nil || cost < 0 {
		return row, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit_cost %q", cell(colUnitCost)))
	}
	row.unitCost = cost

	if v := cell(colCaseWeight); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil || w <= 0 {
			return row, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid case_weight_lbs %q", v))
		}
		row.caseWeight = &w
	}
	if v := cell(colQuantity); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil || q < 0 {
			return row, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %q", v))
		}
		row.quantity = int(q)
	}
	if v := cell(colCategory); v != "" {
		c, err := enums.ParseProductCategory(strings.ToLower(v))
		if err != nil {
			return row, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", v))
		}
		row.category = &c
	}
	return row, nil
}

func parseMoney(v string) (float64, error) {
	v = strings.TrimPrefix(strings.ReplaceAll(v, ",", ""), "$")
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
		return typed.Message()
	}
	return "row could not be saved"
}
