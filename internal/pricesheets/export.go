package pricesheets

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"

	"github.com/frostline/frostline-backend/pkg/db/models"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
)

// ParseExportFormat accepts xlsx or pdf, case-insensitively.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "format must be xlsx or pdf").
			WithDetails(map[string]any{"format": raw})
	}
}

// ExportFile is a rendered sheet ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var exportHeaders = []string{
	"Item Code", "Description", "Pack Size", "Warehouse",
	"Cost / lb", "Margin %", "Margin / lb", "Freight / lb", "Delivered / lb",
}

type exportDoc struct {
	sheet      *models.PriceSheet
	zone       *models.Zone
	warehouses map[uuid.UUID]models.Warehouse
}

func (d exportDoc) warehouseCode(id uuid.UUID) string {
	if w, ok := d.warehouses[id]; ok {
		return w.Code
	}
	return ""
}

func (s *service) Export(ctx context.Context, orgID, id uuid.UUID, format ExportFormat) (*ExportFile, error) {
	sheet, err := s.load(ctx, s.repo, orgID, id)
	if err != nil {
		return nil, err
	}
	zone, err := s.zones.Get(ctx, orgID, sheet.ZoneID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(sheet.Items))
	for _, it := range sheet.Items {
		ids = append(ids, it.WarehouseID)
	}
	whs, err := s.warehouses.ListByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouses")
	}
	doc := exportDoc{sheet: sheet, zone: zone, warehouses: whs}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case FormatXLSX:
		body, err = renderXLSX(doc)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		body, err = renderPDF(doc)
		contentType = "application/pdf"
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "format must be xlsx or pdf")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render price sheet")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", fileSlug(sheet.Name), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func fileSlug(name string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "price-sheet"
	}
	return slug
}

func renderXLSX(doc exportDoc) (body []byte, err error) {
	f := excelize.NewFile()
	defer func() { err = multierr.Append(err, f.Close()) }()

	const sheetName = "Price Sheet"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	moneyFmt := "0.0000"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, err
	}

	set := func(cell string, v any) {
		err = multierr.Append(err, f.SetCellValue(sheetName, cell, v))
	}
	set("A1", doc.sheet.Name)
	set("A2", fmt.Sprintf("Zone: %s", doc.zone.Name))
	set("A3", fmt.Sprintf("Valid %s to %s", doc.sheet.ValidFrom.Format("2006-01-02"), doc.sheet.ValidUntil.Format("2006-01-02")))
	err = multierr.Append(err, f.SetCellStyle(sheetName, "A1", "A1", titleStyle))

	const headerRow = 5
	for i, h := range exportHeaders {
		cell, cerr := excelize.CoordinatesToCellName(i+1, headerRow)
		if cerr != nil {
			return nil, cerr
		}
		set(cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	err = multierr.Append(err, f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle))

	row := headerRow + 1
	for _, it := range doc.sheet.Items {
		set(fmt.Sprintf("A%d", row), it.ItemCode)
		set(fmt.Sprintf("B%d", row), it.Description)
		set(fmt.Sprintf("C%d", row), it.PackSize)
		set(fmt.Sprintf("D%d", row), doc.warehouseCode(it.WarehouseID))
		set(fmt.Sprintf("E%d", row), it.CostPerLb.InexactFloat64())
		set(fmt.Sprintf("F%d", row), it.MarginPercent.InexactFloat64())
		set(fmt.Sprintf("G%d", row), it.MarginAmount.InexactFloat64())
		set(fmt.Sprintf("H%d", row), it.FreightPerLb.InexactFloat64())
		set(fmt.Sprintf("I%d", row), it.DeliveredPricePerLb.InexactFloat64())
		row++
	}
	if len(doc.sheet.Items) > 0 {
		err = multierr.Append(err, f.SetCellStyle(sheetName, fmt.Sprintf("E%d", headerRow+1), fmt.Sprintf("I%d", row-1), moneyStyle))
	}

	widths := []float64{14, 40, 16, 12, 12, 10, 12, 12, 14}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		err = multierr.Append(err, f.SetColWidth(sheetName, col, col, w))
	}
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(doc exportDoc) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, doc.sheet.Name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Zone: %s", doc.zone.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Valid %s to %s  |  Status: %s",
		doc.sheet.ValidFrom.Format("Jan 2, 2006"), doc.sheet.ValidUntil.Format("Jan 2, 2006"), doc.sheet.Status), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	ratios := []float64{0.10, 0.28, 0.12, 0.08, 0.08, 0.07, 0.09, 0.09, 0.09}
	widths := make([]float64, len(ratios))
	for i, r := range ratios {
		widths[i] = contentW * r
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(217, 225, 242)
		for i, h := range exportHeaders {
			align := "R"
			if i < 4 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, h, "B", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageH := pdf.GetPageSize()
	for _, it := range doc.sheet.Items {
		if pdf.GetY()+5 > pageH-12 {
			pdf.AddPage()
			header()
		}
		desc := it.Description
		if len([]rune(desc)) > 48 {
			desc = string([]rune(desc)[:47]) + "..."
		}
		cells := []string{
			it.ItemCode,
			tr(desc),
			tr(it.PackSize),
			doc.warehouseCode(it.WarehouseID),
			"$" + it.CostPerLb.StringFixed(4),
			it.MarginPercent.StringFixed(2) + "%",
			"$" + it.MarginAmount.StringFixed(4),
			"$" + it.FreightPerLb.StringFixed(4),
			"$" + it.DeliveredPricePerLb.StringFixed(4),
		}
		for i, c := range cells {
			align := "R"
			if i < 4 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 5, c, "", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "All prices are per lb, delivered to the zone.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
