package pricesheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/internal/pricing"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/outbox"
	"github.com/frostline/frostline-backend/pkg/outbox/payloads"
	"github.com/frostline/frostline-backend/pkg/pagination"
)

// Archive reasons carried on the archived event.
const (
	ArchiveManual  = "manual"
	ArchiveExpired = "expired"
)

const expiryBatchSize = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLister interface {
	ListActive(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
}

type rateLookup interface {
	ActiveRatesForZone(ctx context.Context, orgID, zoneID uuid.UUID, now time.Time) (map[uuid.UUID]models.FreightRate, error)
}

type zoneLookup interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Zone, error)
}

type warehouseLookup interface {
	ListByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Warehouse, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	Generate(ctx context.Context, orgID, userID uuid.UUID, input GenerateInput) (*GenerateResult, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*SheetDTO, error)
	List(ctx context.Context, orgID uuid.UUID, params ListFilter) (pagination.Page[SheetDTO], error)
	Publish(ctx context.Context, orgID, userID, id uuid.UUID) (*SheetDTO, error)
	Archive(ctx context.Context, orgID, userID, id uuid.UUID) (*SheetDTO, error)
	Export(ctx context.Context, orgID, id uuid.UUID, format ExportFormat) (*ExportFile, error)
	// ExpirePublished archives published sheets whose validity ended, across orgs.
	ExpirePublished(ctx context.Context) (int, error)
}

// GenerateInput describes a draft. Margins override DefaultMarginPercent per
// product; ProductIDs limits the sheet to those products when set.
type GenerateInput struct {
	ZoneID               uuid.UUID
	Name                 string
	ValidFrom            *time.Time
	ValidUntil           time.Time
	DefaultMarginPercent float64
	Margins              map[uuid.UUID]float64
	ProductIDs           []uuid.UUID
}

type ServiceParams struct {
	DB         txRunner
	Repo       *Repository
	Products   productLister
	Rates      rateLookup
	Zones      zoneLookup
	Warehouses warehouseLookup
	Outbox     eventEmitter
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	db         txRunner
	repo       *Repository
	products   productLister
	rates      rateLookup
	zones      zoneLookup
	warehouses warehouseLookup
	outbox     eventEmitter
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.DB == nil:
		return nil, fmt.Errorf("db required")
	case p.Repo == nil:
		return nil, fmt.Errorf("price sheet repository required")
	case p.Products == nil:
		return nil, fmt.Errorf("product lister required")
	case p.Rates == nil:
		return nil, fmt.Errorf("rate lookup required")
	case p.Zones == nil:
		return nil, fmt.Errorf("zone lookup required")
	case p.Warehouses == nil:
		return nil, fmt.Errorf("warehouse lookup required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:         p.DB,
		repo:       p.Repo,
		products:   p.Products,
		rates:      p.Rates,
		zones:      p.Zones,
		warehouses: p.Warehouses,
		outbox:     p.Outbox,
		logg:       p.Logger,
		now:        now,
	}, nil
}

func (s *service) Generate(ctx context.Context, orgID, userID uuid.UUID, input GenerateInput) (*GenerateResult, error) {
	now := s.now().UTC()
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	validFrom := now
	if input.ValidFrom != nil {
		validFrom = input.ValidFrom.UTC()
	}
	validUntil := input.ValidUntil.UTC()
	if !validUntil.After(validFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_until must be after valid_from")
	}
	if err := pricing.ValidateMarginPercent(input.DefaultMarginPercent); err != nil {
		return nil, err
	}
	for productID, pct := range input.Margins {
		if err := pricing.ValidateMarginPercent(pct); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product margin").
				WithDetails(map[string]any{"product_id": productID, "margin_percent": pct})
		}
	}
	zone, err := s.zones.Get(ctx, orgID, input.ZoneID)
	if err != nil {
		return nil, err
	}

	products, err := s.products.ListActive(ctx, orgID, input.ProductIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	// Rates must be live when the sheet is generated.
	rates, err := s.rates.ActiveRatesForZone(ctx, orgID, zone.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load freight rates")
	}

	sheet := &models.PriceSheet{
		ID:         uuid.New(),
		OrgID:      orgID,
		ZoneID:     zone.ID,
		Name:       name,
		Status:     enums.PriceSheetDraft,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
		CreatedBy:  userID,
	}
	warnings := missingProducts(input.ProductIDs, products)

	for _, p := range products {
		warehouseID := p.WarehouseID
		if p.CostPerLb == nil {
			warnings = append(warnings, Warning{
				Code:        WarningMissingCost,
				ProductID:   p.ID,
				ItemCode:    p.ItemCode,
				WarehouseID: &warehouseID,
				Message:     "product has no cost per lb; set a case weight",
			})
			continue
		}
		rate, ok := rates[p.WarehouseID]
		if !ok {
			warnings = append(warnings, Warning{
				Code:        WarningMissingRate,
				ProductID:   p.ID,
				ItemCode:    p.ItemCode,
				WarehouseID: &warehouseID,
				Message:     "no active freight rate from the product's warehouse to this zone",
			})
			continue
		}
		margin := input.DefaultMarginPercent
		if pct, ok := input.Margins[p.ID]; ok {
			margin = pct
		}
		b, err := pricing.DeliveredPrice(p.CostPerLb.InexactFloat64(), margin, rate.RatePerLb.InexactFloat64())
		if err != nil {
			return nil, err
		}
		sheet.Items = append(sheet.Items, models.PriceSheetItem{
			ProductID:           p.ID,
			WarehouseID:         p.WarehouseID,
			FreightRateID:       rate.ID,
			ItemCode:            p.ItemCode,
			Description:         p.Description,
			PackSize:            p.PackSize,
			CostPerLb:           decimal.NewFromFloat(b.CostPerLb),
			MarginPercent:       decimal.NewFromFloat(margin),
			MarginAmount:        decimal.NewFromFloat(b.MarginAmount),
			FreightPerLb:        decimal.NewFromFloat(b.FreightPerLb),
			DeliveredPricePerLb: decimal.NewFromFloat(b.Total),
			Position:            len(sheet.Items) + 1,
		})
	}

	if err := s.repo.Create(ctx, sheet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create price sheet")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"price_sheet_id": sheet.ID.String(),
			"zone_id":        zone.ID.String(),
			"items":          len(sheet.Items),
			"warnings":       len(warnings),
		}), "price_sheet.generated")
	}
	if warnings == nil {
		warnings = []Warning{}
	}
	return &GenerateResult{Sheet: toSheetDTO(*sheet, true), Warnings: warnings}, nil
}

func missingProducts(requested []uuid.UUID, found []models.Product) []Warning {
	if len(requested) == 0 {
		return nil
	}
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, p := range found {
		have[p.ID] = struct{}{}
	}
	var out []Warning
	seen := make(map[uuid.UUID]struct{}, len(requested))
	for _, id := range requested {
		if _, ok := have[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Warning{Code: WarningMissingProduct, ProductID: id, Message: "product not found or inactive"})
	}
	return out
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*SheetDTO, error) {
	sheet, err := s.load(ctx, s.repo, orgID, id)
	if err != nil {
		return nil, err
	}
	dto := toSheetDTO(*sheet, true)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo *Repository, orgID, id uuid.UUID) (*models.PriceSheet, error) {
	sheet, err := repo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price sheet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load price sheet")
	}
	return sheet, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, params ListFilter) (pagination.Page[SheetDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[SheetDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return pagination.Page[SheetDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown price sheet status")
	}
	rows, err := s.repo.List(ctx, orgID, params, cursor)
	if err != nil {
		return pagination.Page[SheetDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list price sheets")
	}
	page := pagination.BuildPage(rows, params.Limit, func(p models.PriceSheet) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, row := range page.Items {
		ids = append(ids, row.ID)
	}
	counts, err := s.repo.CountItems(ctx, ids)
	if err != nil {
		return pagination.Page[SheetDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count price sheet items")
	}
	out := pagination.Page[SheetDTO]{Items: make([]SheetDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, row := range page.Items {
		dto := toSheetDTO(row, false)
		dto.ItemCount = counts[row.ID]
		out.Items = append(out.Items, dto)
	}
	return out, nil
}

func (s *service) Publish(ctx context.Context, orgID, userID, id uuid.UUID) (*SheetDTO, error) {
	var out *models.PriceSheet
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sheet, err := s.load(ctx, repo, orgID, id)
		if err != nil {
			return err
		}
		if sheet.Status != enums.PriceSheetDraft {
			return transitionConflict(sheet.Status, enums.PriceSheetPublished)
		}
		now := s.now().UTC()
		if !now.Before(sheet.ValidUntil) {
			return pkgerrors.New(pkgerrors.CodeValidation, "price sheet validity has already ended")
		}
		if len(sheet.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price sheet has no items")
		}
		ok, err := repo.UpdateStatus(ctx, sheet.ID, enums.PriceSheetDraft, enums.PriceSheetPublished, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "publish price sheet")
		}
		if !ok {
			return transitionConflict(sheet.Status, enums.PriceSheetPublished)
		}
		sheet.Status = enums.PriceSheetPublished
		sheet.PublishedAt = &now
		sheet.UpdatedAt = now
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			OrgID:         orgID,
			EventType:     enums.EventPriceSheetPublished,
			AggregateType: enums.AggregatePriceSheet,
			AggregateID:   sheet.ID,
			Actor:         &outbox.ActorRef{UserID: userID, OrgID: orgID},
			Data: payloads.PriceSheetPublishedEvent{
				PriceSheetID: sheet.ID,
				ZoneID:       sheet.ZoneID,
				Name:         sheet.Name,
				ItemCount:    len(sheet.Items),
				ValidFrom:    sheet.ValidFrom,
				ValidUntil:   sheet.ValidUntil,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit price sheet event")
		}
		out = sheet
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toSheetDTO(*out, true)
	return &dto, nil
}

func (s *service) Archive(ctx context.Context, orgID, userID, id uuid.UUID) (*SheetDTO, error) {
	var out *models.PriceSheet
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sheet, err := s.load(ctx, repo, orgID, id)
		if err != nil {
			return err
		}
		if err := s.archive(ctx, tx, repo, sheet, &outbox.ActorRef{UserID: userID, OrgID: orgID}, ArchiveManual); err != nil {
			return err
		}
		out = sheet
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toSheetDTO(*out, true)
	return &dto, nil
}

func (s *service) archive(ctx context.Context, tx *gorm.DB, repo *Repository, sheet *models.PriceSheet, actor *outbox.ActorRef, reason string) error {
	if sheet.Status != enums.PriceSheetDraft && sheet.Status != enums.PriceSheetPublished {
		return transitionConflict(sheet.Status, enums.PriceSheetArchived)
	}
	now := s.now().UTC()
	ok, err := repo.UpdateStatus(ctx, sheet.ID, sheet.Status, enums.PriceSheetArchived, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "archive price sheet")
	}
	if !ok {
		return transitionConflict(sheet.Status, enums.PriceSheetArchived)
	}
	sheet.Status = enums.PriceSheetArchived
	sheet.ArchivedAt = &now
	sheet.UpdatedAt = now
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		OrgID:         sheet.OrgID,
		EventType:     enums.EventPriceSheetArchived,
		AggregateType: enums.AggregatePriceSheet,
		AggregateID:   sheet.ID,
		Actor:         actor,
		Data: payloads.PriceSheetArchivedEvent{
			PriceSheetID: sheet.ID,
			Reason:       reason,
			ArchivedAt:   now,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit price sheet event")
	}
	return nil
}

func (s *service) ExpirePublished(ctx context.Context) (int, error) {
	now := s.now().UTC()
	rows, err := s.repo.ListExpiredPublished(ctx, now, expiryBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expired price sheets")
	}
	var (
		archived int
		errs     error
	)
	for i := range rows {
		sheet := rows[i]
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.archive(ctx, tx, s.repo.WithTx(tx), &sheet, nil, ArchiveExpired)
		})
		if err != nil {
			// Another worker or a user may have archived it first.
			if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("price sheet %s: %w", sheet.ID, err))
			continue
		}
		archived++
	}
	return archived, errs
}

func transitionConflict(from, to enums.PriceSheetStatus) error {
	return pkgerrors.Transition("price sheet", string(from), string(to))
}
