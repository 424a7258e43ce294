package freight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/internal/reefer"
	"github.com/frostline/frostline-backend/pkg/bigquery"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/freightquote"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/outbox"
	"github.com/frostline/frostline-backend/pkg/outbox/payloads"
)

// DefaultRateValidity applies when a quote is saved as a lane rate and no
// validity was configured.
const DefaultRateValidity = 7 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type warehouseLookup interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error)
}

type zoneLookup interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Zone, error)
	ZoneForState(ctx context.Context, orgID uuid.UUID, state string) (*models.Zone, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// QuoteRecorder ships quotes to analytics. Failures never fail the quote.
type QuoteRecorder interface {
	RecordFreightQuote(ctx context.Context, row bigquery.FreightQuoteRow) error
}

// NoopRecorder is used when no analytics sink is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordFreightQuote(context.Context, bigquery.FreightQuoteRow) error { return nil }

type Service interface {
	CreateRate(ctx context.Context, orgID, userID uuid.UUID, input CreateRateInput) (*models.FreightRate, error)
	DeleteRate(ctx context.Context, orgID, id uuid.UUID) error
	ListRates(ctx context.Context, orgID uuid.UUID, input ListRatesInput) ([]models.FreightRate, error)
	// ActiveRate returns nil without error when the lane has no usable rate.
	ActiveRate(ctx context.Context, orgID, originWarehouseID, zoneID uuid.UUID) (*models.FreightRate, error)
	Quote(ctx context.Context, orgID, userID uuid.UUID, input QuoteInput) (*QuoteResult, error)
	EstimateReefer(input ReeferInput) (reefer.Result, error)
}

type CreateRateInput struct {
	OriginWarehouseID uuid.UUID
	DestinationZoneID uuid.UUID
	RatePerLb         float64
	Carrier           string
	ValidFrom         *time.Time
	ValidUntil        time.Time
	Source            enums.FreightRateSource
}

type ListRatesInput struct {
	OriginWarehouseID *uuid.UUID
	DestinationZoneID *uuid.UUID
	IncludeExpired    bool
}

// QuoteInput asks for a lane quote. DestinationZoneID is only needed to save
// the quote as a rate; it is derived from DestinationState when omitted.
type QuoteInput struct {
	OriginWarehouseID uuid.UUID
	DestinationZip    string
	DestinationState  string
	DestinationZoneID *uuid.UUID
	WeightLbs         float64
	Pallets           int
	ShipDate          *time.Time
	Reefer            bool
	SaveAsRate        bool
}

type QuoteResult struct {
	DryQuote   freightquote.Quote  `json:"dry_quote"`
	Reefer     *reefer.Result      `json:"reefer,omitempty"`
	RatePerLb  float64             `json:"rate_per_lb"`
	SavedRate  *models.FreightRate `json:"-"`
	ShipDate   time.Time           `json:"ship_date"`
	QuotedAt   time.Time           `json:"quoted_at"`
	OriginCode string              `json:"origin_warehouse_code"`
}

type ReeferInput struct {
	DryQuote    float64
	OriginState string
	ShipDate    *time.Time
}

type ServiceParams struct {
	DB           txRunner
	Repo         *Repository
	Warehouses   warehouseLookup
	Zones        zoneLookup
	Estimator    freightquote.Estimator
	Recorder     QuoteRecorder
	Outbox       eventEmitter
	RateValidity time.Duration
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	db           txRunner
	repo         *Repository
	warehouses   warehouseLookup
	zones        zoneLookup
	estimator    freightquote.Estimator
	recorder     QuoteRecorder
	outbox       eventEmitter
	rateValidity time.Duration
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.DB == nil:
		return nil, fmt.Errorf("db required")
	case p.Repo == nil:
		return nil, fmt.Errorf("freight repository required")
	case p.Warehouses == nil:
		return nil, fmt.Errorf("warehouse lookup required")
	case p.Zones == nil:
		return nil, fmt.Errorf("zone lookup required")
	case p.Estimator == nil:
		return nil, fmt.Errorf("freight estimator required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox required")
	}
	s := &service{
		db:           p.DB,
		repo:         p.Repo,
		warehouses:   p.Warehouses,
		zones:        p.Zones,
		estimator:    p.Estimator,
		recorder:     p.Recorder,
		outbox:       p.Outbox,
		rateValidity: p.RateValidity,
		logg:         p.Logger,
		now:          p.Now,
	}
	if s.recorder == nil {
		s.recorder = NoopRecorder{}
	}
	if s.rateValidity <= 0 {
		s.rateValidity = DefaultRateValidity
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *service) CreateRate(ctx context.Context, orgID, userID uuid.UUID, input CreateRateInput) (*models.FreightRate, error) {
	if math.IsNaN(input.RatePerLb) || input.RatePerLb <= 0 {
		return nil, pkgerrors.Invalid("rate_per_lb", "rate_per_lb must be greater than zero")
	}
	validFrom := s.now().UTC()
	if input.ValidFrom != nil {
		validFrom = input.ValidFrom.UTC()
	}
	if !input.ValidUntil.After(validFrom) {
		return nil, pkgerrors.Invalid("valid_until", "valid_until must be after valid_from")
	}
	source := input.Source
	if source == "" {
		source = enums.FreightRateManual
	}
	if !source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown rate source")
	}
	if _, err := s.warehouses.FindByID(ctx, orgID, input.OriginWarehouseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Invalid("origin_warehouse_id", "origin warehouse does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouse")
	}
	if _, err := s.zones.Get(ctx, orgID, input.DestinationZoneID); err != nil {
		return nil, err
	}

	rate := &models.FreightRate{
		OrgID:             orgID,
		OriginWarehouseID: input.OriginWarehouseID,
		DestinationZoneID: input.DestinationZoneID,
		RatePerLb:         decimal.NewFromFloat(input.RatePerLb).Round(4),
		Source:            source,
		ValidFrom:         validFrom,
		ValidUntil:        input.ValidUntil.UTC(),
		CreatedBy:         &userID,
	}
	if c := strings.TrimSpace(input.Carrier); c != "" {
		rate.Carrier = &c
	}
	if err := s.insert(ctx, rate, userID); err != nil {
		return nil, err
	}
	return rate, nil
}

func (s *service) insert(ctx context.Context, rate *models.FreightRate, userID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, rate); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			OrgID:         rate.OrgID,
			EventType:     enums.EventFreightRateCreated,
			AggregateType: enums.AggregateFreightRate,
			AggregateID:   rate.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.FreightRateCreatedEvent{
				FreightRateID:     rate.ID,
				OriginWarehouseID: rate.OriginWarehouseID,
				DestinationZoneID: rate.DestinationZoneID,
				RatePerLb:         rate.RatePerLb.StringFixed(4),
				Source:            string(rate.Source),
				ValidUntil:        rate.ValidUntil,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create freight rate")
	}
	return nil
}

func (s *service) DeleteRate(ctx context.Context, orgID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, orgID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete freight rate")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "freight rate not found")
	}
	return nil
}

func (s *service) ListRates(ctx context.Context, orgID uuid.UUID, input ListRatesInput) ([]models.FreightRate, error) {
	filter := ListFilter{OriginWarehouseID: input.OriginWarehouseID, DestinationZoneID: input.DestinationZoneID}
	if !input.IncludeExpired {
		now := s.now().UTC()
		filter.ActiveAt = &now
	}
	rows, err := s.repo.List(ctx, orgID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list freight rates")
	}
	return rows, nil
}

func (s *service) ActiveRate(ctx context.Context, orgID, originWarehouseID, zoneID uuid.UUID) (*models.FreightRate, error) {
	rate, err := s.repo.ActiveRate(ctx, orgID, originWarehouseID, zoneID, s.now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active rate")
	}
	return rate, nil
}

func (s *service) Quote(ctx context.Context, orgID, userID uuid.UUID, input QuoteInput) (*QuoteResult, error) {
	origin, err := s.warehouses.FindByID(ctx, orgID, input.OriginWarehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Invalid("origin_warehouse_id", "origin warehouse does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouse")
	}

	now := s.now().UTC()
	shipDate := now
	if input.ShipDate != nil {
		shipDate = input.ShipDate.UTC()
	}

	req := freightquote.Request{
		OriginZip:        origin.PostalCode,
		OriginState:      origin.State,
		DestinationZip:   strings.TrimSpace(input.DestinationZip),
		DestinationState: strings.ToUpper(strings.TrimSpace(input.DestinationState)),
		WeightLbs:        input.WeightLbs,
		Pallets:          input.Pallets,
		ShipDate:         shipDate,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var zoneID uuid.UUID
	if input.SaveAsRate {
		zoneID, err = s.destinationZone(ctx, orgID, input)
		if err != nil {
			return nil, err
		}
	}

	dry, err := s.estimator.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &QuoteResult{DryQuote: *dry, ShipDate: shipDate, QuotedAt: now, OriginCode: origin.Code}
	total := dry.Amount
	if input.Reefer {
		est, err := reefer.Estimate(dry.Amount, origin.State, shipDate)
		if err != nil {
			return nil, err
		}
		result.Reefer = &est
		total = est.Estimate
	}
	perLb, err := reefer.PerLb(total, input.WeightLbs)
	if err != nil {
		return nil, err
	}
	result.RatePerLb = perLb

	if input.SaveAsRate {
		carrier := dry.Carrier
		if input.Reefer {
			carrier = strings.TrimSpace(carrier + " (reefer est.)")
		}
		rate := &models.FreightRate{
			OrgID:             orgID,
			OriginWarehouseID: origin.ID,
			DestinationZoneID: zoneID,
			RatePerLb:         decimal.NewFromFloat(perLb).Round(4),
			Source:            enums.FreightRateQuote,
			ValidFrom:         now,
			ValidUntil:        now.Add(s.rateValidity),
			CreatedBy:         &userID,
		}
		if carrier != "" {
			rate.Carrier = &carrier
		}
		if err := s.insert(ctx, rate, userID); err != nil {
			return nil, err
		}
		result.SavedRate = rate
	}

	s.record(ctx, orgID, userID, req, result)
	return result, nil
}

func (s *service) EstimateReefer(input ReeferInput) (reefer.Result, error) {
	shipDate := s.now().UTC()
	if input.ShipDate != nil {
		shipDate = *input.ShipDate
	}
	return reefer.Estimate(input.DryQuote, input.OriginState, shipDate)
}

func (s *service) destinationZone(ctx context.Context, orgID uuid.UUID, input QuoteInput) (uuid.UUID, error) {
	if input.DestinationZoneID != nil {
		z, err := s.zones.Get(ctx, orgID, *input.DestinationZoneID)
		if err != nil {
			return uuid.Nil, err
		}
		return z.ID, nil
	}
	z, err := s.zones.ZoneForState(ctx, orgID, input.DestinationState)
	if err != nil {
		return uuid.Nil, err
	}
	if z == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "no zone covers the destination state; pass destination_zone_id to save the rate")
	}
	return z.ID, nil
}

func (s *service) record(ctx context.Context, orgID, userID uuid.UUID, req freightquote.Request, result *QuoteResult) {
	row := bigquery.FreightQuoteRow{
		QuoteID:          uuid.New(),
		OrgID:            orgID,
		UserID:           userID,
		OriginState:      req.OriginState,
		DestinationState: req.DestinationState,
		WeightLbs:        req.WeightLbs,
		Provider:         result.DryQuote.Provider,
		DryQuote:         result.DryQuote.Amount,
		RatePerLb:        &result.RatePerLb,
		SavedAsRate:      result.SavedRate != nil,
		RequestedAt:      result.QuotedAt,
	}
	if result.Reefer != nil {
		row.ReeferEstimate = &result.Reefer.Estimate
	}
	if err := s.recorder.RecordFreightQuote(ctx, row); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "freight.quote.record_failed")
	}
}
