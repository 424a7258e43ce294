package deals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/internal/ai"
	"github.com/frostline/frostline-backend/internal/packsize"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/outbox"
	"github.com/frostline/frostline-backend/pkg/outbox/payloads"
	"github.com/frostline/frostline-backend/pkg/pagination"
)

const (
	// MaxEmailLength bounds the raw email accepted for extraction, in runes.
	MaxEmailLength = 50000
	// ReasonExpired is recorded when a deal lapses before review.
	ReasonExpired = "expired"

	maxReasonLength = 500
	expiryBatchSize = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dealExtractor interface {
	Enabled() bool
	ExtractDeal(ctx context.Context, userID, emailText string) (*ai.DealExtraction, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	Extract(ctx context.Context, orgID, userID uuid.UUID, email string) (*DealDTO, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*DealDTO, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter) (pagination.Page[DealDTO], error)
	Accept(ctx context.Context, orgID, userID, id uuid.UUID) (*DealDTO, error)
	Reject(ctx context.Context, orgID, userID, id uuid.UUID, reason string) (*DealDTO, error)
	// ExpirePending rejects pending deals past their expiration date, across orgs.
	ExpirePending(ctx context.Context) (int, error)
}

type ServiceParams struct {
	DB     txRunner
	Repo   *Repository
	AI     dealExtractor
	Outbox eventEmitter
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	db     txRunner
	repo   *Repository
	ai     dealExtractor
	outbox eventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.DB == nil:
		return nil, fmt.Errorf("db required")
	case p.Repo == nil:
		return nil, fmt.Errorf("deal repository required")
	case p.AI == nil:
		return nil, fmt.Errorf("assistant required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{db: p.DB, repo: p.Repo, ai: p.AI, outbox: p.Outbox, logg: p.Logger, now: now}, nil
}

func (s *service) Extract(ctx context.Context, orgID, userID uuid.UUID, email string) (*DealDTO, error) {
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email text is required")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email text is too long").
			WithDetails(map[string]any{"max_length": MaxEmailLength})
	}
	if !s.ai.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deal extraction is not available")
	}

	extracted, err := s.ai.ExtractDeal(ctx, userID.String(), email)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"org_id": orgID.String(),
				"error":  err.Error(),
			}), "deals.extract.failed")
		}
		return nil, err
	}

	deal := &models.ManufacturerDeal{
		OrgID:              orgID,
		Manufacturer:       strings.TrimSpace(extracted.Manufacturer),
		ProductDescription: strings.TrimSpace(extracted.ProductDescription),
		PricePerLb:         decimal.NewFromFloat(extracted.PricePerLb).Round(4),
		ExpirationDate:     extracted.ExpirationDate,
		Status:             enums.DealPending,
		SourceEmail:        ai.Sanitize(email),
		CreatedBy:          userID,
	}
	if extracted.Quantity != nil {
		q := strconv.Itoa(*extracted.Quantity)
		deal.Quantity = &q
	}
	if pack := strings.TrimSpace(extracted.PackSize); pack != "" {
		deal.PackSize = &pack
		if w := packsize.ParseSync(pack); w != nil {
			d := decimal.NewFromFloat(*w).Round(4)
			deal.CaseWeightLbs = &d
		}
	}
	if terms := strings.TrimSpace(extracted.Terms); terms != "" {
		deal.Terms = &terms
	}

	if err := s.repo.Create(ctx, deal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save deal")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"deal_id":      deal.ID.String(),
			"manufacturer": deal.Manufacturer,
		}), "deals.extract.completed")
	}
	dto := toDTO(*deal)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*DealDTO, error) {
	d, err := s.load(ctx, s.repo, orgID, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*d)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo *Repository, orgID, id uuid.UUID) (*models.ManufacturerDeal, error) {
	d, err := repo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load deal")
	}
	return d, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) (pagination.Page[DealDTO], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return pagination.Page[DealDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown deal status")
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return pagination.Page[DealDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, orgID, filter, cursor)
	if err != nil {
		return pagination.Page[DealDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list deals")
	}
	page := pagination.BuildPage(rows, filter.Limit, func(d models.ManufacturerDeal) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	out := pagination.Page[DealDTO]{Items: make([]DealDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, d := range page.Items {
		out.Items = append(out.Items, toDTO(d))
	}
	return out, nil
}

func (s *service) Accept(ctx context.Context, orgID, userID, id uuid.UUID) (*DealDTO, error) {
	return s.decide(ctx, orgID, id, &userID, enums.DealAccepted, nil)
}

func (s *service) Reject(ctx context.Context, orgID, userID, id uuid.UUID, reason string) (*DealDTO, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is too long").
			WithDetails(map[string]any{"max_length": maxReasonLength})
	}
	var r *string
	if reason != "" {
		r = &reason
	}
	return s.decide(ctx, orgID, id, &userID, enums.DealRejected, r)
}

func (s *service) decide(ctx context.Context, orgID, id uuid.UUID, reviewer *uuid.UUID, to enums.DealStatus, reason *string) (*DealDTO, error) {
	var out *models.ManufacturerDeal
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		d, err := s.load(ctx, repo, orgID, id)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, tx, repo, d, reviewer, to, reason); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*out)
	return &dto, nil
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, repo *Repository, d *models.ManufacturerDeal, reviewer *uuid.UUID, to enums.DealStatus, reason *string) error {
	if d.Status != enums.DealPending {
		return pkgerrors.Transition("deal", string(d.Status), string(to))
	}
	now := s.now().UTC()
	ok, err := repo.Decide(ctx, d.ID, Decision{Status: to, Reason: reason, ReviewedBy: reviewer, At: now})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update deal")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "deal is no longer pending")
	}
	d.Status = to
	d.RejectionReason = reason
	d.ReviewedBy = reviewer
	d.ReviewedAt = &now
	d.UpdatedAt = now

	eventType := enums.EventDealAccepted
	if to == enums.DealRejected {
		eventType = enums.EventDealRejected
	}
	var actor *outbox.ActorRef
	if reviewer != nil {
		actor = &outbox.ActorRef{UserID: *reviewer, OrgID: d.OrgID}
	}
	data := payloads.DealDecisionEvent{
		DealID:       d.ID,
		Manufacturer: d.Manufacturer,
		PricePerLb:   d.PricePerLb.StringFixed(4),
		Status:       string(to),
		DecidedAt:    now,
	}
	if reason != nil {
		data.Reason = *reason
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		OrgID:         d.OrgID,
		EventType:     eventType,
		AggregateType: enums.AggregateManufacturerDeal,
		AggregateID:   d.ID,
		Actor:         actor,
		Data:          data,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit deal event")
	}
	return nil
}

func (s *service) ExpirePending(ctx context.Context) (int, error) {
	rows, err := s.repo.ListExpiredPending(ctx, s.now().UTC(), expiryBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expired deals")
	}
	reason := ReasonExpired
	var (
		expired int
		errs    error
	)
	for i := range rows {
		d := rows[i]
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.apply(ctx, tx, s.repo.WithTx(tx), &d, nil, enums.DealRejected, &reason)
		})
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("deal %s: %w", d.ID, err))
			continue
		}
		expired++
	}
	return expired, errs
}
