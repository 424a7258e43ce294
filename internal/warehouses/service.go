package warehouses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/internal/address"
	"github.com/frostline/frostline-backend/pkg/db"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
)

type repository interface {
	Create(ctx context.Context, w *models.Warehouse) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Warehouse, error)
}

type locator interface {
	Locate(ctx context.Context, userID, raw string) (address.Location, error)
}

// Service manages the cold-storage origins products ship from.
type Service interface {
	Create(ctx context.Context, orgID, userID uuid.UUID, input CreateInput) (*models.Warehouse, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Warehouse, error)
}

// CreateInput carries a new warehouse. Coordinates are looked up when omitted.
type CreateInput struct {
	Code       string
	Name       string
	Address    string
	City       string
	State      string
	PostalCode string
	Latitude   *float64
	Longitude  *float64
}

type service struct {
	repo    repository
	locator locator
	logg    *logger.Logger
}

// NewService builds the warehouse service. locator may be nil, in which case
// warehouses without coordinates are stored without them.
func NewService(repo repository, loc locator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("warehouse repository required")
	}
	return &service{repo: repo, locator: loc, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, orgID, userID uuid.UUID, input CreateInput) (*models.Warehouse, error) {
	w := &models.Warehouse{
		OrgID:      orgID,
		Code:       strings.ToUpper(strings.TrimSpace(input.Code)),
		Name:       strings.TrimSpace(input.Name),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		State:      enums.NormalizeUSState(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
	}
	if w.Code == "" || w.Name == "" || w.Address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code, name and address are required")
	}
	if !enums.IsUSState(w.State) {
		return nil, pkgerrors.Invalid("state", "state must be a two-letter US state code")
	}
	if w.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "postal code is required")
	}

	if (w.Latitude == nil || w.Longitude == nil) && s.locator != nil {
		full := fmt.Sprintf("%s, %s, %s %s", w.Address, w.City, w.State, w.PostalCode)
		loc, err := s.locator.Locate(ctx, userID.String(), full)
		if err != nil {
			// coordinates only feed the map; the warehouse is still usable
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "code", w.Code), "warehouse.geocode.failed")
			}
		} else {
			w.Latitude, w.Longitude = &loc.Lat, &loc.Lng
		}
	}

	if err := s.repo.Create(ctx, w); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "warehouse code already exists").
				WithDetails(map[string]any{"code": w.Code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create warehouse")
	}
	return w, nil
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error) {
	w, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouse")
	}
	return w, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID) ([]models.Warehouse, error) {
	rows, err := s.repo.List(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list warehouses")
	}
	return rows, nil
}
