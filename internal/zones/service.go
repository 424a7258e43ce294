package zones

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db"
	"github.com/frostline/frostline-backend/pkg/db/models"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

const defaultColor = "#2563eb"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type repository interface {
	Create(ctx context.Context, z *models.Zone) error
	Update(ctx context.Context, z *models.Zone) error
	Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Zone, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Zone, error)
}

// Service manages delivery zones. A state belongs to at most one zone per org.
type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input ZoneInput) (*models.Zone, error)
	Update(ctx context.Context, orgID, id uuid.UUID, input ZoneInput) (*models.Zone, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Zone, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Zone, error)
	// ZoneForState returns nil when no zone covers the state.
	ZoneForState(ctx context.Context, orgID uuid.UUID, state string) (*models.Zone, error)
}

type ZoneInput struct {
	Name   string
	Color  string
	States []string
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("zone repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input ZoneInput) (*models.Zone, error) {
	z, err := s.build(ctx, orgID, uuid.Nil, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, z); err != nil {
		return nil, s.writeError(err, "create zone")
	}
	return z, nil
}

func (s *service) Update(ctx context.Context, orgID, id uuid.UUID, input ZoneInput) (*models.Zone, error) {
	existing, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	z, err := s.build(ctx, orgID, id, input)
	if err != nil {
		return nil, err
	}
	z.ID = existing.ID
	z.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, z); err != nil {
		return nil, s.writeError(err, "update zone")
	}
	return s.Get(ctx, orgID, id)
}

func (s *service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, orgID, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "zone is referenced by price sheets")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete zone")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "zone not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Zone, error) {
	z, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "zone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load zone")
	}
	return z, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID) ([]models.Zone, error) {
	rows, err := s.repo.List(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list zones")
	}
	return rows, nil
}

func (s *service) ZoneForState(ctx context.Context, orgID uuid.UUID, state string) (*models.Zone, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return nil, nil
	}
	rows, err := s.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Covers(state) {
			return &rows[i], nil
		}
	}
	return nil, nil
}

func (s *service) build(ctx context.Context, orgID, selfID uuid.UUID, input ZoneInput) (*models.Zone, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "zone name is required")
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = defaultColor
	}
	if !hexColor.MatchString(color) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "color must be a #rrggbb hex value")
	}
	states, invalid := normalizeStates(input.States)
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown state codes").
			WithDetails(map[string]any{"states": invalid})
	}
	if len(states) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a zone needs at least one state")
	}

	existing, err := s.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	taken := map[string]string{}
	for _, z := range existing {
		if z.ID == selfID {
			continue
		}
		for _, st := range states {
			if z.Covers(st) {
				taken[st] = z.Name
			}
		}
	}
	if len(taken) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "states already belong to another zone").
			WithDetails(map[string]any{"states": taken})
	}

	return &models.Zone{
		OrgID:  orgID,
		Name:   name,
		Color:  strings.ToLower(color),
		States: pq.StringArray(states),
	}, nil
}

func (s *service) writeError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "zone name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
