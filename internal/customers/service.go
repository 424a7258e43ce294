package customers

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/internal/address"
	"github.com/frostline/frostline-backend/pkg/db/models"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/pagination"
	"github.com/frostline/frostline-backend/pkg/types"
)

type repository interface {
	Create(ctx context.Context, c *models.Customer) error
	Save(ctx context.Context, c *models.Customer) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, orgID uuid.UUID, params ListParams, cursor *pagination.Cursor) ([]models.Customer, error)
	ListGeocoded(ctx context.Context, orgID uuid.UUID) ([]models.Customer, error)
}

type zoneLookup interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Zone, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Zone, error)
	ZoneForState(ctx context.Context, orgID uuid.UUID, state string) (*models.Zone, error)
}

type locator interface {
	Locate(ctx context.Context, userID, raw string) (address.Location, error)
}

type Service interface {
	Create(ctx context.Context, orgID, userID uuid.UUID, input CreateInput) (*models.Customer, error)
	Update(ctx context.Context, orgID, userID, id uuid.UUID, input UpdateInput) (*models.Customer, error)
	List(ctx context.Context, orgID uuid.UUID, params ListParams) (pagination.Page[models.Customer], error)
	MapView(ctx context.Context, orgID uuid.UUID) (*MapView, error)
}

type CreateInput struct {
	Name         string
	ContactEmail *string
	Address      string
	City         string
	State        string
	PostalCode   string
	// ZoneID pins the customer to a zone; otherwise the zone is derived from the state.
	ZoneID *uuid.UUID
}

// UpdateInput is a partial update. ZoneID set to null clears the assignment.
type UpdateInput struct {
	Name         *string
	ContactEmail *string
	Address      *string
	City         *string
	State        *string
	PostalCode   *string
	ZoneID       types.Optional[uuid.UUID]
}

// MapView groups geocoded customers by zone for the distribution map.
type MapView struct {
	Zones      []MapZone `json:"zones"`
	Unassigned []MapPin  `json:"unassigned"`
}

type MapZone struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	States    []string  `json:"states"`
	Customers []MapPin  `json:"customers"`
}

type MapPin struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
}

type service struct {
	repo    repository
	zones   zoneLookup
	locator locator
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(repo repository, zones zoneLookup, loc locator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if zones == nil {
		return nil, fmt.Errorf("zone service required")
	}
	return &service{repo: repo, zones: zones, locator: loc, logg: logg, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, orgID, userID uuid.UUID, input CreateInput) (*models.Customer, error) {
	c := &models.Customer{
		OrgID:      orgID,
		Name:       strings.TrimSpace(input.Name),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		State:      strings.ToUpper(strings.TrimSpace(input.State)),
		PostalCode: strings.TrimSpace(input.PostalCode),
		ZoneID:     input.ZoneID,
	}
	if c.Name == "" || c.Address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and address are required")
	}
	email, err := normalizeEmail(input.ContactEmail)
	if err != nil {
		return nil, err
	}
	c.ContactEmail = email

	if err := s.checkZone(ctx, orgID, c.ZoneID); err != nil {
		return nil, err
	}
	s.geocode(ctx, userID, c)
	if err := s.assignZone(ctx, c, input.ZoneID == nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, orgID, userID, id uuid.UUID, input UpdateInput) (*models.Customer, error) {
	c, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		c.Name = name
	}
	if input.ContactEmail != nil {
		email, err := normalizeEmail(input.ContactEmail)
		if err != nil {
			return nil, err
		}
		c.ContactEmail = email
	}

	addressChanged := false
	for _, f := range []struct {
		in  *string
		out *string
	}{{input.Address, &c.Address}, {input.City, &c.City}, {input.State, &c.State}, {input.PostalCode, &c.PostalCode}} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if f.out == &c.State {
			v = strings.ToUpper(v)
		}
		if v != *f.out {
			*f.out = v
			addressChanged = true
		}
	}
	if c.Address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address cannot be empty")
	}

	autoZone := false
	if input.ZoneID.Set {
		if err := s.checkZone(ctx, orgID, input.ZoneID.Value); err != nil {
			return nil, err
		}
		c.ZoneID = input.ZoneID.Value
	} else if addressChanged {
		autoZone = true
	}

	if addressChanged {
		c.Latitude, c.Longitude, c.FormattedAddr, c.GeocodedAt = nil, nil, nil, nil
		s.geocode(ctx, userID, c)
	}
	if err := s.assignZone(ctx, c, autoZone); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update customer")
	}
	return c, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, params ListParams) (pagination.Page[models.Customer], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Customer]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, orgID, params, cursor)
	if err != nil {
		return pagination.Page[models.Customer]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customers")
	}
	return pagination.BuildPage(rows, params.Limit, func(c models.Customer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}

func (s *service) MapView(ctx context.Context, orgID uuid.UUID) (*MapView, error) {
	zones, err := s.zones.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	customers, err := s.repo.ListGeocoded(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customers")
	}

	view := &MapView{Zones: make([]MapZone, 0, len(zones)), Unassigned: []MapPin{}}
	index := make(map[uuid.UUID]int, len(zones))
	for i, z := range zones {
		index[z.ID] = i
		view.Zones = append(view.Zones, MapZone{
			ID:        z.ID,
			Name:      z.Name,
			Color:     z.Color,
			States:    []string(z.States),
			Customers: []MapPin{},
		})
	}
	for _, c := range customers {
		pin := MapPin{ID: c.ID, Name: c.Name, Address: c.Address, Lat: *c.Latitude, Lng: *c.Longitude}
		if c.FormattedAddr != nil {
			pin.Address = *c.FormattedAddr
		}
		if c.ZoneID != nil {
			if i, ok := index[*c.ZoneID]; ok {
				view.Zones[i].Customers = append(view.Zones[i].Customers, pin)
				continue
			}
		}
		view.Unassigned = append(view.Unassigned, pin)
	}
	return view, nil
}

// geocode fills coordinates when the address can be found. A customer whose
// address cannot be geocoded is still saved; it just stays off the map.
func (s *service) geocode(ctx context.Context, userID uuid.UUID, c *models.Customer) {
	if s.locator == nil {
		return
	}
	raw := strings.Join(nonEmpty(c.Address, c.City, strings.TrimSpace(c.State+" "+c.PostalCode)), ", ")
	loc, err := s.locator.Locate(ctx, userID.String(), raw)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"customer": c.Name, "error": err.Error()}), "customer.geocode.failed")
		}
		return
	}
	now := s.now().UTC()
	c.Latitude, c.Longitude = &loc.Lat, &loc.Lng
	c.FormattedAddr = &loc.FormattedAddress
	c.GeocodedAt = &now
	if loc.City != "" {
		c.City = loc.City
	}
	if loc.State != "" {
		c.State = strings.ToUpper(loc.State)
	}
	if loc.PostalCode != "" {
		c.PostalCode = loc.PostalCode
	}
}

func (s *service) assignZone(ctx context.Context, c *models.Customer, auto bool) error {
	if !auto {
		return nil
	}
	z, err := s.zones.ZoneForState(ctx, c.OrgID, c.State)
	if err != nil {
		return err
	}
	if z == nil {
		c.ZoneID = nil
		return nil
	}
	c.ZoneID = &z.ID
	return nil
}

func (s *service) checkZone(ctx context.Context, orgID uuid.UUID, zoneID *uuid.UUID) error {
	if zoneID == nil {
		return nil
	}
	_, err := s.zones.Get(ctx, orgID, *zoneID)
	return err
}

func normalizeEmail(in *string) (*string, error) {
	if in == nil || strings.TrimSpace(*in) == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(*in))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact email")
	}
	email := strings.ToLower(addr.Address)
	return &email, nil
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
