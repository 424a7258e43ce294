package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostline/frostline-backend/internal/address"
	"github.com/frostline/frostline-backend/internal/zones"
	"github.com/frostline/frostline-backend/pkg/db/dbtest"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/pagination"
	"github.com/frostline/frostline-backend/pkg/types"
)

type stubLocator struct {
	byAddress map[string]address.Location
	calls     []string
}

func (s *stubLocator) Locate(_ context.Context, _ string, raw string) (address.Location, error) {
	s.calls = append(s.calls, raw)
	if loc, ok := s.byAddress[raw]; ok {
		return loc, nil
	}
	return address.Location{}, pkgerrors.New(pkgerrors.CodeDependency, "no results")
}

type fixture struct {
	svc     Service
	zones   zones.Service
	locator *stubLocator
	orgID   uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t, dbtest.Zones, dbtest.Customers)
	zoneSvc, err := zones.NewService(zones.NewRepository(conn))
	require.NoError(t, err)
	loc := &stubLocator{byAddress: map[string]address.Location{}}
	svc, err := NewService(NewRepository(conn), zoneSvc, loc, nil)
	require.NoError(t, err)
	return fixture{svc: svc, zones: zoneSvc, locator: loc, orgID: uuid.New()}
}

func TestCreateGeocodesAndAssignsZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	south, err := f.zones.Create(ctx, f.orgID, zones.ZoneInput{Name: "South", States: []string{"TX"}})
	require.NoError(t, err)

	f.locator.byAddress["500 Market St, Dallas, TX 75201"] = address.Location{
		FormattedAddress: "500 Market St, Dallas, TX 75201, USA",
		City:             "Dallas",
		State:            "TX",
		PostalCode:       "75201",
		Lat:              32.78,
		Lng:              -96.8,
	}

	c, err := f.svc.Create(ctx, f.orgID, uuid.New(), CreateInput{
		Name:       "Lone Star Grill",
		Address:    "500 Market St",
		City:       "Dallas",
		State:      "tx",
		PostalCode: "75201",
	})
	require.NoError(t, err)
	require.NotNil(t, c.Latitude)
	require.NotNil(t, c.ZoneID)
	assert.Equal(t, south.ID, *c.ZoneID)
	assert.NotNil(t, c.GeocodedAt)

	view, err := f.svc.MapView(ctx, f.orgID)
	require.NoError(t, err)
	require.Len(t, view.Zones, 1)
	require.Len(t, view.Zones[0].Customers, 1)
	assert.Equal(t, "500 Market St, Dallas, TX 75201, USA", view.Zones[0].Customers[0].Address)
	assert.Empty(t, view.Unassigned)
}

func TestCreateKeepsCustomerWhenGeocodingFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.orgID, uuid.New(), CreateInput{Name: "Mystery Deli", Address: "somewhere", State: "WA"})
	require.NoError(t, err)
	assert.Nil(t, c.Latitude)
	assert.Nil(t, c.ZoneID)

	view, err := f.svc.MapView(ctx, f.orgID)
	require.NoError(t, err)
	assert.Empty(t, view.Unassigned)
}

func TestCreateRejectsForeignZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.zones.Create(ctx, uuid.New(), zones.ZoneInput{Name: "Other", States: []string{"TX"}})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.orgID, uuid.New(), CreateInput{Name: "A", Address: "1 Main", ZoneID: &other.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCreateValidatesEmail(t *testing.T) {
	f := newFixture(t)
	bad := "not-an-email"
	_, err := f.svc.Create(context.Background(), f.orgID, uuid.New(), CreateInput{Name: "A", Address: "1 Main", ContactEmail: &bad})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateClearsZoneAndRegeocodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	south, err := f.zones.Create(ctx, f.orgID, zones.ZoneInput{Name: "South", States: []string{"TX"}})
	require.NoError(t, err)

	c, err := f.svc.Create(ctx, f.orgID, uuid.New(), CreateInput{Name: "A", Address: "1 Main", ZoneID: &south.ID})
	require.NoError(t, err)
	require.Equal(t, south.ID, *c.ZoneID)

	updated, err := f.svc.Update(ctx, f.orgID, uuid.New(), c.ID, UpdateInput{ZoneID: types.Null[uuid.UUID]()})
	require.NoError(t, err)
	assert.Nil(t, updated.ZoneID)

	f.locator.byAddress["9 Elm, Austin, TX"] = address.Location{State: "TX", City: "Austin", Lat: 30.2, Lng: -97.7}
	addr, city, state := "9 Elm", "Austin", "TX"
	moved, err := f.svc.Update(ctx, f.orgID, uuid.New(), c.ID, UpdateInput{Address: &addr, City: &city, State: &state})
	require.NoError(t, err)
	require.NotNil(t, moved.ZoneID)
	assert.Equal(t, south.ID, *moved.ZoneID)
	require.NotNil(t, moved.Latitude)
}

func TestUpdateMissingCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), f.orgID, uuid.New(), uuid.New(), UpdateInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		_, err := f.svc.Create(ctx, f.orgID, uuid.New(), CreateInput{Name: name, Address: "1 Main"})
		require.NoError(t, err)
	}

	first, err := f.svc.List(ctx, f.orgID, ListParams{Params: paginationParams(2, "")})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.List(ctx, f.orgID, ListParams{Params: paginationParams(2, first.NextCursor)})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)
}

func paginationParams(limit int, cursor string) pagination.Params {
	return pagination.Params{Limit: limit, Cursor: cursor}
}
