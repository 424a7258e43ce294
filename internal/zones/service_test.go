package zones

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostline/frostline-backend/pkg/db/dbtest"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t, dbtest.Zones)))
	require.NoError(t, err)
	return svc
}

func TestCreateAndResolveZoneForState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	south, err := svc.Create(ctx, orgID, ZoneInput{Name: "South", States: []string{"tx", "OK", "TX", " la "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"TX", "OK", "LA"}, []string(south.States))
	assert.Equal(t, defaultColor, south.Color)

	got, err := svc.ZoneForState(ctx, orgID, "ok")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, south.ID, got.ID)

	none, err := svc.ZoneForState(ctx, orgID, "WA")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateRejectsOverlappingStates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	_, err := svc.Create(ctx, orgID, ZoneInput{Name: "South", States: []string{"TX"}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, orgID, ZoneInput{Name: "Texas Metro", States: []string{"TX"}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []ZoneInput{
		{Name: "", States: []string{"TX"}},
		{Name: "Bad", States: []string{"ZZ"}},
		{Name: "Empty"},
		{Name: "Color", Color: "blue", States: []string{"TX"}},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, uuid.New(), in)
		require.Error(t, err, "input %+v", in)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
}

func TestUpdateKeepsOwnStates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	z, err := svc.Create(ctx, orgID, ZoneInput{Name: "West", States: []string{"CA"}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, orgID, z.ID, ZoneInput{Name: "West Coast", Color: "#FF0000", States: []string{"CA", "OR", "WA"}})
	require.NoError(t, err)
	assert.Equal(t, "West Coast", updated.Name)
	assert.Equal(t, "#ff0000", updated.Color)
	assert.Len(t, updated.States, 3)
}

func TestDeleteZone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	z, err := svc.Create(ctx, orgID, ZoneInput{Name: "North", States: []string{"MN"}})
	require.NoError(t, err)

	require.Error(t, svc.Delete(ctx, uuid.New(), z.ID))
	require.NoError(t, svc.Delete(ctx, orgID, z.ID))

	err = svc.Delete(ctx, orgID, z.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
