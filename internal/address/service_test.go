package address

import (
	"context"
	"errors"
	"testing"

	"github.com/frostline/frostline-backend/internal/ai"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/maps"
)

func samplePlace() *maps.Place {
	return &maps.Place{
		FormattedAddress: "123 Demo St, Example City, OK 73106, USA",
		Location:         maps.LatLng{Latitude: 35.4676, Longitude: -97.5164},
		State:            "OK",
		PostalCode:       "73106",
		Components: []maps.AddressComponent{
			{LongName: "123", Types: []string{"street_number"}},
			{LongName: "Demo St", Types: []string{"route"}},
			{LongName: "Example City", Types: []string{"locality"}},
			{LongName: "Oklahoma", ShortName: "OK", Types: []string{"administrative_area_level_1"}},
			{LongName: "73106", Types: []string{"postal_code"}},
		},
	}
}

func TestMapPlace(t *testing.T) {
	loc, err := mapPlace(samplePlace())
	if err != nil {
		t.Fatalf("mapPlace failed: %v", err)
	}
	if loc.City != "Example City" || loc.State != "OK" || loc.PostalCode != "73106" {
		t.Fatalf("unexpected location %+v", loc)
	}
	if loc.Lat != 35.4676 || loc.Lng != -97.5164 {
		t.Fatalf("unexpected coordinates %+v", loc)
	}
}

func TestMapPlaceMissingState(t *testing.T) {
	place := samplePlace()
	place.State = ""
	if _, err := mapPlace(place); err == nil {
		t.Fatal("expected error when state missing")
	}
}

func TestLocateRetriesWithNormalizedAddress(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]*maps.Place{"123 Demo St, Example City, OK 73106": samplePlace()}}
	assistant := &fakeAssistant{enabled: true, rewrite: "123 Demo St, Example City, OK 73106"}
	svc := NewService(geo, assistant, nil)

	loc, err := svc.Locate(context.Background(), "user-1", "123 demo street nr the old mill, example cty")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !loc.Normalized || loc.State != "OK" {
		t.Fatalf("unexpected location %+v", loc)
	}
	if len(geo.queries) != 2 {
		t.Fatalf("expected one retry, got %v", geo.queries)
	}
}

func TestLocateWithoutAssistantReturnsGeocodeError(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]*maps.Place{}}
	svc := NewService(geo, nil, nil)

	_, err := svc.Locate(context.Background(), "user-1", "nowhere")
	if !errors.Is(err, maps.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
	if len(geo.queries) != 1 {
		t.Fatalf("expected a single geocode attempt, got %v", geo.queries)
	}
}

func TestLocateAssistantFailureKeepsGeocodeError(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]*maps.Place{}}
	assistant := &fakeAssistant{enabled: true, err: pkgerrors.New(pkgerrors.CodeRateLimit, "slow down")}
	svc := NewService(geo, assistant, nil)

	_, err := svc.Locate(context.Background(), "user-1", "nowhere")
	if !errors.Is(err, maps.ErrNoResults) {
		t.Fatalf("expected geocode error, got %v", err)
	}
}

type fakeGeocoder struct {
	places  map[string]*maps.Place
	queries []string
}

func (f *fakeGeocoder) Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error) {
	return nil, nil
}

func (f *fakeGeocoder) ResolvePlace(ctx context.Context, placeID string) (*maps.Place, error) {
	return samplePlace(), nil
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*maps.Place, error) {
	f.queries = append(f.queries, address)
	if p, ok := f.places[address]; ok {
		return p, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, maps.ErrNoResults, "address not found")
}

type fakeAssistant struct {
	ai.Disabled
	enabled bool
	rewrite string
	err     error
}

func (f *fakeAssistant) Enabled() bool { return f.enabled }

func (f *fakeAssistant) NormalizeAddress(ctx context.Context, userID, raw string) (string, error) {
	return f.rewrite, f.err
}
