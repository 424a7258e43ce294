package address

import (
	"context"
	"strings"

	"github.com/frostline/frostline-backend/internal/ai"
	"github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/maps"
)

type Service interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
	Resolve(ctx context.Context, req ResolveRequest) (Location, error)
	// Locate geocodes a free-form address. When geocoding fails and the
	// assistant is available, the address is rewritten once and retried.
	Locate(ctx context.Context, userID, raw string) (Location, error)
}

type geocoder interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.Place, error)
	Geocode(ctx context.Context, address string) (*maps.Place, error)
}

type service struct {
	maps geocoder
	ai   ai.Capability
	logg *logger.Logger
}

func NewService(client geocoder, assistant ai.Capability, logg *logger.Logger) Service {
	if assistant == nil {
		assistant = ai.Disabled{}
	}
	return &service{maps: client, ai: assistant, logg: logg}
}

// Location is a geocoded address ready to be stored on a customer.
type Location struct {
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	PostalCode       string  `json:"postal_code"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	// Normalized is set when the assistant rewrote the address before it could be found.
	Normalized bool `json:"normalized"`
}

func (s *service) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if s == nil || s.maps == nil {
		return nil, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New(errors.CodeValidation, "query is required")
	}

	payload := maps.AutocompleteRequest{Input: req.Query, IncludedRegionCodes: []string{"US"}}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		payload.LanguageCode = lang
	}

	resp, err := s.maps.Autocomplete(ctx, payload)
	if err != nil {
		return nil, err
	}
	suggestions := make([]Suggestion, 0, len(resp))
	for _, item := range resp {
		suggestions = append(suggestions, Suggestion{PlaceID: item.PlaceID, Description: item.Description})
	}
	return suggestions, nil
}

func (s *service) Resolve(ctx context.Context, req ResolveRequest) (Location, error) {
	if s == nil || s.maps == nil {
		return Location{}, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(req.PlaceID) == "" {
		return Location{}, errors.New(errors.CodeValidation, "place_id is required")
	}
	place, err := s.maps.ResolvePlace(ctx, req.PlaceID)
	if err != nil {
		return Location{}, err
	}
	return mapPlace(place)
}

func (s *service) Locate(ctx context.Context, userID, raw string) (Location, error) {
	if s == nil || s.maps == nil {
		return Location{}, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(raw) == "" {
		return Location{}, errors.New(errors.CodeValidation, "address is required")
	}

	loc, geoErr := s.geocode(ctx, raw)
	if geoErr == nil || !s.ai.Enabled() {
		return loc, geoErr
	}

	rewritten, err := s.ai.NormalizeAddress(ctx, userID, raw)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "address.normalize.failed")
		}
		return Location{}, geoErr
	}
	if strings.EqualFold(strings.TrimSpace(rewritten), strings.TrimSpace(raw)) {
		return Location{}, geoErr
	}
	loc, err = s.geocode(ctx, rewritten)
	if err != nil {
		return Location{}, err
	}
	loc.Normalized = true
	return loc, nil
}

func (s *service) geocode(ctx context.Context, raw string) (Location, error) {
	place, err := s.maps.Geocode(ctx, raw)
	if err != nil {
		return Location{}, err
	}
	return mapPlace(place)
}

func mapPlace(place *maps.Place) (Location, error) {
	if place == nil {
		return Location{}, errors.New(errors.CodeDependency, "place details missing")
	}
	if place.Location.Latitude == 0 && place.Location.Longitude == 0 {
		return Location{}, errors.New(errors.CodeDependency, "place location missing")
	}

	find := func(kind string) (string, bool) {
		for _, comp := range place.Components {
			for _, typ := range comp.Types {
				if typ == kind && comp.LongName != "" {
					return comp.LongName, true
				}
			}
		}
		return "", false
	}

	city, ok := find("locality")
	if !ok {
		if town, ok2 := find("postal_town"); ok2 {
			city = town
		} else if admin2, ok3 := find("administrative_area_level_2"); ok3 {
			city = admin2
		}
	}
	if place.State == "" {
		return Location{}, errors.New(errors.CodeValidation, "address must include a US state")
	}

	return Location{
		FormattedAddress: place.FormattedAddress,
		City:             city,
		State:            place.State,
		PostalCode:       place.PostalCode,
		Lat:              place.Location.Latitude,
		Lng:              place.Location.Longitude,
	}, nil
}

type SuggestRequest struct {
	Query    string
	Language string
}

type ResolveRequest struct {
	PlaceID string
}

type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}
