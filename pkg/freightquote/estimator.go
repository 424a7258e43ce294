package freightquote

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/frostline/frostline-backend/pkg/config"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

// Request describes a dry LTL shipment.
type Request struct {
	OriginZip        string    `json:"origin_zip"`
	OriginState      string    `json:"origin_state"`
	DestinationZip   string    `json:"destination_zip"`
	DestinationState string    `json:"destination_state"`
	WeightLbs        float64   `json:"weight_lbs"`
	Pallets          int       `json:"pallets,omitempty"`
	ShipDate         time.Time `json:"ship_date"`
}

// Quote is a dry (non-refrigerated) freight quote in USD.
type Quote struct {
	Amount      float64 `json:"amount"`
	Carrier     string  `json:"carrier"`
	TransitDays int     `json:"transit_days,omitempty"`
	Provider    string  `json:"provider"`
}

// Estimator returns dry LTL quotes.
type Estimator interface {
	Name() string
	Quote(ctx context.Context, req Request) (*Quote, error)
}

// Validate checks the fields every provider needs.
func (r Request) Validate() error {
	if math.IsNaN(r.WeightLbs) || r.WeightLbs <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "weight_lbs must be greater than zero").
			WithDetails(map[string]any{"weight_lbs": r.WeightLbs})
	}
	if strings.TrimSpace(r.OriginZip) == "" || strings.TrimSpace(r.DestinationZip) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "origin and destination zip codes are required")
	}
	return nil
}

// NewByName returns the estimator configured by provider name.
func NewByName(cfg config.FreightQuoteConfig) (Estimator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "static", "":
		return NewStatic(), nil
	case "http":
		return NewHTTPProvider(cfg.BaseURL, cfg.APIKey, WithTimeout(cfg.Timeout))
	default:
		return nil, fmt.Errorf("unknown freight quote provider %q", cfg.Provider)
	}
}

// Static is a distance-free heuristic used when no quoting service is
// configured. It is intentionally conservative.
type Static struct {
	Base          float64
	PerLb         float64
	InterstatePer float64
	Minimum       float64
}

func NewStatic() *Static {
	return &Static{Base: 95, PerLb: 0.11, InterstatePer: 0.04, Minimum: 175}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Quote(ctx context.Context, req Request) (*Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	amount := s.Base + req.WeightLbs*s.PerLb
	transit := 2
	if !strings.EqualFold(strings.TrimSpace(req.OriginState), strings.TrimSpace(req.DestinationState)) {
		amount += req.WeightLbs * s.InterstatePer
		transit = 4
	}
	if amount < s.Minimum {
		amount = s.Minimum
	}
	return &Quote{
		Amount:      math.Round(amount*100) / 100,
		Carrier:     "estimate",
		TransitDays: transit,
		Provider:    s.Name(),
	}, nil
}
