package ai

import (
	"context"
	"time"

	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

// Capability is the optional assistant used by products, customers and deals.
// Callers must check Enabled and degrade to their non-assisted path otherwise.
type Capability interface {
	Enabled() bool
	ExtractDeal(ctx context.Context, userID, emailText string) (*DealExtraction, error)
	NormalizeAddress(ctx context.Context, userID, raw string) (string, error)
	InterpretPackSize(ctx context.Context, userID, packSize, description string) (*float64, error)
	CategorizeProduct(ctx context.Context, userID, description, packSize string) (enums.ProductCategory, error)
	ParseSearchQuery(ctx context.Context, userID, query string) (*SearchFilters, error)
}

// DealExtraction is the structured form of a manufacturer deal email.
type DealExtraction struct {
	Manufacturer       string     `json:"manufacturer"`
	ProductDescription string     `json:"product_description"`
	PricePerLb         float64    `json:"price_per_lb"`
	Quantity           *int       `json:"quantity,omitempty"`
	PackSize           string     `json:"pack_size,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	Terms              string     `json:"terms,omitempty"`
}

// SearchFilters is a natural-language product query turned into filters.
type SearchFilters struct {
	Keywords       []string               `json:"keywords"`
	Category       *enums.ProductCategory `json:"category,omitempty"`
	MaxCostPerLb   *float64               `json:"max_cost_per_lb,omitempty"`
	WarehouseState string                 `json:"warehouse_state,omitempty"`
}

// Disabled is used when no provider is configured.
type Disabled struct{}

var errDisabled = pkgerrors.New(pkgerrors.CodeDependency, "assistant is not configured")

func (Disabled) Enabled() bool { return false }

func (Disabled) ExtractDeal(context.Context, string, string) (*DealExtraction, error) {
	return nil, errDisabled
}

func (Disabled) NormalizeAddress(context.Context, string, string) (string, error) {
	return "", errDisabled
}

func (Disabled) InterpretPackSize(context.Context, string, string, string) (*float64, error) {
	return nil, errDisabled
}

func (Disabled) CategorizeProduct(context.Context, string, string, string) (enums.ProductCategory, error) {
	return "", errDisabled
}

func (Disabled) ParseSearchQuery(context.Context, string, string) (*SearchFilters, error) {
	return nil, errDisabled
}
