package products

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/internal/ai"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

// SearchResult carries the matches and, when the assistant interpreted the
// query, the filters it produced.
type SearchResult struct {
	Items      []ProductDTO      `json:"items"`
	AIAssisted bool              `json:"ai_assisted"`
	Filters    *ai.SearchFilters `json:"filters,omitempty"`
}

// Search interprets a natural-language query when the assistant is available
// and falls back to plain keyword matching otherwise, including when the
// assistant fails or its filters match nothing.
func (s *service) Search(ctx context.Context, orgID, userID uuid.UUID, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "q is required")
	}

	if s.ai.Enabled() {
		filters, err := s.ai.ParseSearchQuery(ctx, userID.String(), query)
		if err == nil && filters != nil {
			rows, err := s.repo.Search(ctx, orgID, SearchCriteria{
				Keywords:       filters.Keywords,
				Category:       filters.Category,
				MaxCostPerLb:   filters.MaxCostPerLb,
				WarehouseState: filters.WarehouseState,
				Limit:          limit,
			})
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search products")
			}
			if len(rows) > 0 {
				return &SearchResult{Items: toDTOs(rows), AIAssisted: true, Filters: filters}, nil
			}
		} else if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "products.search.ai_fallback")
		}
	}

	rows, err := s.repo.Search(ctx, orgID, SearchCriteria{Keywords: strings.Fields(query), Limit: limit})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search products")
	}
	return &SearchResult{Items: toDTOs(rows)}, nil
}
