package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/frostline/frostline-backend/internal/resilience"
	"github.com/frostline/frostline-backend/pkg/enums"
	"github.com/frostline/frostline-backend/pkg/llm"
	"github.com/frostline/frostline-backend/pkg/logger"
)

// Operation names, used as metric labels and log fields.
const (
	OpExtractDeal       = "extract_deal"
	OpNormalizeAddress  = "normalize_address"
	OpInterpretPackSize = "interpret_pack_size"
	OpCategorizeProduct = "categorize_product"
	OpParseSearchQuery  = "parse_search_query"
)

var errIncompleteAnswer = errors.New("assistant returned an incomplete answer")

type toolCaller interface {
	CallTool(ctx context.Context, req llm.ToolRequest, out any) error
}

// Service runs every model call through the resilience guard.
type Service struct {
	llm   toolCaller
	guard *resilience.Guard
	logg  *logger.Logger
}

func NewService(client toolCaller, guard *resilience.Guard, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client required")
	}
	if guard == nil {
		return nil, fmt.Errorf("resilience guard required")
	}
	return &Service{llm: client, guard: guard, logg: logg}, nil
}

func (s *Service) Enabled() bool { return true }

// Answers are decoded and validated inside the guarded function so a
// malformed answer counts against the breaker like any other vendor failure.
func (s *Service) request(tool llm.Tool, prompt string) llm.ToolRequest {
	return llm.ToolRequest{System: systemPrompt, Prompt: prompt, Tool: tool}
}

func (s *Service) ExtractDeal(ctx context.Context, userID, emailText string) (*DealExtraction, error) {
	prompt := "Extract the manufacturer deal from this email.\n" + wrapInput(emailText)

	var out *DealExtraction
	err := s.guard.Do(ctx, userID, OpExtractDeal, func(ctx context.Context) error {
		var raw struct {
			Manufacturer       string  `json:"manufacturer"`
			ProductDescription string  `json:"product_description"`
			PricePerLb         float64 `json:"price_per_lb"`
			Quantity           *int    `json:"quantity"`
			PackSize           string  `json:"pack_size"`
			ExpirationDate     string  `json:"expiration_date"`
			Terms              string  `json:"terms"`
		}
		if err := s.llm.CallTool(ctx, s.request(extractDealTool, prompt), &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw.Manufacturer) == "" || strings.TrimSpace(raw.ProductDescription) == "" {
			return errIncompleteAnswer
		}
		if math.IsNaN(raw.PricePerLb) || raw.PricePerLb <= 0 {
			return fmt.Errorf("%w: price_per_lb %v", errIncompleteAnswer, raw.PricePerLb)
		}
		deal := &DealExtraction{
			Manufacturer:       strings.TrimSpace(raw.Manufacturer),
			ProductDescription: strings.TrimSpace(raw.ProductDescription),
			PricePerLb:         raw.PricePerLb,
			PackSize:           strings.TrimSpace(raw.PackSize),
			Terms:              strings.TrimSpace(raw.Terms),
		}
		if raw.Quantity != nil && *raw.Quantity > 0 {
			deal.Quantity = raw.Quantity
		}
		if d := strings.TrimSpace(raw.ExpirationDate); d != "" {
			// an unreadable date is dropped rather than failing the extraction
			if parsed, err := time.Parse("2006-01-02", d); err == nil {
				deal.ExpirationDate = &parsed
			}
		}
		out = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) NormalizeAddress(ctx context.Context, userID, raw string) (string, error) {
	prompt := "Rewrite this US delivery address so a geocoder can find it.\n" + wrapInput(raw)

	var address string
	err := s.guard.Do(ctx, userID, OpNormalizeAddress, func(ctx context.Context) error {
		var resp struct {
			Address string `json:"address"`
		}
		if err := s.llm.CallTool(ctx, s.request(normalizeAddressTool, prompt), &resp); err != nil {
			return err
		}
		address = strings.TrimSpace(resp.Address)
		if address == "" {
			return errIncompleteAnswer
		}
		return nil
	})
	return address, err
}

// InterpretPackSize returns nil without error when the model cannot
// determine a weight.
func (s *Service) InterpretPackSize(ctx context.Context, userID, packSize, description string) (*float64, error) {
	prompt := fmt.Sprintf("Pack size: %s\nDescription:\n%s\nWhat is the total net weight of one case in pounds?",
		Sanitize(packSize), wrapInput(description))

	var weight *float64
	err := s.guard.Do(ctx, userID, OpInterpretPackSize, func(ctx context.Context) error {
		var resp struct {
			CaseWeightLbs *float64 `json:"case_weight_lbs"`
		}
		if err := s.llm.CallTool(ctx, s.request(packSizeTool, prompt), &resp); err != nil {
			return err
		}
		if resp.CaseWeightLbs != nil && *resp.CaseWeightLbs > 0 && !math.IsInf(*resp.CaseWeightLbs, 0) {
			weight = resp.CaseWeightLbs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return weight, nil
}

func (s *Service) CategorizeProduct(ctx context.Context, userID, description, packSize string) (enums.ProductCategory, error) {
	prompt := fmt.Sprintf("Categorize this frozen protein product.\nPack size: %s\n%s", Sanitize(packSize), wrapInput(description))

	var category enums.ProductCategory
	err := s.guard.Do(ctx, userID, OpCategorizeProduct, func(ctx context.Context) error {
		var resp struct {
			Category string `json:"category"`
		}
		if err := s.llm.CallTool(ctx, s.request(categorizeTool, prompt), &resp); err != nil {
			return err
		}
		parsed, err := enums.ParseProductCategory(strings.ToLower(strings.TrimSpace(resp.Category)))
		if err != nil {
			return fmt.Errorf("%w: %v", errIncompleteAnswer, err)
		}
		category = parsed
		return nil
	})
	return category, err
}

func (s *Service) ParseSearchQuery(ctx context.Context, userID, query string) (*SearchFilters, error) {
	prompt := "Turn this product search into filters.\n" + wrapInput(query)

	var filters *SearchFilters
	err := s.guard.Do(ctx, userID, OpParseSearchQuery, func(ctx context.Context) error {
		var resp struct {
			Keywords       []string `json:"keywords"`
			Category       string   `json:"category"`
			MaxCostPerLb   *float64 `json:"max_cost_per_lb"`
			WarehouseState string   `json:"warehouse_state"`
		}
		if err := s.llm.CallTool(ctx, s.request(searchTool, prompt), &resp); err != nil {
			return err
		}
		f := &SearchFilters{WarehouseState: strings.ToUpper(strings.TrimSpace(resp.WarehouseState))}
		for _, kw := range resp.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				f.Keywords = append(f.Keywords, kw)
			}
		}
		if c, err := enums.ParseProductCategory(strings.ToLower(strings.TrimSpace(resp.Category))); err == nil {
			f.Category = &c
		}
		if resp.MaxCostPerLb != nil && *resp.MaxCostPerLb > 0 {
			f.MaxCostPerLb = resp.MaxCostPerLb
		}
		filters = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filters, nil
}
