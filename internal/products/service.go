package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/internal/ai"
	"github.com/frostline/frostline-backend/internal/packsize"
	"github.com/frostline/frostline-backend/pkg/db"
	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/pagination"
	"github.com/frostline/frostline-backend/pkg/types"
)

type repository interface {
	Create(ctx context.Context, p *models.Product) error
	Save(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	FindByItemCode(ctx context.Context, orgID uuid.UUID, itemCode string) (*models.Product, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter, cursor *pagination.Cursor) ([]models.Product, error)
	Search(ctx context.Context, orgID uuid.UUID, c SearchCriteria) ([]models.Product, error)
}

type warehouseLookup interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error)
	FindByCode(ctx context.Context, orgID uuid.UUID, code string) (*models.Warehouse, error)
}

type weightParser interface {
	Parse(ctx context.Context, userID, packSize, description string) packsize.Result
}

// Service manages the frozen catalogue.
type Service interface {
	Create(ctx context.Context, orgID, userID uuid.UUID, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, orgID, userID, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter) (pagination.Page[ProductDTO], error)
	Upload(ctx context.Context, orgID, userID uuid.UUID, r io.Reader) (*UploadResult, error)
	Categorize(ctx context.Context, orgID, userID, id uuid.UUID) (*ProductDTO, error)
	Search(ctx context.Context, orgID, userID uuid.UUID, query string, limit int) (*SearchResult, error)
}

type CreateInput struct {
	WarehouseID       uuid.UUID
	ItemCode          string
	Description       string
	PackSize          string
	Category          *enums.ProductCategory
	UnitCost          float64
	CaseWeightLbs     *float64
	QuantityAvailable int
}

// UpdateInput is a partial update. CaseWeightLbs and Category accept null to clear.
type UpdateInput struct {
	WarehouseID       *uuid.UUID
	Description       *string
	PackSize          *string
	Category          types.Optional[enums.ProductCategory]
	UnitCost          *float64
	CaseWeightLbs     types.Optional[float64]
	QuantityAvailable *int
	IsActive          *bool
}

type ServiceParams struct {
	Repo       repository
	Warehouses warehouseLookup
	Parser     weightParser
	AI         ai.Capability
	Logger     *logger.Logger
}

type service struct {
	repo       repository
	warehouses warehouseLookup
	parser     weightParser
	ai         ai.Capability
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Warehouses == nil {
		return nil, fmt.Errorf("warehouse lookup required")
	}
	if params.Parser == nil {
		return nil, fmt.Errorf("pack size parser required")
	}
	capability := params.AI
	if capability == nil {
		capability = ai.Disabled{}
	}
	return &service{
		repo:       params.Repo,
		warehouses: params.Warehouses,
		parser:     params.Parser,
		ai:         capability,
		logg:       params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, orgID, userID uuid.UUID, input CreateInput) (*ProductDTO, error) {
	p := &models.Product{
		OrgID:             orgID,
		WarehouseID:       input.WarehouseID,
		ItemCode:          strings.TrimSpace(input.ItemCode),
		Description:       strings.TrimSpace(input.Description),
		PackSize:          strings.TrimSpace(input.PackSize),
		Category:          input.Category,
		QuantityAvailable: input.QuantityAvailable,
		IsActive:          true,
	}
	if p.ItemCode == "" || p.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item_code and description are required")
	}
	if err := validateCategory(p.Category); err != nil {
		return nil, err
	}
	if err := validateMoney(input.UnitCost, input.CaseWeightLbs, input.QuantityAvailable); err != nil {
		return nil, err
	}
	if err := s.checkWarehouse(ctx, orgID, p.WarehouseID); err != nil {
		return nil, err
	}

	p.UnitCost = decimal.NewFromFloat(input.UnitCost)
	source := s.resolveWeight(ctx, userID, p, input.CaseWeightLbs)
	p.RecomputeCostPerLb()

	if err := s.repo.Create(ctx, p); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "item code already exists").
				WithDetails(map[string]any{"item_code": p.ItemCode})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	dto := toDTO(*p)
	dto.WeightSource = source
	return &dto, nil
}

func (s *service) Update(ctx context.Context, orgID, userID, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	p, err := s.load(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if input.WarehouseID != nil && *input.WarehouseID != p.WarehouseID {
		if err := s.checkWarehouse(ctx, orgID, *input.WarehouseID); err != nil {
			return nil, err
		}
		p.WarehouseID = *input.WarehouseID
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if desc == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		p.Description = desc
	}
	if input.Category.Set {
		if err := validateCategory(input.Category.Value); err != nil {
			return nil, err
		}
		p.Category = input.Category.Value
	}
	if input.QuantityAvailable != nil {
		if *input.QuantityAvailable < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		p.QuantityAvailable = *input.QuantityAvailable
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	if input.UnitCost != nil {
		if err := validateMoney(*input.UnitCost, nil, 0); err != nil {
			return nil, err
		}
		p.UnitCost = decimal.NewFromFloat(*input.UnitCost)
	}

	var source WeightSource
	packChanged := input.PackSize != nil && strings.TrimSpace(*input.PackSize) != p.PackSize
	if input.PackSize != nil {
		p.PackSize = strings.TrimSpace(*input.PackSize)
	}
	switch {
	case input.CaseWeightLbs.Set && input.CaseWeightLbs.Value != nil:
		if err := validateMoney(0, input.CaseWeightLbs.Value, 0); err != nil {
			return nil, err
		}
		source = s.resolveWeight(ctx, userID, p, input.CaseWeightLbs.Value)
	case input.CaseWeightLbs.Set:
		// explicit null: fall back to whatever the pack size says
		source = s.resolveWeight(ctx, userID, p, nil)
	case packChanged:
		source = s.resolveWeight(ctx, userID, p, nil)
	}
	p.RecomputeCostPerLb()

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	dto := toDTO(*p)
	dto.WeightSource = source
	return &dto, nil
}

// Delete deactivates the product. Published price sheets keep referencing it.
func (s *service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	p, err := s.load(ctx, orgID, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}
	p.IsActive = false
	if err := s.repo.Save(ctx, p); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate product")
	}
	return nil
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.load(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*p)
	return &dto, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) (pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, orgID, filter, cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return pagination.BuildPage(toDTOs(rows), filter.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

func (s *service) Categorize(ctx context.Context, orgID, userID, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.load(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	category, err := s.ai.CategorizeProduct(ctx, userID.String(), p.Description, p.PackSize)
	if err != nil {
		return nil, err
	}
	p.Category = &category
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save category")
	}
	dto := toDTO(*p)
	return &dto, nil
}

// resolveWeight sets the case weight from the explicit value, the pack size
// patterns or the assistant, in that order.
func (s *service) resolveWeight(ctx context.Context, userID uuid.UUID, p *models.Product, explicit *float64) WeightSource {
	if explicit != nil {
		p.CaseWeightLbs = optionalDecimal(explicit)
		return WeightExplicit
	}
	res := s.parser.Parse(ctx, userID.String(), p.PackSize, p.Description)
	if res.WeightLbs == nil {
		p.CaseWeightLbs = nil
		return WeightUnresolved
	}
	p.CaseWeightLbs = optionalDecimal(res.WeightLbs)
	if res.AIAssisted {
		return WeightAI
	}
	return WeightParsed
}

func (s *service) load(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	p, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return p, nil
}

func (s *service) checkWarehouse(ctx context.Context, orgID, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "warehouse_id is required")
	}
	if _, err := s.warehouses.FindByID(ctx, orgID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "warehouse does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouse")
	}
	return nil
}

func validateCategory(c *enums.ProductCategory) error {
	if c != nil && !c.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown category").
			WithDetails(map[string]any{"category": *c})
	}
	return nil
}

func validateMoney(unitCost float64, caseWeight *float64, qty int) error {
	if math.IsNaN(unitCost) || math.IsInf(unitCost, 0) || unitCost < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit_cost must be zero or greater")
	}
	if caseWeight != nil && (math.IsNaN(*caseWeight) || *caseWeight <= 0) {
		return pkgerrors.New(pkgerrors.CodeValidation, "case_weight_lbs must be greater than zero")
	}
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	return nil
}
