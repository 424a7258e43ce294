package enums

// ProductCategory groups frozen protein products.
type ProductCategory string

const (
	CategoryBeef    ProductCategory = "beef"
	CategoryPork    ProductCategory = "pork"
	CategoryPoultry ProductCategory = "poultry"
	CategorySeafood ProductCategory = "seafood"
	CategoryLamb    ProductCategory = "lamb"
	CategoryOther   ProductCategory = "other"
)

var validProductCategories = []ProductCategory{
	CategoryBeef,
	CategoryPork,
	CategoryPoultry,
	CategorySeafood,
	CategoryLamb,
	CategoryOther,
}

// String implements fmt.Stringer.
func (v ProductCategory) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ProductCategory.
func (v ProductCategory) IsValid() bool {
	return known(validProductCategories, v)
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	return parse(validProductCategories, value, "product category")
}
