package enums

// PriceSheetStatus tracks the price sheet lifecycle.
type PriceSheetStatus string

const (
	PriceSheetDraft     PriceSheetStatus = "draft"
	PriceSheetPublished PriceSheetStatus = "published"
	PriceSheetArchived  PriceSheetStatus = "archived"
)

var validPriceSheetStatuses = []PriceSheetStatus{
	PriceSheetDraft,
	PriceSheetPublished,
	PriceSheetArchived,
}

// String implements fmt.Stringer.
func (v PriceSheetStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PriceSheetStatus.
func (v PriceSheetStatus) IsValid() bool {
	return known(validPriceSheetStatuses, v)
}

// ParsePriceSheetStatus converts raw input into a PriceSheetStatus.
func ParsePriceSheetStatus(value string) (PriceSheetStatus, error) {
	return parse(validPriceSheetStatuses, value, "price sheet status")
}
