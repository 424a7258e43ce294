package enums

// DealStatus tracks review of a manufacturer deal.
type DealStatus string

const (
	DealPending  DealStatus = "pending"
	DealAccepted DealStatus = "accepted"
	DealRejected DealStatus = "rejected"
)

var validDealStatuses = []DealStatus{
	DealPending,
	DealAccepted,
	DealRejected,
}

// String implements fmt.Stringer.
func (v DealStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DealStatus.
func (v DealStatus) IsValid() bool {
	return known(validDealStatuses, v)
}

// ParseDealStatus converts raw input into a DealStatus.
func ParseDealStatus(value string) (DealStatus, error) {
	return parse(validDealStatuses, value, "deal status")
}
