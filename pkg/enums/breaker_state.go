package enums

// BreakerState is the persisted state of a circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

var validBreakerStates = []BreakerState{
	BreakerClosed,
	BreakerOpen,
	BreakerHalfOpen,
}

// String implements fmt.Stringer.
func (v BreakerState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known BreakerState.
func (v BreakerState) IsValid() bool {
	return known(validBreakerStates, v)
}

// ParseBreakerState converts raw input into a BreakerState.
func ParseBreakerState(value string) (BreakerState, error) {
	return parse(validBreakerStates, value, "breaker state")
}
