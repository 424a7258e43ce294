package enums

// FreightRateSource records where a lane rate came from.
type FreightRateSource string

const (
	FreightRateManual FreightRateSource = "manual"
	FreightRateQuote  FreightRateSource = "quote"
)

var validFreightRateSources = []FreightRateSource{
	FreightRateManual,
	FreightRateQuote,
}

// String implements fmt.Stringer.
func (v FreightRateSource) String() string {
	return string(v)
}

// IsValid reports whether the value is a known FreightRateSource.
func (v FreightRateSource) IsValid() bool {
	return known(validFreightRateSources, v)
}

// ParseFreightRateSource converts raw input into a FreightRateSource.
func ParseFreightRateSource(value string) (FreightRateSource, error) {
	return parse(validFreightRateSources, value, "freight rate source")
}
