package enums

import "strings"

// usStates holds the 50 states plus DC, the delivery area for zones,
// warehouses and freight quotes.
var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {}, "DE": {}, "DC": {}, "FL": {},
	"GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {},
	"MD": {}, "MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {}, "NH": {},
	"NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {},
	"SC": {}, "SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {},
	"WY": {},
}

// NormalizeUSState trims and uppercases a state code.
func NormalizeUSState(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsUSState reports whether code names a state after normalization.
func IsUSState(code string) bool {
	_, ok := usStates[NormalizeUSState(code)]
	return ok
}
