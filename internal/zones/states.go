package zones

import "github.com/frostline/frostline-backend/pkg/enums"

// normalizeStates uppercases, dedupes and validates state codes, preserving order.
// Unknown codes are returned separately.
func normalizeStates(in []string) (states []string, invalid []string) {
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		code := enums.NormalizeUSState(raw)
		if code == "" {
			continue
		}
		if !enums.IsUSState(code) {
			invalid = append(invalid, raw)
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		states = append(states, code)
	}
	return states, invalid
}
