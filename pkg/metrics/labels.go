package metrics

import "strings"

const unknownLabel = "unknown"

// normalizeLabel keeps free-form label values (job, operation, event type)
// from producing empty series.
func normalizeLabel(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return unknownLabel
}
