// Package enums holds the string enums persisted in the database and carried
// in tokens and events.
package enums

import (
	"fmt"
	"slices"
)

func known[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

func parse[T ~string](set []T, value, kind string) (T, error) {
	v := T(value)
	if !known(set, v) {
		var zero T
		return zero, fmt.Errorf("invalid %s %q", kind, value)
	}
	return v, nil
}
