// Package enums holds the string enums stored in Postgres enum columns.
package enums

import (
	"fmt"
	"slices"
)

func known[T ~string](value T, valid []T) bool {
	return slices.Contains(valid, value)
}

// parse matches raw exactly; enum tokens are case sensitive.
func parse[T ~string](kind, raw string, valid []T) (T, error) {
	if v := T(raw); known(v, valid) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
