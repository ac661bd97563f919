package enums

import (
	"fmt"
	"slices"
	"strings"
)

// member reports whether v is one of set.
func member[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse matches raw against set. Lenient parsing trims and lower-cases raw
// first; strict parsing requires the stored spelling.
func parse[T ~string](kind, raw string, set []T, lenient bool) (T, error) {
	candidate := raw
	if lenient {
		candidate = strings.ToLower(strings.TrimSpace(raw))
	}
	if v := T(candidate); member(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
