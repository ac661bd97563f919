package validators

import (
	"strings"
	"unicode"
)

// SanitizeString folds whitespace and control characters into single spaces
// and caps the result at maxLen runes. Free text ends up in courier remarks
// and admin notes, which must stay on one line.
func SanitizeString(input string, maxLen int) string {
	words := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	out := strings.Join(words, " ")
	if maxLen <= 0 {
		return out
	}
	runes := []rune(out)
	if len(runes) <= maxLen {
		return out
	}
	return strings.TrimRight(string(runes[:maxLen]), " ")
}
