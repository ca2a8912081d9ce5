// Package strcase converts Go identifiers to the snake_case keys used in
// JSON error bodies.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake splits s at case changes, keeping initialisms together:
// "RequestID" becomes "request_id" and "HTTPStatus" becomes "http_status".
func ToLowerSnake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) && startsWord(rs, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// startsWord reports whether the upper case rune at i begins a new word.
func startsWord(rs []rune, i int) bool {
	prev := rs[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1])
}
