// Package phonenum provides small phone number utilities used across the
// project.
package phonenum

import "strings"

// Normalize strips the formatting characters commonly found in dialable
// numbers: plus, hyphen, space and parentheses. The result is the bare digit
// string; it is NOT validated.
func Normalize(number string) string {
	var b strings.Builder
	for _, r := range number {
		switch r {
		case '+', '-', ' ', '(', ')':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether the number normalizes to 7 to 15 digits.
func Valid(number string) bool {
	cleaned := Normalize(number)
	if len(cleaned) < 7 || len(cleaned) > 15 {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
