// Package isbn normalizes and checks ISBN-10 and ISBN-13 book numbers.
package isbn

import (
	"strings"
	"unicode"
)

// Normalize drops an "ISBN" prefix, hyphens and spaces, and upper-cases a
// trailing x check digit.
func Normalize(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "ISBN:")
	value = strings.TrimPrefix(value, "ISBN")

	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == 'X' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether value, once normalized, is an ISBN-10 or ISBN-13 with a
// correct check digit.
func Valid(value string) bool {
	n := Normalize(value)
	switch len(n) {
	case 10:
		return valid10(n)
	case 13:
		return valid13(n)
	default:
		return false
	}
}

// valid10 checks the mod 11 sum with weights 10 down to 1. X stands for 10
// and only in the last position.
func valid10(n string) bool {
	sum := 0
	for i, r := range n {
		d := int(r - '0')
		if r == 'X' {
			if i != 9 {
				return false
			}
			d = 10
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

// valid13 checks the mod 10 sum with alternating weights 1 and 3.
func valid13(n string) bool {
	sum := 0
	for i, r := range n {
		if r == 'X' {
			return false
		}
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}
