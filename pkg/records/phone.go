package records

import "strings"

// FormatPhone normalizes a phone number to the canonical X-XXX-XXX-XXXX
// form. An 11-digit number keeps its leading country code, a 10-digit
// number gets a leading 1, and anything else passes through unchanged so
// foreign or malformed numbers are never mangled.
func FormatPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch len(digits) {
	case 11:
		return digits[:1] + "-" + digits[1:4] + "-" + digits[4:7] + "-" + digits[7:]
	case 10:
		return "1-" + digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
	default:
		return raw
	}
}

// SamePhone reports whether two phone numbers refer to the same line after
// normalization.
func SamePhone(a, b string) bool {
	return FormatPhone(a) == FormatPhone(b)
}
