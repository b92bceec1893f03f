package reconcile

import (
	"regexp"
	"strings"
)

// NormalizePhone reduces a phone number to digits with an optional leading
// plus. International 00 prefixes become +, and national numbers written
// with a leading 0 are rewritten to the +33 country form, which is how the
// same storefront number painted two ways collapses to one entry.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	plus := strings.HasPrefix(trimmed, "+")
	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	switch {
	case plus:
		return "+" + number
	case strings.HasPrefix(number, "00"):
		return "+" + number[2:]
	case strings.HasPrefix(number, "0") && len(number) >= 9 && len(number) <= 10:
		return "+33" + number[1:]
	default:
		return number
	}
}

var intlPrefixRe = regexp.MustCompile(`^\+\d{1,3}`)

// SimilarPhones reports whether two normalized numbers name the same line:
// identical, one contained in the other, or identical once the international
// prefix is stripped. "+34912345678" and "912345678" are the same number
// photographed on two signs.
func SimilarPhones(a, b string) bool {
	a = NormalizePhone(a)
	b = NormalizePhone(b)
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return intlPrefixRe.ReplaceAllString(a, "") == intlPrefixRe.ReplaceAllString(b, "")
}

func digitCount(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}
