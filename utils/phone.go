package utils

import (
	"strings"
	"unicode"
)

// SanitizePhone keeps digits only, drops one leading 0 and caps the result
// at ten digits.
func SanitizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	digits := strings.TrimPrefix(b.String(), "0")
	if len(digits) > 10 {
		digits = digits[:10]
	}
	return digits
}

// IsValidPhone reports whether phone sanitises to exactly ten digits.
func IsValidPhone(phone string) bool {
	return len(SanitizePhone(phone)) == 10
}

// FormatPhoneDisplay renders a ten digit number as xxx-xxx-xxxx.
func FormatPhoneDisplay(phone string) string {
	p := SanitizePhone(phone)
	if len(p) != 10 {
		return p
	}
	return p[:3] + "-" + p[3:6] + "-" + p[6:]
}
