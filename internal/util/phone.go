package util

import (
	"html"
	"regexp"
	"strings"
)

var (
	phonePattern    = regexp.MustCompile(`^1[3-9]\d{9}$`)
	passwordPattern = regexp.MustCompile(`^\d{6}$`)
)

// ValidPhoneNumber reports whether s is an 11-digit mainland mobile
// number (leading 1, second digit 3-9).
func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// ValidServicePassword reports whether s is a 6-digit service password.
func ValidServicePassword(s string) bool {
	return passwordPattern.MatchString(s)
}

// MaskPhoneNumber hides the middle four digits of an 11-digit number.
// Anything else is returned unchanged; there is no safe way to mask it.
func MaskPhoneNumber(s string) string {
	if len(s) != 11 {
		return s
	}
	return s[:3] + "****" + s[7:]
}

// SanitizeInput escapes HTML/script-like characters before a value is
// echoed back in a response.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}
