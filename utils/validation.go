// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	e164Pattern  = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
)

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone strips the separators people type into phone numbers.
func NormalizePhone(phone string) string {
	return phoneNoise.Replace(strings.TrimSpace(phone))
}

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}

// IsE164 reports whether phone is a full E.164 number with a leading "+".
func IsE164(phone string) bool {
	return e164Pattern.MatchString(NormalizePhone(phone))
}
