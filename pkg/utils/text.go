package utils

import (
	"strings"
	"unicode"
)

var digitReplacer = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4", "۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4", "٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// NormalizeDigits converts Persian and Arabic numerals to ASCII digits and trims
// surrounding space, so spreadsheet cells parse regardless of input locale.
func NormalizeDigits(input string) string {
	return strings.TrimSpace(digitReplacer.Replace(input))
}

// Slugify lowercases input and joins its runs of letters and digits with
// single hyphens.
func Slugify(input string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
