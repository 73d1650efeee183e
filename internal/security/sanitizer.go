package security

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlPolicy  = bluemonday.StrictPolicy()
	userIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:@-]{0,63}$`)
	slugRegex   = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Field limits for text that ends up in the catalog or ledger descriptions.
const (
	MaxNameLength        = 120
	MaxDescriptionLength = 1000
)

// SanitizeText strips HTML and null bytes, trims whitespace and truncates to
// maxRunes characters.
func SanitizeText(input string, maxRunes int) string {
	input = strings.ReplaceAll(input, "\x00", "")
	// Stored as plain text, so undo the entity escaping the policy applies.
	input = html.UnescapeString(htmlPolicy.Sanitize(input))
	input = strings.TrimSpace(input)

	if maxRunes > 0 && utf8.RuneCountInString(input) > maxRunes {
		runes := []rune(input)
		input = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return input
}

// ValidateUserID checks the opaque user id handed to the engine by the fitness
// application.
func ValidateUserID(userID string) bool {
	return userIDRegex.MatchString(userID)
}

// ValidateSlug checks catalog ids such as "week-warrior".
func ValidateSlug(id string) bool {
	return len(id) <= 64 && slugRegex.MatchString(id)
}
