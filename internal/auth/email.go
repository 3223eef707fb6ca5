package auth

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeEmail trims and lower-cases an address. Email is the identity key,
// so every lookup goes through here.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

func truncateUserAgent(ua string) string {
	if ua == "" {
		return UnknownUserAgent
	}
	runes := []rune(ua)
	if len(runes) > MaxUserAgentLen {
		return string(runes[:MaxUserAgentLen])
	}
	return ua
}
