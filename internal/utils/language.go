package utils

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage maps a language code to its ISO 639-3 form ("en" and "eng" both
// become "eng"), which is what TVDB uses for artwork. Empty input stays empty.
// Codes x/text does not know are lower-cased and returned as-is.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == "null" {
		return ""
	}

	base, err := language.ParseBase(code)
	if err != nil {
		return code
	}
	return base.ISO3()
}
