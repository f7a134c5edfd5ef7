package utils

import (
	"net/url"
	"strings"
)

// ValidImageURL reports whether raw is an absolute http(s) URL with a host
func ValidImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
