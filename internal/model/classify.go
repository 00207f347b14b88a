package model

import (
	"net/url"
	"regexp"
	"strings"
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// Classify returns the id of the first category whose non-empty URL pattern
// is a substring of rawURL. Empty or unparsable URLs, and URLs matching no
// pattern, belong to the default category.
func Classify(rawURL string, categories []Category) string {
	if strings.TrimSpace(rawURL) == "" {
		return DefaultCategoryID
	}
	if _, err := url.Parse(rawURL); err != nil {
		return DefaultCategoryID
	}

	for _, c := range categories {
		if c.IsDefault() || c.URLPattern == "" {
			continue
		}
		if strings.Contains(rawURL, c.URLPattern) {
			return c.ID
		}
	}
	return DefaultCategoryID
}

// NormalizeURL trims rawURL and prefixes https:// when it has no scheme.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if schemeRe.MatchString(trimmed) {
		return trimmed
	}
	return "https://" + trimmed
}
