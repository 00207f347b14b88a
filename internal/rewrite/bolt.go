// Package rewrite converts repository and design URLs into bolt.new links.
package rewrite

import (
	"regexp"
	"strings"
)

// Kind classifies a URL by the service it points to.
type Kind string

const (
	KindGitHub Kind = "github"
	KindFigma  Kind = "figma"
	KindBolt   Kind = "bolt"
	KindOther  Kind = "other"
)

const boltPrefix = "https://bolt.new/~/"

var (
	githubRe = regexp.MustCompile(`^https?://github\.com/([^/]+/[^/]+)`)
	figmaRe  = regexp.MustCompile(`^https?://(?:www\.)?figma\.com/(file|design)/([^?]+)`)

	githubHostRe = regexp.MustCompile(`^https?://github\.com`)
	figmaHostRe  = regexp.MustCompile(`^https?://(?:www\.)?figma\.com`)
	boltHostRe   = regexp.MustCompile(`^https?://bolt\.new`)
)

// ToBolt rewrites GitHub repository and Figma file URLs to open in bolt.new.
// Any other URL is returned unchanged.
func ToBolt(url string) string {
	if m := githubRe.FindStringSubmatch(url); m != nil {
		return boltPrefix + "github.com/" + m[1]
	}

	if m := figmaRe.FindStringSubmatch(url); m != nil {
		out := boltPrefix + "figma.com/" + m[1] + "/" + m[2]
		if _, query, ok := strings.Cut(url, "?"); ok && query != "" {
			out += "?" + query
		}
		return out
	}

	return url
}

// Detect reports which service url belongs to.
func Detect(url string) Kind {
	switch {
	case githubHostRe.MatchString(url):
		return KindGitHub
	case figmaHostRe.MatchString(url):
		return KindFigma
	case boltHostRe.MatchString(url):
		return KindBolt
	default:
		return KindOther
	}
}
