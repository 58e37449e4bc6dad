package export

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into a lower-case, hyphen-separated file name stem.
func Slug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonAlnum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "strategia"
	}
	return slug
}
