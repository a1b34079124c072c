package render

import (
	"strings"

	"github.com/gosimple/slug"
)

const (
	maxSlugLength = 80
	fallbackSlug  = "story"
)

// Slug turns a title into a file name stem: lowercase ASCII letters, digits
// and dashes, at most 80 characters, "story" when nothing is left.
func Slug(title string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == '_':
			return '-'
		default:
			return -1
		}
	}, slug.Make(title))

	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	s = strings.Trim(s, "-")

	if s == "" {
		return fallbackSlug
	}
	return s
}
