package sanitize

import (
	"net/url"
	"strings"
)

// Absolutize resolves ref against base. Empty refs stay empty and refs that
// fail to parse are returned unchanged.
func Absolutize(ref string, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}

	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ref
	}

	return baseURL.ResolveReference(refURL).String()
}
