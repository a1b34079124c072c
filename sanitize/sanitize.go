package sanitize

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const (
	linkTarget = "_blank"
	linkRel    = "noopener noreferrer"
)

// Sanitizer constrains an article body fragment to a small set of elements
// and attributes. Links and images are rewritten to absolute URLs resolved
// against the page they were taken from, links always open in a new context
// without leaking the opener or referrer, and only http, https and mailto
// URLs survive.
type Sanitizer interface {
	Sanitize(fragment string, baseURL string) string
}

// NewArticleSanitizer returns the Sanitizer used for extracted article bodies.
func NewArticleSanitizer() Sanitizer {
	return articleSanitizer{policy: newArticlePolicy()}
}

type articleSanitizer struct {
	policy *bluemonday.Policy
}

func newArticlePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "h2", "h3",
		"strong", "em", "b", "i",
		"a", "img",
		"ul", "ol", "li",
		"blockquote", "figure", "figcaption",
		"br", "span",
	)
	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowAttrs("class", "style").OnElements("span")

	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")

	return p
}

// Sanitize rewrites link and image URLs in fragment and then applies the
// element and attribute allowlist.
func (s articleSanitizer) Sanitize(fragment string, baseURL string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	rewritten, err := rewriteURLs(fragment, baseURL)
	if err != nil {
		// Relative URLs will not pass the scheme policy, so those links and
		// images lose their href/src instead of pointing somewhere wrong.
		slog.Warn("sanitize: cannot rewrite fragment URLs", "base", baseURL, "error", err)
		rewritten = fragment
	}

	return strings.TrimSpace(s.policy.Sanitize(rewritten))
}

func rewriteURLs(fragment string, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			a.SetAttr("href", Absolutize(href, baseURL))
		}
		a.SetAttr("target", linkTarget)
		a.SetAttr("rel", linkRel)
	})

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			img.SetAttr("src", Absolutize(src, baseURL))
		}
		if _, ok := img.Attr("alt"); !ok {
			img.SetAttr("alt", "")
		}
	})

	return doc.Find("body").Html()
}
