package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// candidate looks for a field value in one place of the document.
type candidate func(doc *goquery.Document) (string, bool)

// firstMatch returns the first non-empty value produced by candidates.
func firstMatch(doc *goquery.Document, candidates []candidate) string {
	for _, c := range candidates {
		if v, ok := c(doc); ok {
			return v
		}
	}
	return ""
}

// textOrContent matches the first element for selector and prefers its text,
// falling back to the content attribute used by meta tags.
func textOrContent(selector string) candidate {
	return func(doc *goquery.Document) (string, bool) {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			return "", false
		}
		if text := strings.TrimSpace(el.Text()); text != "" {
			return text, true
		}
		if content := strings.TrimSpace(el.AttrOr("content", "")); content != "" {
			return content, true
		}
		return "", false
	}
}

// attrOf matches the first element for selector and returns attr.
func attrOf(selector, attr string) candidate {
	return func(doc *goquery.Document) (string, bool) {
		v := strings.TrimSpace(doc.Find(selector).First().AttrOr(attr, ""))
		return v, v != ""
	}
}

func textOrContentAll(selectors ...string) []candidate {
	out := make([]candidate, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, textOrContent(s))
	}
	return out
}

var (
	titleCandidates = textOrContentAll(
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
		"h1",
		"title",
	)

	dekCandidates = textOrContentAll(
		`meta[property="og:description"]`,
		`meta[name="description"]`,
		".dek, .subhead, .article__dek",
	)

	authorCandidates = textOrContentAll(
		`meta[name="author"]`,
		`[itemprop="author"]`,
		".byline, .c-byline, .article__byline, .byline-name",
	)

	publishedCandidates = textOrContentAll(
		`meta[property="article:published_time"]`,
		"time[datetime]",
		"time",
	)

	heroImageCandidates = []candidate{
		attrOf(`meta[property="og:image"]`, "content"),
		attrOf(`meta[name="twitter:image"]`, "content"),
		attrOf("figure img", "src"),
		attrOf("img", "src"),
	}
)

// Body containers in order of preference.
var bodySelectors = []string{
	`[itemprop="articleBody"]`,
	"article",
	".article-body, .article__content, .c-article-body, .story-content, .story-body",
}

// Placeholder attributes lazy-loading scripts use instead of src.
var lazySrcAttrs = []string{"data-src", "data-original", "data-image", "data-lazy-src"}
