package extractor

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"retroboston/sanitize"
)

// Paragraphs at or below this many characters are treated as captions or
// boilerplate when a body has to be synthesized.
const minParagraphLength = 60

// HeuristicExtractor pulls an article out of arbitrary markup by trying a
// fixed list of well-known locations for every field.
type HeuristicExtractor struct {
	sanitizer sanitize.Sanitizer
}

func NewHeuristicExtractor(sanitizer sanitize.Sanitizer) *HeuristicExtractor {
	return &HeuristicExtractor{sanitizer: sanitizer}
}

func (e *HeuristicExtractor) Extract(rawHTML string, pageURL string) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Article{}, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	promoteLazyImages(doc)

	article := Article{
		Title:       firstMatch(doc, titleCandidates),
		Dek:         firstMatch(doc, dekCandidates),
		Author:      firstMatch(doc, authorCandidates),
		PublishedAt: firstMatch(doc, publishedCandidates),
		BodyHTML:    selectBody(doc, pageURL),
	}
	article.HeroImageURL = firstMatch(doc, heroImageCandidates)

	slog.Debug("heuristic-extractor: article extracted", "url", pageURL, "title", article.Title)

	return finish(article, pageURL, e.sanitizer), nil
}

func promoteLazyImages(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if strings.TrimSpace(img.AttrOr("src", "")) != "" {
			return
		}
		for _, attr := range lazySrcAttrs {
			if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
				img.SetAttr("src", v)
				return
			}
		}
	})
}

// selectBody returns the markup of the first known body container, with its
// links and images absolutized, or a body synthesized from long paragraphs.
func selectBody(doc *goquery.Document, pageURL string) string {
	for _, selector := range bodySelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}

		absolutizeWithin(container, pageURL)

		body, err := container.Html()
		if err != nil {
			slog.Warn("heuristic-extractor: cannot render body container", "selector", selector, "error", err)
			return ""
		}
		return body
	}

	return aggregateParagraphs(doc)
}

func absolutizeWithin(container *goquery.Selection, pageURL string) {
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		a.SetAttr("href", sanitize.Absolutize(a.AttrOr("href", ""), pageURL))
	})
	container.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		img.SetAttr("src", sanitize.Absolutize(img.AttrOr("src", ""), pageURL))
	})
}

func aggregateParagraphs(doc *goquery.Document) string {
	var parts []string

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if utf8.RuneCountInString(strings.TrimSpace(p.Text())) <= minParagraphLength {
			return
		}
		inner, err := p.Html()
		if err != nil {
			return
		}
		parts = append(parts, "<p>"+inner+"</p>")
	})

	return strings.Join(parts, "\n")
}
