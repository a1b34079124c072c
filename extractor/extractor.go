package extractor

import (
	"errors"
	"fmt"
	"strings"

	"retroboston/sanitize"
)

var (
	ErrExtractFailed = errors.New("extraction failed")
	ErrUnknownEngine = errors.New("unknown extractor engine")
)

// UntitledTitle is used when a page yields no title at all.
const UntitledTitle = "Untitled"

const (
	EngineHeuristic   = "heuristic"
	EngineReadability = "readability"
	EngineGoose       = "goose"
)

// Article is the cleaned representation of one fetched page.
type Article struct {
	Title        string
	Dek          string
	Author       string
	PublishedAt  string
	HeroImageURL string // absolute, empty when the page has no usable image
	BodyHTML     string // sanitized
}

type Extractor interface {
	Extract(rawHTML string, pageURL string) (Article, error)
}

// New returns the extractor for the given engine name.
func New(engine string, sanitizer sanitize.Sanitizer) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineHeuristic:
		return NewHeuristicExtractor(sanitizer), nil
	case EngineReadability:
		return NewReadabilityExtractor(sanitizer), nil
	case EngineGoose:
		return NewGoOseExtractor(sanitizer), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// finish applies the parts of the record contract every engine shares.
func finish(article Article, pageURL string, sanitizer sanitize.Sanitizer) Article {
	article.Title = strings.TrimSpace(article.Title)
	if article.Title == "" {
		article.Title = UntitledTitle
	}
	article.Dek = strings.TrimSpace(article.Dek)
	article.Author = strings.TrimSpace(article.Author)
	article.PublishedAt = strings.TrimSpace(article.PublishedAt)
	article.HeroImageURL = sanitize.Absolutize(article.HeroImageURL, pageURL)
	article.BodyHTML = sanitizer.Sanitize(article.BodyHTML, pageURL)

	return article
}
