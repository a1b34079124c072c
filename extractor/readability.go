package extractor

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"retroboston/sanitize"
)

type ReadabilityExtractor struct {
	sanitizer sanitize.Sanitizer
}

func NewReadabilityExtractor(sanitizer sanitize.Sanitizer) *ReadabilityExtractor {
	return &ReadabilityExtractor{sanitizer: sanitizer}
}

func (e *ReadabilityExtractor) Extract(rawHTML string, pageURL string) (Article, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return Article{}, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	slog.Debug("readability-extractor: article extracted", "url", pageURL, "title", article.Title)

	return finish(Article{
		Title:        article.Title,
		Dek:          article.Excerpt,
		Author:       article.Byline,
		HeroImageURL: article.Image,
		BodyHTML:     article.Content,
	}, pageURL, e.sanitizer), nil
}
