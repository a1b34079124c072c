package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goose "github.com/advancedlogic/GoOse"

	"retroboston/sanitize"
)

// ExtractionTimeout bounds a single GoOse run; GoOse has no context support.
const ExtractionTimeout = 20 * time.Second

type GoOseExtractor struct {
	goose     *goose.Goose
	sanitizer sanitize.Sanitizer
}

func NewGoOseExtractor(sanitizer sanitize.Sanitizer) *GoOseExtractor {
	gooseExtractor := goose.New()
	return &GoOseExtractor{
		goose:     &gooseExtractor,
		sanitizer: sanitizer,
	}
}

type gooseResult struct {
	article *goose.Article
	err     error
}

func (e *GoOseExtractor) Extract(rawHTML string, pageURL string) (Article, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ExtractionTimeout)
	defer cancel()

	resultChan := make(chan gooseResult, 1)

	go func() {
		article, err := e.goose.ExtractFromRawHTML(rawHTML, pageURL)
		resultChan <- gooseResult{article, err}
	}()

	select {
	case result := <-resultChan:
		if result.err != nil {
			return Article{}, fmt.Errorf("%w: %w", ErrExtractFailed, result.err)
		}

		slog.Debug("goose-extractor: article extracted", "url", pageURL, "title", result.article.Title)

		return finish(fromGoose(result.article), pageURL, e.sanitizer), nil
	case <-ctx.Done():
		return Article{}, fmt.Errorf("%w: %w", ErrExtractFailed, ctx.Err())
	}
}

func fromGoose(a *goose.Article) Article {
	article := Article{
		Title:        a.Title,
		Dek:          a.MetaDescription,
		HeroImageURL: a.TopImage,
	}
	if a.PublishDate != nil {
		article.PublishedAt = a.PublishDate.Format(time.RFC3339)
	}
	if a.TopNode != nil {
		if body, err := a.TopNode.Html(); err == nil {
			article.BodyHTML = body
		}
	}

	return article
}
