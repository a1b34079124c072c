package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"

	"retroboston/extractor"
	"retroboston/feed"
	"retroboston/manifest"
	"retroboston/stats"
)

type FeedReader interface {
	FetchAll(ctx context.Context, urls []string) feed.Result
}

type PageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type PageRenderer interface {
	Render(article extractor.Article, sourceURL string) (string, error)
}

// Pipeline turns feed items that are not in the manifest yet into rendered
// pages and manifest entries. It processes one item at a time.
type Pipeline struct {
	feeds      FeedReader
	pages      PageFetcher
	extractor  extractor.Extractor
	renderer   PageRenderer
	maxStories int
}

func New(
	feeds FeedReader,
	pages PageFetcher,
	ext extractor.Extractor,
	renderer PageRenderer,
	maxStories int,
) *Pipeline {
	return &Pipeline{
		feeds:      feeds,
		pages:      pages,
		extractor:  ext,
		renderer:   renderer,
		maxStories: maxStories,
	}
}

// Run reads feedURLs, processes up to maxStories new items and prepends an
// entry to m for every item that was built, in processing order. Failing
// feeds and items are logged and skipped. The returned error means the run
// must be aborted and m must not be persisted.
func (p *Pipeline) Run(ctx context.Context, feedURLs []string, m *manifest.Manifest) (*stats.Stats, error) {
	st := stats.NewStats()

	result := p.feeds.FetchAll(ctx, feedURLs)
	st.FeedsRead = uint64(len(feedURLs) - len(result.Errors))
	st.FeedErrors = uint64(len(result.Errors))
	if err := ctx.Err(); err != nil {
		return st, err
	}

	queue := p.gather(result.Items, m, st)

	slog.Info("pipeline: items queued", "queued", len(queue), "seen", st.ItemsSeen, "known", st.ItemsKnown)

	for _, item := range queue {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		entry, err := p.process(ctx, item)
		if err != nil {
			if isFatal(err) {
				return st, err
			}

			slog.Error("pipeline: cannot build article", "url", item.Link, "error", err)
			sentry.CaptureException(fmt.Errorf("article %s: %w", item.Link, err))

			st.ItemErrors++
			continue
		}

		m.Prepend(entry)
		st.ItemsBuilt++

		slog.Info("pipeline: article built", "url", item.Link, "path", entry.Path)
	}

	st.ManifestSize = m.Len()

	return st, nil
}

// gather drops items without a link, items already in the manifest and
// repeated links within this batch, then applies the per-run budget.
func (p *Pipeline) gather(items []feed.Item, m *manifest.Manifest, st *stats.Stats) []feed.Item {
	var queue []feed.Item
	batch := make(map[string]struct{})

	for _, item := range items {
		st.ItemsSeen++

		switch {
		case item.Link == "":
			st.ItemsNoLink++
		case m.ContainsSource(item.Link):
			st.ItemsKnown++
		default:
			if _, dup := batch[item.Link]; dup {
				st.ItemsDupes++
				continue
			}
			batch[item.Link] = struct{}{}
			queue = append(queue, item)
		}
	}

	if p.maxStories > 0 && len(queue) > p.maxStories {
		queue = queue[:p.maxStories]
	}
	st.ItemsQueued = uint64(len(queue))

	return queue
}

// fatalError marks failures that affect the whole run rather than one item.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

func (p *Pipeline) process(ctx context.Context, item feed.Item) (manifest.Entry, error) {
	page, err := p.pages.Get(ctx, item.Link)
	if err != nil {
		return manifest.Entry{}, fmt.Errorf("fetch: %w", err)
	}

	article, err := p.extractor.Extract(string(page), item.Link)
	if err != nil {
		return manifest.Entry{}, err
	}

	path, err := p.renderer.Render(article, item.Link)
	if err != nil {
		return manifest.Entry{}, &fatalError{fmt.Errorf("render %s: %w", item.Link, err)}
	}

	pub := article.PublishedAt
	if strings.TrimSpace(pub) == "" {
		pub = item.PublishedAt
	}

	return manifest.Entry{
		Title:  article.Title,
		Path:   path,
		Pub:    pub,
		Dek:    article.Dek,
		Source: item.Link,
	}, nil
}
