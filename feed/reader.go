package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
)

type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Reader fetches and normalizes feeds one at a time.
type Reader struct {
	client Getter
}

func NewReader(client Getter) *Reader {
	return &Reader{client: client}
}

// FeedError records why one configured feed contributed no items.
type FeedError struct {
	URL string
	Err error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// Result is the concatenation of every readable feed in configuration order.
type Result struct {
	Items  []Item
	Errors []*FeedError
}

func (r *Reader) Fetch(ctx context.Context, url string) ([]Item, error) {
	data, err := r.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	items, err := Parse(data)
	if err != nil {
		return nil, err
	}

	slog.Info("feed: feed read", "url", url, "items", len(items))

	return items, nil
}

// FetchAll reads every feed sequentially. A failing feed is logged and
// skipped; it never stops the remaining feeds.
func (r *Reader) FetchAll(ctx context.Context, urls []string) Result {
	var result Result

	for _, url := range urls {
		items, err := r.Fetch(ctx, url)
		if err != nil {
			feedErr := &FeedError{URL: url, Err: err}

			slog.Error("feed: cannot read feed", "url", url, "error", err)
			sentry.CaptureException(feedErr)

			result.Errors = append(result.Errors, feedErr)
			continue
		}
		result.Items = append(result.Items, items...)
	}

	return result
}
