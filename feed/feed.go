package feed

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported feed format")
)

// Item is one syndicated entry, normalized across feed dialects.
type Item struct {
	Title       string
	Link        string
	PublishedAt string // raw, as found in the feed
	Summary     string
}

// entry is the dialect-independent shape of a raw item before the field
// priority rules are applied.
type entry struct {
	title       string
	link        string
	linkHref    string
	pubDate     string
	updated     string
	published   string
	description string
	summary     string
}

func (e entry) item() Item {
	return Item{
		Title:       strings.TrimSpace(e.title),
		Link:        strings.TrimSpace(firstNonEmpty(e.link, e.linkHref)),
		PublishedAt: strings.TrimSpace(firstNonEmpty(e.pubDate, e.updated, e.published)),
		Summary:     strings.TrimSpace(firstNonEmpty(e.description, e.summary)),
	}
}

// Parse reads a channel-based (RSS) or entry-based (Atom) document into
// items, preserving document order. Items with missing fields, including a
// missing link, are returned with empty values.
func Parse(data []byte) ([]Item, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		return parseChannel(data)
	case gofeed.FeedTypeAtom:
		return parseEntries(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseChannel(data []byte) ([]Item, error) {
	parser := rss.Parser{}
	f, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}

	items := make([]Item, 0, len(f.Items))
	for _, it := range f.Items {
		if it == nil {
			continue
		}
		items = append(items, entry{
			title:       it.Title,
			link:        it.Link,
			linkHref:    atomExtensionAttr(it.Extensions, "link", "href"),
			pubDate:     it.PubDate,
			updated:     firstNonEmpty(it.Custom["updated"], atomExtensionValue(it.Extensions, "updated")),
			published:   firstNonEmpty(it.Custom["published"], atomExtensionValue(it.Extensions, "published")),
			description: it.Description,
			summary:     firstNonEmpty(it.Custom["summary"], atomExtensionValue(it.Extensions, "summary")),
		}.item())
	}
	return items, nil
}

func parseEntries(data []byte) ([]Item, error) {
	parser := atom.Parser{}
	f, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse atom: %w", err)
	}

	items := make([]Item, 0, len(f.Entries))
	for _, e := range f.Entries {
		if e == nil {
			continue
		}
		items = append(items, entry{
			title:     e.Title,
			linkHref:  entryLink(e.Links),
			updated:   e.Updated,
			published: e.Published,
			summary:   e.Summary,
		}.item())
	}
	return items, nil
}

// entryLink prefers the alternate link; a link without rel is alternate.
func entryLink(links []*atom.Link) string {
	var first string
	for _, l := range links {
		if l == nil || strings.TrimSpace(l.Href) == "" {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
		if first == "" {
			first = l.Href
		}
	}
	return first
}

func atomExtensionValue(extensions ext.Extensions, name string) string {
	for _, e := range extensions["atom"][name] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}

func atomExtensionAttr(extensions ext.Extensions, name, attr string) string {
	for _, e := range extensions["atom"][name] {
		if v := strings.TrimSpace(e.Attrs[attr]); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
