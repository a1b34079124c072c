package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"retroboston/manifest"
)

const (
	ArchiveFileName = "feed.xml"
	archiveTitle    = "RetroBoston"
)

var pubLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

// WriteArchive writes an RSS document listing entries, newest first, to
// outDir. Entry paths are joined onto siteURL, or kept relative when siteURL
// is empty.
func WriteArchive(outDir, siteURL string, entries []manifest.Entry) error {
	siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")

	feed := &feeds.Feed{
		Title:       archiveTitle,
		Link:        &feeds.Link{Href: siteURL + "/"},
		Description: "Recently rebuilt local stories",
		Created:     time.Now(),
	}

	feed.Items = make([]*feeds.Item, 0, len(entries))
	for _, e := range entries {
		link := e.Path
		if siteURL != "" {
			link = siteURL + "/" + strings.TrimLeft(e.Path, "/")
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       e.Title,
			Link:        &feeds.Link{Href: link},
			Description: e.Dek,
			Id:          e.Source,
			Created:     parsePub(e.Pub),
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return fmt.Errorf("build archive feed: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outDir, ArchiveFileName), []byte(rss), 0o644); err != nil {
		return fmt.Errorf("write archive feed: %w", err)
	}

	return nil
}

// parsePub is best effort; unknown formats leave the item undated.
func parsePub(pub string) time.Time {
	pub = strings.TrimSpace(pub)
	for _, layout := range pubLayouts {
		if t, err := time.Parse(layout, pub); err == nil {
			return t
		}
	}
	return time.Time{}
}
