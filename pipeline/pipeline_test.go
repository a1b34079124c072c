package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"retroboston/config"
	"retroboston/extractor"
	"retroboston/feed"
	"retroboston/manifest"
	"retroboston/sanitize"
)

type staticFeeds struct {
	items []feed.Item
}

func (s staticFeeds) FetchAll(_ context.Context, _ []string) feed.Result {
	return feed.Result{Items: s.items}
}

type countingPages struct {
	pages   map[string]string
	fetched []string
}

func (c *countingPages) Get(_ context.Context, url string) ([]byte, error) {
	c.fetched = append(c.fetched, url)
	body, ok := c.pages[url]
	if !ok {
		return nil, errors.New("connection reset")
	}
	return []byte(body), nil
}

type memoryRenderer struct {
	err      error
	rendered []extractor.Article
}

func (r *memoryRenderer) Render(article extractor.Article, _ string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.rendered = append(r.rendered, article)
	return "stories/" + strings.ToLower(strings.ReplaceAll(article.Title, " ", "-")) + ".html", nil
}

func articlePage(title string) string {
	return fmt.Sprintf(`<html><head><meta property="og:title" content="%s"><meta name="description" content="Dek for %s"></head>
<body><article><p>Body of %s.</p></article></body></html>`, title, title, title)
}

func newTestPipeline(items []feed.Item, pages *countingPages, renderer *memoryRenderer, maxStories int) *Pipeline {
	return New(
		staticFeeds{items: items},
		pages,
		extractor.NewHeuristicExtractor(sanitize.NewArticleSanitizer()),
		renderer,
		maxStories,
	)
}

func TestRun_SkipsKnownItems(t *testing.T) {
	known := manifest.Entry{Title: "Old", Path: "stories/old.html", Source: "https://www.example.com/old"}
	m := manifest.New([]manifest.Entry{known})

	pages := &countingPages{pages: map[string]string{
		"https://www.example.com/new": articlePage("New Story"),
		"https://www.example.com/old": articlePage("Old"),
	}}
	p := newTestPipeline([]feed.Item{
		{Title: "Old", Link: "https://www.example.com/old"},
		{Title: "New", Link: "https://www.example.com/new", PublishedAt: "Tue, 05 Mar 2024"},
	}, pages, &memoryRenderer{}, 12)

	st, err := p.Run(context.Background(), nil, m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(pages.fetched) != 1 || pages.fetched[0] != "https://www.example.com/new" {
		t.Fatalf("expected only the new article to be fetched, got %v", pages.fetched)
	}
	entries := m.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected manifest to grow by one, got %d entries", len(entries))
	}
	want := manifest.Entry{
		Title:  "New Story",
		Path:   "stories/new-story.html",
		Pub:    "Tue, 05 Mar 2024",
		Dek:    "Dek for New Story",
		Source: "https://www.example.com/new",
	}
	if entries[0] != want {
		t.Fatalf("entry 0 = %+v, want %+v", entries[0], want)
	}
	if entries[1] != known {
		t.Fatalf("existing entry moved: %+v", entries[1])
	}
	if st.ItemsKnown != 1 || st.ItemsBuilt != 1 {
		t.Fatalf("unexpected stats: %s", st)
	}
}

func TestRun_BudgetAndOrdering(t *testing.T) {
	var items []feed.Item
	pages := &countingPages{pages: map[string]string{}}
	for i := 1; i <= 5; i++ {
		link := fmt.Sprintf("https://www.example.com/%d", i)
		items = append(items, feed.Item{Link: link})
		pages.pages[link] = articlePage(fmt.Sprintf("Story %d", i))
	}

	m := manifest.New(nil)
	st, err := newTestPipeline(items, pages, &memoryRenderer{}, 3).Run(context.Background(), nil, m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if st.ItemsQueued != 3 || len(pages.fetched) != 3 {
		t.Fatalf("expected budget of 3, queued %d fetched %d", st.ItemsQueued, len(pages.fetched))
	}
	entries := m.Entries()
	// Items are prepended in processing order, so the last processed is first.
	for i, want := range []string{"Story 3", "Story 2", "Story 1"} {
		if entries[i].Title != want {
			t.Fatalf("entry %d = %q, want %q", i, entries[i].Title, want)
		}
	}
}

func TestRun_ItemFailuresAreSkipped(t *testing.T) {
	pages := &countingPages{pages: map[string]string{
		"https://www.example.com/ok": articlePage("Fine"),
	}}
	p := newTestPipeline([]feed.Item{
		{Link: "https://www.example.com/broken"},
		{Link: ""},
		{Link: "https://www.example.com/ok"},
	}, pages, &memoryRenderer{}, 12)

	m := manifest.New(nil)
	st, err := p.Run(context.Background(), nil, m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if m.Len() != 1 || m.Entries()[0].Source != "https://www.example.com/ok" {
		t.Fatalf("expected only the working article, got %+v", m.Entries())
	}
	if st.ItemErrors != 1 || st.ItemsNoLink != 1 {
		t.Fatalf("unexpected stats: %s", st)
	}
}

func TestRun_DuplicateLinksWithinRun(t *testing.T) {
	link := "https://www.example.com/shared"
	pages := &countingPages{pages: map[string]string{link: articlePage("Shared")}}
	p := newTestPipeline([]feed.Item{{Link: link}, {Link: link}}, pages, &memoryRenderer{}, 12)

	m := manifest.New(nil)
	st, err := p.Run(context.Background(), nil, m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.Len() != 1 || len(pages.fetched) != 1 || st.ItemsDupes != 1 {
		t.Fatalf("expected a single entry, got %d entries, %d fetches", m.Len(), len(pages.fetched))
	}
}

func TestRun_RenderFailureIsFatal(t *testing.T) {
	pages := &countingPages{pages: map[string]string{
		"https://www.example.com/a": articlePage("A"),
		"https://www.example.com/b": articlePage("B"),
	}}
	renderErr := errors.New("disk full")
	p := newTestPipeline([]feed.Item{
		{Link: "https://www.example.com/a"},
		{Link: "https://www.example.com/b"},
	}, pages, &memoryRenderer{err: renderErr}, 12)

	m := manifest.New(nil)
	_, err := p.Run(context.Background(), nil, m)
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected render error, got %v", err)
	}
	if len(pages.fetched) != 1 {
		t.Fatalf("run must stop at the first fatal error, fetched %v", pages.fetched)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := &countingPages{pages: map[string]string{}}
	p := newTestPipeline([]feed.Item{{Link: "https://www.example.com/a"}}, pages, &memoryRenderer{}, 12)

	if _, err := p.Run(ctx, nil, manifest.New(nil)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(pages.fetched) != 0 {
		t.Fatalf("nothing should be fetched after cancellation, got %v", pages.fetched)
	}
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Local</title>
<item><title>One</title><link>%[1]s/one</link><pubDate>Mon, 04 Mar 2024 09:00:00 -0500</pubDate></item>
<item><title>Two</title><link>%[1]s/two</link></item>
</channel></rss>`, srv.URL)
	})
	mux.HandleFunc("/one", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Story One</title></head><body><h1>Story One</h1>
<div class="article-body"><p>First <a href="/two">link</a></p><img data-src="/img/one.jpg"></div></body></html>`)
	})
	mux.HandleFunc("/two", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Story Two</h1><p>This paragraph is long enough to be picked up by the fallback body builder.</p></body></html>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, feeds ...string) *config.Config {
	t.Helper()
	return &config.Config{
		Build: config.BuildConfig{
			Feeds:      feeds,
			MaxStories: 12,
			OutputDir:  filepath.Join(t.TempDir(), "docs", "stories"),
			Engine:     extractor.EngineHeuristic,
		},
		Fetch: config.FetchConfig{
			Timeout:   2 * time.Second,
			UserAgent: "test",
		},
	}
}

func TestBuild_EndToEndAndCrossRunDedup(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv.URL+"/broken", srv.URL+"/feed")

	st, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if st.ItemsBuilt != 2 || st.FeedErrors != 1 {
		t.Fatalf("unexpected first run stats: %s", st)
	}

	store := manifest.NewStore(cfg.ManifestPath())
	entries := store.Load().Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 manifest entries, got %d", len(entries))
	}
	if entries[0].Title != "Story Two" || entries[1].Title != "Story One" {
		t.Fatalf("unexpected manifest order: %+v", entries)
	}
	if entries[1].Pub != "Mon, 04 Mar 2024 09:00:00 -0500" || entries[1].Path != "stories/story-one.html" {
		t.Fatalf("unexpected entry: %+v", entries[1])
	}

	if _, err := os.Stat(filepath.Join(cfg.Build.OutputDir, "feed.xml")); err != nil {
		t.Fatalf("expected archive feed: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(cfg.Build.OutputDir, "story-one.html"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(page), `src="`+srv.URL+`/img/one.jpg"`) {
		t.Fatalf("expected absolutized lazy image in page:\n%s", page)
	}

	st, err = Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if st.ItemsBuilt != 0 || st.ItemsKnown != 2 {
		t.Fatalf("second run must not rebuild known items: %s", st)
	}
	if got := store.Load().Len(); got != 2 {
		t.Fatalf("expected manifest to stay at 2 entries, got %d", got)
	}
}

func TestBuild_LockedManifest(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0/feed")

	store := manifest.NewStore(cfg.ManifestPath())
	if err := store.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer store.Unlock()

	if _, err := Build(context.Background(), cfg); !errors.Is(err, manifest.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}
