package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"retroboston/config"
	"retroboston/extractor"
	"retroboston/feed"
	"retroboston/fetch"
	"retroboston/manifest"
	"retroboston/render"
	"retroboston/sanitize"
	"retroboston/stats"
)

// Build performs one complete run for cfg: it locks and loads the manifest,
// runs the pipeline and persists the manifest when the run succeeded. The
// archive feed is refreshed afterwards on a best effort basis.
func Build(ctx context.Context, cfg *config.Config) (*stats.Stats, error) {
	ext, err := extractor.New(cfg.Build.Engine, sanitize.NewArticleSanitizer())
	if err != nil {
		return nil, err
	}

	renderer, err := render.NewRenderer(cfg.Build.OutputDir, cfg.Build.TemplatePath)
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)
	p := New(feed.NewReader(client), client, ext, renderer, cfg.Build.MaxStories)

	store := manifest.NewStore(cfg.ManifestPath())
	if err := store.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Unlock(); err != nil {
			slog.Warn("pipeline: cannot release manifest lock", "path", store.Path(), "error", err)
		}
	}()

	m := store.Load()

	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "pipeline",
		Message:  fmt.Sprintf("run started with %d known articles", m.Len()),
		Level:    sentry.LevelInfo,
	})
	slog.Info("pipeline: run started", "feeds", len(cfg.Build.Feeds), "max_stories", cfg.Build.MaxStories, "engine", cfg.Build.Engine, "known", m.Len())

	st, err := p.Run(ctx, cfg.Build.Feeds, m)
	if err != nil {
		return st, fmt.Errorf("run pipeline: %w", err)
	}

	if err := store.Persist(m); err != nil {
		return st, fmt.Errorf("persist manifest: %w", err)
	}
	st.ManifestSize = m.Len()

	if err := render.WriteArchive(cfg.Build.OutputDir, cfg.Build.SiteURL, m.Entries()); err != nil {
		slog.Error("pipeline: cannot write archive feed", "error", err)
		sentry.CaptureException(err)
	}

	return st, nil
}
