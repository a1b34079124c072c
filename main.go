package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"retroboston/config"
	"retroboston/pipeline"
	"retroboston/stats"
)

var version = "dev"

type flags struct {
	config     string
	feeds      string
	maxStories int
	outDir     string
	template   string
	engine     string
	siteURL    string
	timeout    time.Duration
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:           "retroboston",
		Short:         "Build retro story pages from news feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.config)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	rootCmd.Flags().StringVarP(&f.config, "config", "c", "", "Configuration file path")
	rootCmd.Flags().StringVar(&f.feeds, "feeds", "", "Comma separated feed URLs")
	rootCmd.Flags().IntVar(&f.maxStories, "max-stories", config.DefaultMaxStories, "Maximum number of new stories per run")
	rootCmd.Flags().StringVar(&f.outDir, "out-dir", config.DefaultOutputDir, "Directory for story pages and the manifest")
	rootCmd.Flags().StringVar(&f.template, "template", "", "Story page template file")
	rootCmd.Flags().StringVar(&f.engine, "engine", "", "Extractor engine: heuristic, readability or goose")
	rootCmd.Flags().StringVar(&f.siteURL, "site-url", "", "Public base URL used for links in the archive feed")
	rootCmd.Flags().DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "Per request fetch timeout")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return rootCmd
}

// apply overrides cfg with the flags that were set explicitly.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) error {
	set := cmd.Flags().Changed

	if set("feeds") {
		cfg.Build.Feeds = config.SplitFeeds(f.feeds)
	}
	if set("max-stories") {
		cfg.Build.MaxStories = f.maxStories
	}
	if set("out-dir") {
		cfg.Build.OutputDir = f.outDir
	}
	if set("template") {
		cfg.Build.TemplatePath = f.template
	}
	if set("engine") {
		cfg.Build.Engine = f.engine
	}
	if set("site-url") {
		cfg.Build.SiteURL = f.siteURL
	}
	if set("timeout") {
		cfg.Fetch.Timeout = f.timeout
	}

	return cfg.Normalize()
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	runID := uuid.NewString()
	setupLogging(cfg.Logging, runID)

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:     cfg.Sentry.DSN,
			Release: version,
		})
		if err != nil {
			slog.Error("main: cannot initialize sentry", "error", err)
		}
		defer sentry.Flush(2 * time.Second)

		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("run_id", runID)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := pipeline.Build(ctx, cfg)
	if err != nil {
		slog.Error("main: build failed", "error", err)
		if !errors.Is(err, context.Canceled) {
			sentry.CaptureException(err)
		}
		return err
	}

	slog.Info("main: build finished", "stats", st.String())
	fmt.Fprintln(cmd.OutOrStdout(), summaryLine(st))

	return nil
}

// summaryLine reports the items accepted for this run after the budget cap.
func summaryLine(st *stats.Stats) string {
	return fmt.Sprintf("Built %d stories.", st.ItemsQueued)
}

func setupLogging(cfg config.LoggingConfig, runID string) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler).With("run_id", runID))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
