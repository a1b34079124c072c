package main

import (
	"bytes"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"retroboston/config"
	"retroboston/stats"
)

func TestFlagsOverrideConfig(t *testing.T) {
	for _, k := range []string{"FEEDS", "MAX_STORIES", "OUTPUT_DIR", "EXTRACTOR_ENGINE", "FETCH_TIMEOUT", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	t.Setenv("MAX_STORIES", "4")

	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--feeds", "https://a.example/feed,https://b.example/feed", "--engine", "GOOSE", "--timeout", "3s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var f flags
	f.feeds, _ = cmd.Flags().GetString("feeds")
	f.engine, _ = cmd.Flags().GetString("engine")
	f.timeout, _ = cmd.Flags().GetDuration("timeout")
	if err := f.apply(cmd, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !reflect.DeepEqual(cfg.Build.Feeds, []string{"https://a.example/feed", "https://b.example/feed"}) {
		t.Errorf("feeds = %v", cfg.Build.Feeds)
	}
	if cfg.Build.Engine != "goose" {
		t.Errorf("engine = %q", cfg.Build.Engine)
	}
	if cfg.Fetch.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.Fetch.Timeout)
	}
	if cfg.Build.MaxStories != 4 {
		t.Errorf("unset flag must keep env value, got %d", cfg.Build.MaxStories)
	}
}

func TestFlagsRejectUnknownEngine(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--engine", "boilerpipe"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	f := flags{engine: "boilerpipe"}
	if err := f.apply(cmd, cfg); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.String() != version+"\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestSummaryLineCountsAcceptedItems(t *testing.T) {
	st := stats.NewStats()
	st.ItemsQueued = 3
	st.ItemsBuilt = 2
	st.ItemErrors = 1

	if got := summaryLine(st); got != "Built 3 stories." {
		t.Fatalf("summary = %q", got)
	}
}
