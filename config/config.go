package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"retroboston/extractor"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

const (
	DefaultFeed       = "https://www.boston.com/tag/local-news/feed"
	DefaultMaxStories = 12
	DefaultOutputDir  = "docs/stories"
	DefaultTimeout    = 20 * time.Second
	DefaultUserAgent  = "RetroBoston/RSSAction"
)

// Config represents the root configuration structure
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Logging LoggingConfig `yaml:"logging"`
	Sentry  SentryConfig  `yaml:"sentry"`
}

// BuildConfig controls what a single run processes and where it writes
type BuildConfig struct {
	Feeds        []string `yaml:"feeds"`
	MaxStories   int      `yaml:"max_stories"`
	OutputDir    string   `yaml:"output_dir"`
	TemplatePath string   `yaml:"template_path"`
	Engine       string   `yaml:"extractor_engine"`
	SiteURL      string   `yaml:"site_url"`
}

// FetchConfig contains HTTP settings shared by feed and article fetches
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SentryConfig contains configuration for Sentry error tracking
type SentryConfig struct {
	DSN string `yaml:"dsn"`
}

// ManifestPath is where the run history lives.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Build.OutputDir, "manifest.json")
}

func defaults() *Config {
	return &Config{
		Build: BuildConfig{
			Feeds:      []string{DefaultFeed},
			MaxStories: DefaultMaxStories,
			OutputDir:  DefaultOutputDir,
			Engine:     extractor.EngineHeuristic,
		},
		Fetch: FetchConfig{
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if feeds := os.Getenv("FEEDS"); feeds != "" {
		cfg.Build.Feeds = SplitFeeds(feeds)
	}

	if maxStr := os.Getenv("MAX_STORIES"); maxStr != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(maxStr)); err == nil {
			cfg.Build.MaxStories = n
		}
	}

	if toStr := os.Getenv("FETCH_TIMEOUT"); toStr != "" {
		if to, err := strconv.Atoi(strings.TrimSpace(toStr)); err == nil {
			cfg.Fetch.Timeout = time.Duration(to) * time.Second
		}
	}

	cfg.Build.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.Build.OutputDir)
	cfg.Build.TemplatePath = getEnvOrDefault("TEMPLATE_PATH", cfg.Build.TemplatePath)
	cfg.Build.Engine = getEnvOrDefault("EXTRACTOR_ENGINE", cfg.Build.Engine)
	cfg.Build.SiteURL = getEnvOrDefault("SITE_URL", cfg.Build.SiteURL)
	cfg.Fetch.UserAgent = getEnvOrDefault("USER_AGENT", cfg.Fetch.UserAgent)
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Sentry.DSN = getEnvOrDefault("SENTRY_DSN", cfg.Sentry.DSN)
}

// Normalize replaces unusable values with defaults and validates the result.
// It must be called again after the configuration was changed by hand.
func (c *Config) Normalize() error {
	c.Build.Feeds = SplitFeeds(strings.Join(c.Build.Feeds, ","))
	if len(c.Build.Feeds) == 0 {
		c.Build.Feeds = []string{DefaultFeed}
	}
	if c.Build.MaxStories <= 0 {
		c.Build.MaxStories = DefaultMaxStories
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = DefaultOutputDir
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = DefaultTimeout
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
	c.Build.Engine = strings.ToLower(strings.TrimSpace(c.Build.Engine))
	if c.Build.Engine == "" {
		c.Build.Engine = extractor.EngineHeuristic
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	switch c.Build.Engine {
	case extractor.EngineHeuristic, extractor.EngineReadability, extractor.EngineGoose:
	default:
		return fmt.Errorf("%w: unknown extractor engine %q", ErrInvalidConfig, c.Build.Engine)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}

// SplitFeeds turns a comma separated feed list into trimmed, non-empty URLs.
func SplitFeeds(list string) []string {
	var feeds []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	return feeds
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
