package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Content store
	StoreDriver string `long:"store-driver" env:"STORE_DRIVER" default:"postgres" choice:"postgres" choice:"sqlite" description:"Content store driver"`
	StoreURL    string `long:"store-url" env:"STORE_URL" description:"Content store endpoint: postgres URL or DSN, or sqlite file path (required)"`
	StoreKey    string `long:"store-key" env:"STORE_KEY" description:"Privileged write credential for the content store (required)"`

	// Ingestion
	FeedsFile          string `long:"feeds-file" env:"FEEDS_FILE" description:"YAML feed registry (defaults to the built-in registry)"`
	UserAgent          string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; RSS-Crawler/1.0)" description:"User agent string for HTTP requests"`
	FetchTimeout       int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Feed fetch timeout in seconds"`
	FeedDelay          int    `long:"feed-delay" env:"FEED_DELAY" default:"1000" description:"Delay between feeds in milliseconds"`
	TitleNormalization string `long:"title-normalization" env:"TITLE_NORMALIZATION" default:"whitespace" choice:"whitespace" choice:"alphanumeric" description:"Title normalization used for author+title duplicate detection"`
	FetchPreviews      bool   `long:"fetch-previews" env:"FETCH_PREVIEWS" description:"Fetch article pages to fill missing summaries and thumbnails"`
	PreviewInterval    int    `long:"preview-interval" env:"PREVIEW_INTERVAL" default:"1000" description:"Minimum milliseconds between page fetches on one host"`

	// Read API
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl       string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://blogs.example.com)"`
	CrawlInterval int    `long:"crawl-interval" env:"CRAWL_INTERVAL" default:"0" description:"Minutes between scheduled crawls in serve mode (0 disables)"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Seoul)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type command struct{}

// Load parses args and the environment. It returns nil without error when help
// was requested, a *flags.Error on usage errors and a *ConfigError when a
// required setting is missing or invalid.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.AddCommand(CommandCrawl, "Run one ingestion pass", "Fetch every registered feed once and store new articles.", &command{})
	parser.AddCommand(CommandServe, "Serve the read API", "Serve the content store over HTTP, optionally crawling on an interval.", &command{})

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Command:            parser.Active.Name,
		StoreDriver:        raw.StoreDriver,
		StoreURL:           raw.StoreURL,
		StoreKey:           raw.StoreKey,
		FeedsFile:          raw.FeedsFile,
		UserAgent:          raw.UserAgent,
		FetchTimeout:       time.Duration(raw.FetchTimeout) * time.Second,
		FeedDelay:          time.Duration(raw.FeedDelay) * time.Millisecond,
		TitleNormalization: raw.TitleNormalization,
		FetchPreviews:      raw.FetchPreviews,
		PreviewInterval:    time.Duration(raw.PreviewInterval) * time.Millisecond,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		CrawlInterval:      time.Duration(raw.CrawlInterval) * time.Minute,
		APIAccessKey:       raw.APIAccessKey,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

// Validate reports the first missing or invalid setting as a *ConfigError.
func (c *Cfg) Validate() error {
	switch {
	case c.StoreURL == "":
		return &ConfigError{Field: "STORE_URL", Message: "content store endpoint is required"}
	case c.StoreKey == "":
		return &ConfigError{Field: "STORE_KEY", Message: "content store credential is required"}
	case c.FetchTimeout <= 0:
		return &ConfigError{Field: "FETCH_TIMEOUT", Message: "must be positive"}
	case c.FeedDelay < 0:
		return &ConfigError{Field: "FEED_DELAY", Message: "must not be negative"}
	case c.PreviewInterval < 0:
		return &ConfigError{Field: "PREVIEW_INTERVAL", Message: "must not be negative"}
	case c.CrawlInterval < 0:
		return &ConfigError{Field: "CRAWL_INTERVAL", Message: "must not be negative"}
	}
	return nil
}

// PublicURL returns BaseUrl, or the local address when it is not configured.
func (c *Cfg) PublicURL() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return fmt.Sprintf("http://localhost:%s", c.Port)
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			slog.Debug("Timezone configured", "timezone", timezone)
		}
	}
	return nil
}
