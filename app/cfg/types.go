package cfg

import (
	"fmt"
	"time"
)

const (
	CommandCrawl = "crawl"
	CommandServe = "serve"
)

type Cfg struct {
	Command string

	// Content store
	StoreDriver string
	StoreURL    string
	StoreKey    string

	// Ingestion
	FeedsFile          string
	UserAgent          string
	FetchTimeout       time.Duration
	FeedDelay          time.Duration
	TitleNormalization string
	FetchPreviews      bool
	PreviewInterval    time.Duration

	// Read API
	Port          string
	BaseUrl       string
	CrawlInterval time.Duration
	APIAccessKey  string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// ConfigError is a missing or invalid setting detected before any work begins.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}
