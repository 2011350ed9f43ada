package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/blogroll/app/ingest"
)

type CrawlTask struct {
	Task
	Trigger    string
	crawler    Crawler
	onComplete func(*ingest.Summary)
}

func NewCrawlTask(trigger string, crawler Crawler, onComplete func(*ingest.Summary)) *CrawlTask {
	return &CrawlTask{
		Task:       NewTask(TaskTypeCrawl),
		Trigger:    trigger,
		crawler:    crawler,
		onComplete: onComplete,
	}
}

// Execute fails only when the run could not start. Only an unavailable store is
// worth retrying; per-feed failures are part of a completed run.
func (t *CrawlTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.crawler.Run(ctx)
	if err != nil {
		if !errors.Is(err, ingest.ErrStoreUnavailable) {
			t.MaxRetries = t.RetryCount
		}
		return fmt.Errorf("crawl failed: %w", err)
	}

	if t.onComplete != nil {
		t.onComplete(summary)
	}

	slog.Info("Task completed",
		"type", "Crawl",
		"trigger", t.Trigger,
		"duration", t.GetDuration(),
		"feeds", summary.FeedsProcessed,
		"failed", summary.FeedsFailed,
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates)

	return nil
}
