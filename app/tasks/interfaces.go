package tasks

import (
	"context"

	"github.com/lysyi3m/blogroll/app/ingest"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the admin API to run crawls in the background.
// Example usage:
//
//	scheduler := NewScheduler(runner, 30*time.Minute)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.TriggerCrawl("admin")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	TriggerCrawl(trigger string) error
	LastSummary() *ingest.Summary
}

// Crawler runs one ingestion pass.
type Crawler interface {
	Run(ctx context.Context) (*ingest.Summary, error)
}
