package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/blogroll/app/dedup"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/lysyi3m/blogroll/app/identity"
)

// ErrStoreUnavailable aborts a run before any source is fetched.
var ErrStoreUnavailable = errors.New("content store unavailable")

type Options struct {
	// FeedDelay separates consecutive sources. No delay follows the last one.
	FeedDelay   time.Duration
	TitlePolicy identity.TitlePolicy
	// Now stamps items without any date; defaults to time.Now.
	Now func() time.Time
}

// Runner drives one ingestion run: sources are processed strictly one at a
// time against a duplicate index seeded from the store.
type Runner struct {
	sources   []feed.Source
	fetcher   Fetcher
	extractor Extractor
	store     Store
	persister *Persister
	opts      Options
}

func NewRunner(sources []feed.Source, fetcher Fetcher, extractor Extractor, store Store, opts Options) *Runner {
	if opts.TitlePolicy == "" {
		opts.TitlePolicy = identity.TitleWhitespace
	}
	return &Runner{
		sources:   sources,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		persister: NewPersister(store),
		opts:      opts,
	}
}

// Run returns an error only when the store is unusable. Per-source failures are
// recorded in the summary. Cancelling ctx stops the run after the current source.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	startedAt := r.now()

	index, err := r.init(ctx)
	if err != nil {
		return nil, err
	}

	summary := newSummary(startedAt)

	for i, source := range r.sources {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		result := r.processFeed(ctx, source, index)
		summary.add(result)

		if i < len(r.sources)-1 {
			if err := sleep(ctx, r.opts.FeedDelay); err != nil {
				summary.Interrupted = true
				break
			}
		}
	}

	summary.Duration = time.Since(startedAt)
	summary.Log()

	return summary, nil
}

func (r *Runner) init(ctx context.Context) (*dedup.Index, error) {
	if err := r.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	keys, err := r.store.ListArticleKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to seed duplicate index: %w", ErrStoreUnavailable, err)
	}

	index := dedup.NewIndex()
	for _, key := range keys {
		index.Add(r.seedKey(key))
	}

	slog.Info("Duplicate index seeded", "articles", len(keys), "sources", len(r.sources))
	return index, nil
}

func (r *Runner) processFeed(ctx context.Context, source feed.Source, index *dedup.Index) (result FeedResult) {
	startedAt := time.Now()
	result.Source = source.Name

	defer func() {
		if rec := recover(); rec != nil {
			result.Err = fmt.Errorf("panic while processing feed: %v", rec)
			slog.Error("Feed processing panicked", "feed", source.Name, "panic", rec)
		}
	}()

	items, err := r.fetcher.Fetch(ctx, source)
	if err != nil {
		result.Err = err
		slog.Warn("Feed fetch failed", "feed", source.Name, "error", err)
		return result
	}
	result.Items = len(items)

	var accepted []Candidate
	for _, item := range items {
		candidate, err := r.buildCandidate(ctx, source, item)
		if err != nil {
			result.Skipped++
			slog.Debug("Item skipped", "feed", source.Name, "link", item.Link, "reason", err)
			continue
		}

		if reason, dup := index.Classify(candidate.key()); dup {
			result.addDuplicate(candidate.ExternalURL, reason)
			slog.Debug("Duplicate item", "feed", source.Name, "url", candidate.ExternalURL, "reason", reason)
			continue
		}

		accepted = append(accepted, candidate)
	}
	result.Accepted = len(accepted)

	// Index entries of a rejected batch stay in place; the posts are retried on the next run.
	inserted, err := r.persister.Persist(ctx, source.Name, accepted)
	if err != nil {
		result.Err = err
		slog.Error("Feed batch insert failed", "feed", source.Name, "accepted", len(accepted), "error", err)
	}
	result.Inserted = inserted

	slog.Info("Feed processed",
		"feed", source.Name,
		"duration", time.Since(startedAt),
		"total", result.Items,
		"skipped", result.Skipped,
		"duplicates", result.Duplicates,
		"inserted", result.Inserted)

	return result
}

func (r *Runner) now() time.Time {
	if r.opts.Now != nil {
		return r.opts.Now()
	}
	return time.Now()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
