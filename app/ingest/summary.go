package ingest

import (
	"log/slog"
	"time"

	"github.com/lysyi3m/blogroll/app/dedup"
)

const maxDuplicateSamples = 5

type DuplicateSample struct {
	Source string
	URL    string
	Reason dedup.Reason
}

// FeedResult is the outcome of one source. Err is set when the source failed
// to fetch or its batch was rejected.
type FeedResult struct {
	Source     string
	Items      int
	Skipped    int
	Duplicates int
	Accepted   int
	Inserted   int
	Err        error

	reasons map[dedup.Reason]int
	samples []DuplicateSample
}

func (r *FeedResult) addDuplicate(url string, reason dedup.Reason) {
	r.Duplicates++
	if r.reasons == nil {
		r.reasons = make(map[dedup.Reason]int)
	}
	r.reasons[reason]++
	if len(r.samples) < maxDuplicateSamples {
		r.samples = append(r.samples, DuplicateSample{Source: r.Source, URL: url, Reason: reason})
	}
}

type Summary struct {
	StartedAt time.Time
	Duration  time.Duration

	FeedsProcessed int
	FeedsFailed    int
	Items          int
	Skipped        int
	Duplicates     int
	Inserted       int

	DuplicateReasons map[dedup.Reason]int
	DuplicateSamples []DuplicateSample
	Feeds            []FeedResult

	// Interrupted is set when cancellation stopped the run before the last source.
	Interrupted bool
}

func newSummary(startedAt time.Time) *Summary {
	return &Summary{
		StartedAt:        startedAt,
		DuplicateReasons: make(map[dedup.Reason]int),
	}
}

func (s *Summary) add(result FeedResult) {
	s.FeedsProcessed++
	if result.Err != nil {
		s.FeedsFailed++
	}
	s.Items += result.Items
	s.Skipped += result.Skipped
	s.Duplicates += result.Duplicates
	s.Inserted += result.Inserted

	for reason, n := range result.reasons {
		s.DuplicateReasons[reason] += n
	}
	for _, sample := range result.samples {
		if len(s.DuplicateSamples) >= maxDuplicateSamples {
			break
		}
		s.DuplicateSamples = append(s.DuplicateSamples, sample)
	}

	s.Feeds = append(s.Feeds, result)
}

// DuplicateRate is the share of classified items that were duplicates.
func (s *Summary) DuplicateRate() float64 {
	classified := s.Items - s.Skipped
	if classified <= 0 {
		return 0
	}
	return float64(s.Duplicates) / float64(classified)
}

// FailedFeeds lists the sources that contributed nothing because of an error.
func (s *Summary) FailedFeeds() []string {
	var names []string
	for _, f := range s.Feeds {
		if f.Err != nil {
			names = append(names, f.Source)
		}
	}
	return names
}

func (s *Summary) Log() {
	for _, sample := range s.DuplicateSamples {
		slog.Info("Duplicate sample", "feed", sample.Source, "url", sample.URL, "reason", sample.Reason)
	}

	slog.Info("Run completed",
		"duration", s.Duration,
		"feeds", s.FeedsProcessed,
		"failed", s.FeedsFailed,
		"failed_feeds", s.FailedFeeds(),
		"items", s.Items,
		"skipped", s.Skipped,
		"inserted", s.Inserted,
		"duplicates", s.Duplicates,
		"duplicates_by_url", s.DuplicateReasons[dedup.ReasonURL],
		"duplicates_by_title", s.DuplicateReasons[dedup.ReasonAuthorTitle],
		"duplicate_rate", s.DuplicateRate(),
		"interrupted", s.Interrupted)
}
