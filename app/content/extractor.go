package content

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/blogroll/app/feed"
)

type Result struct {
	Summary      string
	ThumbnailURL string
}

// Extractor derives a summary and thumbnail per item. With a Previewer set, items
// still missing either are completed from their article page.
type Extractor struct {
	strategies []ThumbnailStrategy
	previewer  *Previewer
}

func NewExtractor(previewer *Previewer) *Extractor {
	return &Extractor{
		strategies: DefaultThumbnailStrategies,
		previewer:  previewer,
	}
}

func (e *Extractor) Extract(ctx context.Context, item feed.RawItem, platform feed.Platform) Result {
	result := Result{
		Summary:      Summary(item, platform),
		ThumbnailURL: Thumbnail(item, e.strategies),
	}

	if e.previewer == nil || item.Link == "" || (result.Summary != "" && result.ThumbnailURL != "") {
		return result
	}

	preview, err := e.previewer.Preview(ctx, item.Link)
	if err != nil {
		slog.Debug("Page preview skipped", "link", item.Link, "error", err)
		return result
	}

	if result.ThumbnailURL == "" {
		result.ThumbnailURL = absoluteURL(preview.ImageURL)
	}
	if result.Summary == "" && usableText(preview.Text) {
		result.Summary = Truncate(preview.Text, SummaryLength)
	}

	return result
}
