package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lysyi3m/blogroll/app/database"
	"github.com/lysyi3m/blogroll/app/dedup"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/lysyi3m/blogroll/app/identity"
)

// UntitledTitle is stored for items without a title. Such items never take
// part in author+title matching.
const UntitledTitle = "Untitled"

var errMissingLink = errors.New("item has no link")

// Candidate is an extracted, normalized post awaiting classification.
type Candidate struct {
	Title        string
	TitleKey     string
	Summary      string
	Author       string
	SourceType   feed.SourceType
	ExternalURL  string
	PublishedAt  time.Time
	ThumbnailURL string
	Tags         []string
}

func (c Candidate) key() dedup.Key {
	return dedup.Key{URL: c.ExternalURL, Author: c.Author, Title: c.TitleKey}
}

func (c Candidate) article() database.NewArticle {
	return database.NewArticle{
		Title:        c.Title,
		TitleKey:     c.TitleKey,
		Summary:      c.Summary,
		Author:       c.Author,
		SourceType:   string(c.SourceType),
		ExternalURL:  c.ExternalURL,
		PublishedAt:  c.PublishedAt,
		ThumbnailURL: c.ThumbnailURL,
		Tags:         c.Tags,
	}
}

func (r *Runner) buildCandidate(ctx context.Context, source feed.Source, item feed.RawItem) (Candidate, error) {
	if item.Link == "" {
		return Candidate{}, errMissingLink
	}

	canonical, err := identity.NormalizeURL(item.Link)
	if err != nil {
		return Candidate{}, err
	}

	title, titleKey := r.title(item.Title)
	extracted := r.extractor.Extract(ctx, item, source.Platform)

	return Candidate{
		Title:        title,
		TitleKey:     titleKey,
		Summary:      extracted.Summary,
		Author:       source.Name,
		SourceType:   source.Type,
		ExternalURL:  canonical,
		PublishedAt:  r.publishedAt(item),
		ThumbnailURL: extracted.ThumbnailURL,
		Tags:         tags(item.Categories),
	}, nil
}

func (r *Runner) title(raw string) (string, string) {
	title := strings.TrimSpace(raw)
	if title == "" || title == UntitledTitle {
		return UntitledTitle, ""
	}
	return title, identity.NormalizeTitle(title, r.opts.TitlePolicy)
}

func (r *Runner) publishedAt(item feed.RawItem) time.Time {
	switch {
	case item.PublishedAt != nil:
		return item.PublishedAt.UTC()
	case item.UpdatedAt != nil:
		return item.UpdatedAt.UTC()
	default:
		return r.now().UTC()
	}
}

func tags(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		out = append(out, c)
	}
	return out
}

// seedKey maps a stored article onto the same identity space as fresh candidates.
func (r *Runner) seedKey(key database.ArticleKey) dedup.Key {
	canonical, err := identity.NormalizeURL(key.ExternalURL)
	if err != nil {
		canonical = key.ExternalURL
	}
	_, titleKey := r.title(key.Title)
	return dedup.Key{URL: canonical, Author: key.Author, Title: titleKey}
}
