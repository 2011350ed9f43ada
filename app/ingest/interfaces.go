package ingest

import (
	"context"

	"github.com/lysyi3m/blogroll/app/content"
	"github.com/lysyi3m/blogroll/app/database"
	"github.com/lysyi3m/blogroll/app/feed"
)

type Fetcher interface {
	Fetch(ctx context.Context, source feed.Source) ([]feed.RawItem, error)
}

type Extractor interface {
	Extract(ctx context.Context, item feed.RawItem, platform feed.Platform) content.Result
}

// Store is the write side of the content store used by a run.
type Store interface {
	Ping(ctx context.Context) error
	ListArticleKeys(ctx context.Context) ([]database.ArticleKey, error)
	InsertArticles(ctx context.Context, articles []database.NewArticle) (int, error)
}
