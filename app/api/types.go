package api

import (
	"context"

	"github.com/lysyi3m/blogroll/app/database"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/lysyi3m/blogroll/app/tasks"
)

type GeneratorInterface interface {
	Run(title string, articles []database.Article) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// ArticleReader is the read side of the content store.
type ArticleReader interface {
	ListArticles(ctx context.Context, query database.ArticleQuery) (*database.ArticlePage, error)
	GetArticle(ctx context.Context, id int64) (*database.Article, error)
	GetArticleCount(ctx context.Context) (int, error)
	GetAuthorStats(ctx context.Context) ([]database.AuthorStats, error)
	IncrementViews(ctx context.Context, id int64) (int, error)
}

var _ ArticleReader = (*database.ArticleStore)(nil)

type Handler struct {
	store     ArticleReader
	registry  *feed.Registry
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	version   string
}

// SourceInfo is a registry entry joined with its stored article count.
type SourceInfo struct {
	feed.Source
	Articles int `json:"articles"`
}
