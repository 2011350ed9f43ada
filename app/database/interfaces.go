package database

import (
	"context"
)

type ArticleRepository interface {
	Ping(ctx context.Context) error
	ListArticleKeys(ctx context.Context) ([]ArticleKey, error)
	InsertArticles(ctx context.Context, articles []NewArticle) (int, error)

	ListArticles(ctx context.Context, query ArticleQuery) (*ArticlePage, error)
	GetArticle(ctx context.Context, id int64) (*Article, error)
	GetArticleCount(ctx context.Context) (int, error)
	GetAuthorStats(ctx context.Context) ([]AuthorStats, error)
	IncrementViews(ctx context.Context, id int64) (int, error)
}
