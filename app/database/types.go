package database

import (
	"time"
)

type Article struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Author       string    `json:"author"`
	SourceType   string    `json:"source_type"`
	ExternalURL  string    `json:"external_url"`
	PublishedAt  time.Time `json:"published_at"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Tags         []string  `json:"tags"`
	Views        int       `json:"views"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewArticle is an accepted candidate ready for insertion.
type NewArticle struct {
	Title        string
	TitleKey     string // normalized title; empty for untitled items
	Summary      string
	Author       string
	SourceType   string
	ExternalURL  string // canonical form
	PublishedAt  time.Time
	ThumbnailURL string
	Tags         []string
}

// ArticleKey is the identity projection used to seed duplicate detection.
type ArticleKey struct {
	ExternalURL string
	Title       string
	Author      string
}

type ArticleQuery struct {
	SourceType string
	Author     string
	Search     string
	SortBy     string
	Page       int
	Limit      int
}

type ArticlePage struct {
	Articles    []Article `json:"articles"`
	TotalCount  int       `json:"total_count"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
}

type AuthorStats struct {
	Author     string `json:"author"`
	SourceType string `json:"source_type"`
	Articles   int    `json:"articles"`
}
