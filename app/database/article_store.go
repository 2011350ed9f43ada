package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100

	// MaxPage keeps (Page-1)*Limit within a 32-bit OFFSET.
	MaxPage = math.MaxInt32 / MaxPageSize
)

var ErrArticleNotFound = errors.New("article not found")

const articleColumns = `id, title, summary, author, source_type, external_url,
	published_at, thumbnail_url, tags, views, created_at, updated_at`

const insertArticleQuery = `
	INSERT INTO articles (
		title, title_key, summary, author, source_type, external_url,
		published_at, thumbnail_url, tags, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

var sortOrders = map[string]string{
	"published_at": "published_at DESC, id DESC",
	"views":        "views DESC, published_at DESC, id DESC",
	"created_at":   "created_at DESC, id DESC",
	"title":        "title ASC, id ASC",
}

// ArticleStore handles database operations for articles
type ArticleStore struct {
	db *DB
}

var _ ArticleRepository = (*ArticleStore)(nil)

func NewArticleStore(db *DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Ping validates connectivity and credentials.
func (s *ArticleStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach %s store: %w", s.db.dialect, err)
	}
	return nil
}

// ListArticleKeys returns the (url, title, author) projection of every stored article.
func (s *ArticleStore) ListArticleKeys(ctx context.Context) ([]ArticleKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_url, title, author FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("failed to list article keys: %w", err)
	}
	defer rows.Close()

	var keys []ArticleKey
	for rows.Next() {
		var key ArticleKey
		if err := rows.Scan(&key.ExternalURL, &key.Title, &key.Author); err != nil {
			return nil, fmt.Errorf("failed to scan article key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article keys: %w", err)
	}

	return keys, nil
}

// InsertArticles writes the batch in one transaction. Any row failure rolls back
// the whole batch and reports zero inserted.
func (s *ArticleStore) InsertArticles(ctx context.Context, articles []NewArticle) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(insertArticleQuery))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, a := range articles {
		tags, err := encodeTags(a.Tags)
		if err != nil {
			return 0, err
		}

		_, err = stmt.ExecContext(ctx,
			a.Title, nullString(a.TitleKey), a.Summary, a.Author, a.SourceType, a.ExternalURL,
			a.PublishedAt.UTC(), nullString(a.ThumbnailURL), tags, now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert article %s: %w", a.ExternalURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return len(articles), nil
}

// ListArticles returns one page of articles matching the query.
func (s *ArticleStore) ListArticles(ctx context.Context, query ArticleQuery) (*ArticlePage, error) {
	query = query.withDefaults()
	where, args := query.whereClause()

	var total int
	countQuery := s.db.Rebind("SELECT COUNT(*) FROM articles" + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	selectQuery := s.db.Rebind("SELECT " + articleColumns + " FROM articles" + where +
		" ORDER BY " + sortOrders[query.SortBy] + " LIMIT ? OFFSET ?")
	args = append(args, query.Limit, (query.Page-1)*query.Limit)

	rows, err := s.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]Article, 0, query.Limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return &ArticlePage{
		Articles:    articles,
		TotalCount:  total,
		TotalPages:  (total + query.Limit - 1) / query.Limit,
		CurrentPage: query.Page,
	}, nil
}

// GetArticle returns nil without error when no article has the id.
func (s *ArticleStore) GetArticle(ctx context.Context, id int64) (*Article, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT "+articleColumns+" FROM articles WHERE id = ?"), id)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &article, nil
}

func (s *ArticleStore) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

// GetAuthorStats returns article counts per author.
func (s *ArticleStore) GetAuthorStats(ctx context.Context) ([]AuthorStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author, source_type, COUNT(*)
		FROM articles
		GROUP BY author, source_type
		ORDER BY author
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get author stats: %w", err)
	}
	defer rows.Close()

	stats := []AuthorStats{}
	for rows.Next() {
		var stat AuthorStats
		if err := rows.Scan(&stat.Author, &stat.SourceType, &stat.Articles); err != nil {
			return nil, fmt.Errorf("failed to scan author stats: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating author stats: %w", err)
	}

	return stats, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (s *ArticleStore) IncrementViews(ctx context.Context, id int64) (int, error) {
	var views int
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind("UPDATE articles SET views = views + 1 WHERE id = ? RETURNING views"), id).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrArticleNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}
	return views, nil
}

func (q ArticleQuery) withDefaults() ArticleQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if _, ok := sortOrders[q.SortBy]; !ok {
		q.SortBy = "published_at"
	}
	return q
}

func (q ArticleQuery) whereClause() (string, []any) {
	var conditions []string
	var args []any

	if q.SourceType != "" {
		conditions = append(conditions, "source_type = ?")
		args = append(args, q.SourceType)
	}
	if q.Author != "" {
		conditions = append(conditions, "author = ?")
		args = append(args, q.Author)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		conditions = append(conditions,
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (Article, error) {
	var (
		a         Article
		thumbnail sql.NullString
		tags      string
	)

	err := row.Scan(
		&a.ID, &a.Title, &a.Summary, &a.Author, &a.SourceType, &a.ExternalURL,
		&a.PublishedAt, &thumbnail, &tags, &a.Views, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("failed to scan article row: %w", err)
	}

	if thumbnail.Valid && thumbnail.String != "" {
		v := thumbnail.String
		a.ThumbnailURL = &v
	}

	a.Tags, err = decodeTags(tags)
	if err != nil {
		return a, err
	}

	return a, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
