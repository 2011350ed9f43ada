package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/blogroll/app/database"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/lysyi3m/blogroll/app/tasks"
)

const (
	rssTitle    = "Blogroll"
	rssMaxItems = 50
)

func NewHandler(store ArticleReader, registry *feed.Registry, generator GeneratorInterface,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		store:     store,
		registry:  registry,
		generator: generator,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetRSS(c *gin.Context) {
	query := database.ArticleQuery{
		SourceType: c.Query("type"),
		Author:     c.Query("author"),
		SortBy:     "published_at",
		Limit:      rssMaxItems,
	}

	page, err := h.store.ListArticles(c.Request.Context(), query)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	title := rssTitle
	if query.Author != "" {
		title = rssTitle + " - " + query.Author
	}

	rss, err := h.generator.Run(title, page.Articles)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(page.Articles)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.registry.Len(),
	}

	if count, err := h.store.GetArticleCount(c.Request.Context()); err == nil {
		health["articles"] = count
	} else {
		slog.Error("Database error", "operation", "get_article_count", "error", err)
		health["status"] = "degraded"
	}

	if h.scheduler != nil {
		if summary := h.scheduler.LastSummary(); summary != nil {
			health["last_crawl"] = map[string]interface{}{
				"started_at":      summary.StartedAt.Format(time.RFC3339),
				"duration":        summary.Duration.String(),
				"feeds_processed": summary.FeedsProcessed,
				"feeds_failed":    summary.FeedsFailed,
				"failed_feeds":    summary.FailedFeeds(),
				"inserted":        summary.Inserted,
				"duplicates":      summary.Duplicates,
				"duplicate_rate":  summary.DuplicateRate(),
				"interrupted":     summary.Interrupted,
			}
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListArticles(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	sourceType := c.Query("type")
	if sourceType != "" && !feed.SourceType(sourceType).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid type parameter"})
		return
	}

	result, err := h.store.ListArticles(c.Request.Context(), database.ArticleQuery{
		SourceType: sourceType,
		Author:     c.Query("author"),
		Search:     c.Query("q"),
		SortBy:     c.Query("sort"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	article, err := h.store.GetArticle(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) IncrementViews(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	views, err := h.store.IncrementViews(c.Request.Context(), id)
	if errors.Is(err, database.ErrArticleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "increment_views", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "views": views})
}

func (h *Handler) ListSources(c *gin.Context) {
	stats, err := h.store.GetAuthorStats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_author_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	counts := make(map[string]int, len(stats))
	for _, stat := range stats {
		counts[stat.Author] += stat.Articles
	}

	sourceType := c.Query("type")
	registered := h.registry.Sources()
	sources := make([]SourceInfo, 0, len(registered))
	for _, source := range registered {
		if sourceType != "" && string(source.Type) != sourceType {
			continue
		}
		sources = append(sources, SourceInfo{Source: source, Articles: counts[source.Name]})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APITriggerCrawl(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	err := h.scheduler.TriggerCrawl("api")
	if errors.Is(err, tasks.ErrCrawlPending) {
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"message": "A crawl is already queued",
		})
		return
	}
	if err != nil {
		slog.Error("Error enqueueing crawl task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue crawl task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Crawl enqueued",
	})
}

func articleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article id"})
		return 0, false
	}
	return id, true
}

// queryInt returns 0 when the parameter is absent so the store applies its default.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}
