package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer builds the read API. Admin routes are mounted only when apiAccessKey is set.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger("/health"), gin.Recovery(), corsMiddleware())

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/rss", handler.GetRSS)
	r.GET("/health", handler.GetHealth)

	articles := r.Group("/api/articles")
	{
		articles.GET("", handler.ListArticles)
		articles.GET("/:id", handler.GetArticle)
		articles.POST("/:id/views", handler.IncrementViews)
	}
	r.GET("/api/sources", handler.ListSources)

	if apiAccessKey == "" {
		slog.Info("Admin endpoints disabled (API_ACCESS_KEY not set)")
		return
	}

	admin := r.Group("/api", authMiddleware(apiAccessKey))
	admin.POST("/crawl", handler.APITriggerCrawl)
	slog.Info("Admin endpoints enabled with authentication")
}

func requestLogger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if skip[c.Request.URL.Path] {
			return
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			attrs = append(attrs, "error", errs)
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			slog.Warn("HTTP request", attrs...)
		} else {
			slog.Debug("HTTP request", attrs...)
		}
	}
}

// corsMiddleware lets the presentation layer call the read API from a browser.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware accepts the key in X-API-Key or as an Authorization bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	expected := []byte(apiAccessKey)

	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
				providedKey = token
			}
		}

		switch {
		case providedKey == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
		case subtle.ConstantTimeCompare([]byte(providedKey), expected) != 1:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
		default:
			c.Next()
		}
	}
}
