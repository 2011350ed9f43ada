package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/blogroll/app/api"
	"github.com/lysyi3m/blogroll/app/cfg"
	"github.com/lysyi3m/blogroll/app/content"
	"github.com/lysyi3m/blogroll/app/database"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/lysyi3m/blogroll/app/identity"
	"github.com/lysyi3m/blogroll/app/ingest"
	"github.com/lysyi3m/blogroll/app/tasks"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	setupLogging(false)

	c, err := cfg.Load(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			return exitUsage
		}
		slog.Error("Failed to load configuration", "error", err)
		return exitError
	}
	if c == nil {
		return exitOK
	}

	setupLogging(c.Debug)
	slog.Info("Starting Blogroll", "version", c.Version, "command", c.Command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, c)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return exitError
	}
	defer app.close()

	switch c.Command {
	case cfg.CommandCrawl:
		return app.crawl(ctx)
	case cfg.CommandServe:
		return app.serve(ctx)
	}
	return exitUsage
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

type application struct {
	cfg      *cfg.Cfg
	db       *database.DB
	store    *database.ArticleStore
	registry *feed.Registry
	runner   *ingest.Runner
}

func newApp(ctx context.Context, c *cfg.Cfg) (*application, error) {
	dialect, err := database.ParseDialect(c.StoreDriver)
	if err != nil {
		return nil, err
	}

	policy, err := identity.ParseTitlePolicy(c.TitleNormalization)
	if err != nil {
		return nil, err
	}

	registry, err := feed.LoadRegistry(c.FeedsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed registry: %w", err)
	}
	slog.Info("Feed registry loaded", "sources", registry.Len())

	db, err := database.NewConnection(dialect, c.StoreURL, c.StoreKey)
	if err != nil {
		return nil, err
	}

	store := database.NewArticleStore(db)
	if err := store.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ingest.ErrStoreUnavailable, err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Content store ready", "driver", string(dialect), "schema_version", version, "dirty", dirty)

	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), c.UserAgent, c.FetchTimeout)

	var previewer *content.Previewer
	if c.FetchPreviews {
		previewer = content.NewPreviewer(httpClient, c.UserAgent, c.FetchTimeout, content.NewHostLimiter(c.PreviewInterval))
		slog.Info("Article page previews enabled", "interval", c.PreviewInterval.String())
	}

	runner := ingest.NewRunner(registry.Sources(), fetcher, content.NewExtractor(previewer), store, ingest.Options{
		FeedDelay:   c.FeedDelay,
		TitlePolicy: policy,
	})

	return &application{
		cfg:      c,
		db:       db,
		store:    store,
		registry: registry,
		runner:   runner,
	}, nil
}

func (a *application) close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("Failed to close content store", "error", err)
	}
}

func (a *application) crawl(ctx context.Context) int {
	summary, err := a.runner.Run(ctx)
	if err != nil {
		slog.Error("Crawl aborted", "error", err)
		return exitError
	}

	if summary.Interrupted {
		slog.Warn("Crawl interrupted", "feeds_processed", summary.FeedsProcessed)
	}
	return exitOK
}

func (a *application) serve(ctx context.Context) int {
	scheduler := tasks.NewScheduler(a.runner, a.cfg.CrawlInterval)
	scheduler.Start()
	defer scheduler.Stop()

	if a.cfg.CrawlInterval > 0 {
		slog.Info("Scheduled crawls enabled", "interval", a.cfg.CrawlInterval.String())
	}

	generator := feed.NewGenerator(a.cfg.PublicURL(), a.cfg.Version)
	handler := api.NewHandler(a.store, a.registry, generator, scheduler, a.cfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      api.NewServer(handler, a.cfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", a.cfg.Port, "url", a.cfg.PublicURL())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	exitCode := exitOK
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = exitError
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return exitCode
}
