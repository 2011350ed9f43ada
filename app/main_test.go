package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/lysyi3m/blogroll/app/database"
)

const mainTestRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>%s</title>
    <link>https://blog.example.com</link>
    <item>
      <title>Shared post</title>
      <link>https://blog.example.com/shared?utm_source=rss</link>
      <description>&lt;p&gt;A post syndicated by both sources, long enough to summarize.&lt;/p&gt;</description>
      <pubDate>Wed, 01 May 2024 12:00:00 +0000</pubDate>
    </item>
    <item>
      <title>%s only</title>
      <link>https://blog.example.com/%s</link>
      <description>&lt;p&gt;A post published by a single source only.&lt;/p&gt;</description>
      <pubDate>Thu, 02 May 2024 12:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func newFeedServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		name := r.URL.Path[1:]
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, mainTestRSS, name, name, name)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeRegistry(t *testing.T, serverURL string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feeds.yml")
	registry := fmt.Sprintf(`feeds:
  - name: Alpha
    url: %s/alpha
    type: company
  - name: Beta
    url: %s/beta
    type: personal
`, serverURL, serverURL)

	if err := os.WriteFile(path, []byte(registry), 0o644); err != nil {
		t.Fatalf("Failed to write registry: %v", err)
	}
	return path
}

func storeArgs(dbPath, feedsFile string) []string {
	return []string{
		"--store-driver=sqlite",
		"--store-url=" + dbPath,
		"--store-key=local",
		"--feeds-file=" + feedsFile,
		"--feed-delay=0",
	}
}

func TestRunCrawl(t *testing.T) {
	var hits atomic.Int32
	server := newFeedServer(t, &hits)
	feedsFile := writeRegistry(t, server.URL)
	dbPath := filepath.Join(t.TempDir(), "blogroll.db")

	args := append(storeArgs(dbPath, feedsFile), "crawl")
	if code := run(args); code != exitOK {
		t.Fatalf("Expected exit code %d, got: %d", exitOK, code)
	}
	if code := run(args); code != exitOK {
		t.Fatalf("Expected rerun exit code %d, got: %d", exitOK, code)
	}

	if got := hits.Load(); got != 4 {
		t.Errorf("Expected 4 feed fetches over two runs, got: %d", got)
	}

	db, err := database.NewConnection(database.SQLite, dbPath, "")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	count, err := database.NewArticleStore(db).GetArticleCount(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	// The shared post is stored once; reruns add nothing.
	if count != 3 {
		t.Errorf("Expected 3 articles, got: %d", count)
	}
}

func TestRunMissingCredentialFetchesNothing(t *testing.T) {
	var hits atomic.Int32
	server := newFeedServer(t, &hits)
	feedsFile := writeRegistry(t, server.URL)

	t.Setenv("STORE_KEY", "")
	args := []string{
		"--store-driver=sqlite",
		"--store-url=" + filepath.Join(t.TempDir(), "blogroll.db"),
		"--feeds-file=" + feedsFile,
		"crawl",
	}

	if code := run(args); code != exitError {
		t.Errorf("Expected exit code %d, got: %d", exitError, code)
	}
	if got := hits.Load(); got != 0 {
		t.Errorf("Expected no feed fetches, got: %d", got)
	}
}

func TestRunUsageErrors(t *testing.T) {
	if code := run([]string{}); code != exitUsage {
		t.Errorf("Expected exit code %d without a command, got: %d", exitUsage, code)
	}
	if code := run([]string{"publish"}); code != exitUsage {
		t.Errorf("Expected exit code %d for unknown command, got: %d", exitUsage, code)
	}
	if code := run([]string{"--help"}); code != exitOK {
		t.Errorf("Expected exit code %d for help, got: %d", exitOK, code)
	}
}

func TestRunInvalidRegistry(t *testing.T) {
	feedsFile := filepath.Join(t.TempDir(), "feeds.yml")
	if err := os.WriteFile(feedsFile, []byte("feeds:\n  - name: Broken\n    url: not-a-url\n    type: company\n"), 0o644); err != nil {
		t.Fatalf("Failed to write registry: %v", err)
	}

	args := append(storeArgs(filepath.Join(t.TempDir(), "blogroll.db"), feedsFile), "crawl")
	if code := run(args); code != exitError {
		t.Errorf("Expected exit code %d, got: %d", exitError, code)
	}
}
