package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/blogroll/app/content"
	"github.com/lysyi3m/blogroll/app/database"
	"github.com/lysyi3m/blogroll/app/dedup"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/lysyi3m/blogroll/app/identity"
)

type fakeFetcher struct {
	mu     sync.Mutex
	items  map[string][]feed.RawItem
	errs   map[string]error
	panics map[string]bool
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, source feed.Source) ([]feed.RawItem, error) {
	f.mu.Lock()
	f.calls = append(f.calls, source.Name)
	f.mu.Unlock()

	if f.panics[source.Name] {
		panic("malformed feed")
	}
	if err := f.errs[source.Name]; err != nil {
		return nil, &feed.FetchError{Source: source.Name, Err: err}
	}
	return f.items[source.Name], nil
}

type unavailableStore struct{}

func (unavailableStore) Ping(context.Context) error {
	return errors.New("password authentication failed")
}

func (unavailableStore) ListArticleKeys(context.Context) ([]database.ArticleKey, error) {
	return nil, nil
}

func (unavailableStore) InsertArticles(context.Context, []database.NewArticle) (int, error) {
	return 0, errors.New("unreachable")
}

// rejectingStore fails every batch that carries an article by the given author.
type rejectingStore struct {
	*database.ArticleStore
	author string
}

func (s *rejectingStore) InsertArticles(ctx context.Context, articles []database.NewArticle) (int, error) {
	for _, a := range articles {
		if a.Author == s.author {
			return 0, errors.New("connection reset by peer")
		}
	}
	return s.ArticleStore.InsertArticles(ctx, articles)
}

func newTestStore(t *testing.T) *database.ArticleStore {
	t.Helper()

	db, err := database.NewConnection(database.SQLite, filepath.Join(t.TempDir(), "ingest.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	return database.NewArticleStore(db)
}

func newTestRunner(sources []feed.Source, fetcher Fetcher, store Store) *Runner {
	return NewRunner(sources, fetcher, content.NewExtractor(nil), store, Options{
		TitlePolicy: identity.TitleWhitespace,
		Now:         func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) },
	})
}

func testSource(name string) feed.Source {
	return feed.Source{Name: name, URL: "https://" + name + ".example/rss", Type: feed.SourceCompany}
}

func rawItem(link, title string) feed.RawItem {
	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return feed.RawItem{
		Link:        link,
		Title:       title,
		Description: "<p>" + title + " described at length for the summary</p>",
		PublishedAt: &published,
	}
}

func TestRunDetectsDuplicatesEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.InsertArticles(ctx, []database.NewArticle{{
		Title:       "Hello World",
		TitleKey:    identity.NormalizeTitle("Hello World", identity.TitleWhitespace),
		Author:      "A",
		SourceType:  "company",
		ExternalURL: "https://a.example/1",
		PublishedAt: time.Now(),
	}})
	require.NoError(t, err)

	fetcher := &fakeFetcher{items: map[string][]feed.RawItem{
		"A": {
			rawItem("https://a.example/1", "Hello World"),
			rawItem("https://a.example/1?utm_source=rss", "Hello World"),
			rawItem("https://a.example/2", "Brand New Post"),
		},
	}}

	summary, err := newTestRunner([]feed.Source{testSource("A")}, fetcher, store).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 2, summary.DuplicateReasons[dedup.ReasonURL])
	assert.InDelta(t, 2.0/3.0, summary.DuplicateRate(), 0.0001)

	count, err := store.GetArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunIsolatesFeedFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fetcher := &fakeFetcher{
		items: map[string][]feed.RawItem{
			"one":   {rawItem("https://one.example/post", "First feed post")},
			"three": {rawItem("https://three.example/post", "Third feed post")},
		},
		errs: map[string]error{"two": errors.New("connection refused")},
	}

	sources := []feed.Source{testSource("one"), testSource("two"), testSource("three")}
	summary, err := newTestRunner(sources, fetcher, store).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.FeedsProcessed)
	assert.Equal(t, 1, summary.FeedsFailed)
	assert.Equal(t, []string{"two"}, summary.FailedFeeds())
	assert.Equal(t, 2, summary.Inserted)
	require.Len(t, summary.Feeds, 3)
	assert.Equal(t, 0, summary.Feeds[1].Items)

	var fetchErr *feed.FetchError
	assert.ErrorAs(t, summary.Feeds[1].Err, &fetchErr)
}

func TestRunRecoversFromPanickingFeed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fetcher := &fakeFetcher{
		items: map[string][]feed.RawItem{
			"one":   {rawItem("https://one.example/post", "First feed post")},
			"three": {rawItem("https://three.example/post", "Third feed post")},
		},
		panics: map[string]bool{"two": true},
	}

	sources := []feed.Source{testSource("one"), testSource("two"), testSource("three")}
	summary, err := newTestRunner(sources, fetcher, store).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.FeedsProcessed)
	assert.Equal(t, 1, summary.FeedsFailed)
	assert.Equal(t, 2, summary.Inserted)
}

func TestRunAbortsWhenStoreUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]feed.RawItem{
		"one": {rawItem("https://one.example/post", "Post")},
	}}

	summary, err := newTestRunner([]feed.Source{testSource("one")}, fetcher, unavailableStore{}).Run(context.Background())

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Nil(t, summary)
	assert.Empty(t, fetcher.calls)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fetcher := &fakeFetcher{items: map[string][]feed.RawItem{
		"one": {
			rawItem("https://one.example/a/", "Post A"),
			rawItem("https://one.example/b?fbclid=xyz", "Post B"),
		},
		"two": {rawItem("https://two.example/c#comments", "Post C")},
	}}
	sources := []feed.Source{testSource("one"), testSource("two")}

	first, err := newTestRunner(sources, fetcher, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := newTestRunner(sources, fetcher, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Duplicates)
	assert.Equal(t, 3, second.DuplicateReasons[dedup.ReasonURL])

	keys, err := store.ListArticleKeys(ctx)
	require.NoError(t, err)
	for _, key := range keys {
		canonical, err := identity.NormalizeURL(key.ExternalURL)
		require.NoError(t, err)
		assert.Equal(t, canonical, key.ExternalURL)
	}
}

func TestRunPersistFailureZeroesOnlyThatFeed(t *testing.T) {
	ctx := context.Background()
	store := &rejectingStore{ArticleStore: newTestStore(t), author: "two"}

	fetcher := &fakeFetcher{items: map[string][]feed.RawItem{
		"one":   {rawItem("https://one.example/post", "First")},
		"two":   {rawItem("https://two.example/post", "Second"), rawItem("https://two.example/other", "Other")},
		"three": {rawItem("https://three.example/post", "Third")},
	}}

	sources := []feed.Source{testSource("one"), testSource("two"), testSource("three")}
	summary, err := newTestRunner(sources, fetcher, store).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.FeedsFailed)
	assert.Equal(t, 2, summary.Feeds[1].Accepted)
	assert.Equal(t, 0, summary.Feeds[1].Inserted)

	var persistErr *PersistError
	require.ErrorAs(t, summary.Feeds[1].Err, &persistErr)
	assert.Equal(t, "two", persistErr.Source)
}

func TestRunCatchesDuplicatesWithinRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fetcher := &fakeFetcher{items: map[string][]feed.RawItem{
		"one": {
			rawItem("https://one.example/post", "Shared Post"),
			rawItem("https://one.example/post-copy", "shared   post"),
		},
		"two": {rawItem("https://ONE.example/post/", "Syndicated copy")},
	}}

	sources := []feed.Source{testSource("one"), testSource("two")}
	summary, err := newTestRunner(sources, fetcher, store).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.DuplicateReasons[dedup.ReasonAuthorTitle])
	assert.Equal(t, 1, summary.DuplicateReasons[dedup.ReasonURL])
}

func TestRunHandlesMissingFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	updated := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{items: map[string][]feed.RawItem{
		"one": {
			{Title: "No link at all"},
			{Link: "https://one.example/untitled-1"},
			{Link: "https://one.example/untitled-2", UpdatedAt: &updated},
			{Link: "not a url", Title: "Broken link"},
		},
	}}

	summary, err := newTestRunner([]feed.Source{testSource("one")}, fetcher, store).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Items)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 2, summary.Inserted)

	page, err := store.ListArticles(ctx, database.ArticleQuery{SortBy: "published_at"})
	require.NoError(t, err)
	require.Len(t, page.Articles, 2)

	for _, a := range page.Articles {
		assert.Equal(t, UntitledTitle, a.Title)
		assert.Equal(t, "", a.Summary)
		assert.Nil(t, a.ThumbnailURL)
	}
	assert.True(t, page.Articles[0].PublishedAt.Equal(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, page.Articles[1].PublishedAt.Equal(updated))
}

func TestRunTitlePolicy(t *testing.T) {
	items := map[string][]feed.RawItem{
		"one": {
			rawItem("https://one.example/1", "Hello, World!"),
			rawItem("https://one.example/2", "Hello World"),
		},
	}

	tests := []struct {
		policy   identity.TitlePolicy
		inserted int
	}{
		{identity.TitleWhitespace, 2},
		{identity.TitleAlphanumeric, 1},
	}

	for _, test := range tests {
		t.Run(string(test.policy), func(t *testing.T) {
			runner := NewRunner([]feed.Source{testSource("one")}, &fakeFetcher{items: items},
				content.NewExtractor(nil), newTestStore(t), Options{TitlePolicy: test.policy})

			summary, err := runner.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, test.inserted, summary.Inserted)
		})
	}
}

func TestRunStopsOnCancellationBetweenFeeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newTestStore(t)
	fetcher := &fakeFetcher{items: map[string][]feed.RawItem{
		"one": {rawItem("https://one.example/post", "Post")},
		"two": {rawItem("https://two.example/post", "Post")},
	}}

	runner := NewRunner([]feed.Source{testSource("one"), testSource("two")}, fetcher, content.NewExtractor(nil), store,
		Options{FeedDelay: time.Hour})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	summary, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, []string{"one"}, fetcher.calls)
	assert.Equal(t, 1, summary.Inserted)
}

func TestRunPacesFeeds(t *testing.T) {
	store := newTestStore(t)
	fetcher := &fakeFetcher{}

	runner := NewRunner([]feed.Source{testSource("one"), testSource("two"), testSource("three")}, fetcher,
		content.NewExtractor(nil), store, Options{FeedDelay: 30 * time.Millisecond})

	started := time.Now()
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.FeedsProcessed)
	assert.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)
}
