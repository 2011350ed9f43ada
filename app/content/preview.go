package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
)

const maxPageSize = 2 << 20

var ErrDisallowed = errors.New("disallowed by robots.txt")

// Preview is what an article page contributes when the feed itself lacked it.
type Preview struct {
	ImageURL string
	Text     string
}

// Previewer fetches article pages politely: robots.txt is honored per host and
// requests to one host are spaced by the rate limiter.
type Previewer struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	limiter    *HostLimiter

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

func NewPreviewer(httpClient *http.Client, userAgent string, timeout time.Duration, limiter *HostLimiter) *Previewer {
	return &Previewer{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
		limiter:    limiter,
		robots:     make(map[string]*robotstxt.RobotsData),
	}
}

func (p *Previewer) Preview(ctx context.Context, pageURL string) (*Preview, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid page URL: %s", pageURL)
	}

	allowed, err := p.allowed(ctx, u)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrDisallowed
	}

	body, status, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", status)
	}

	preview := &Preview{}

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		preview.ImageURL = OgImageURL(doc, u.Scheme+"://"+u.Host)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err == nil {
		var text strings.Builder
		if err := article.RenderText(&text); err == nil {
			preview.Text = CleanText(text.String())
		}
	}

	return preview, nil
}

// allowed consults the host's robots.txt, fetched once per host. A missing or
// unreachable robots.txt allows everything.
func (p *Previewer) allowed(ctx context.Context, u *url.URL) (bool, error) {
	p.mu.Lock()
	data, cached := p.robots[u.Host]
	p.mu.Unlock()

	if !cached {
		robotsURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}
		body, status, err := p.get(ctx, robotsURL)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			slog.Debug("robots.txt unavailable", "host", u.Host, "error", err)
			status, body = http.StatusNotFound, nil
		}

		data, err = robotstxt.FromStatusAndBytes(status, body)
		if err != nil {
			slog.Debug("robots.txt unparsable", "host", u.Host, "error", err)
			data, _ = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
		}

		p.mu.Lock()
		p.robots[u.Host] = data
		p.mu.Unlock()
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, p.userAgent), nil
}

func (p *Previewer) get(ctx context.Context, u *url.URL) ([]byte, int, error) {
	if err := p.limiter.Wait(ctx, u.Host); err != nil {
		return nil, 0, err
	}
	target := u.String()

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.StatusCode, nil
}
