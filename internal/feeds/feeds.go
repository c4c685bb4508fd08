// Package feeds polls financial news RSS feeds and converts headlines into
// weak realtime signals for fusion. A headline only becomes a signal when
// its wording leans clearly positive or negative; neutral headlines are
// dropped at the source.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/maelcolin/fuseboard/internal/logging"
	"github.com/maelcolin/fuseboard/internal/signal"
)

// Feed is one RSS source and the fusion topic its headlines feed into.
type Feed struct {
	Name  string
	URL   string
	Topic string
}

const (
	defaultTimeout       = 30 * time.Second
	maxConcurrentFetches = 4

	// One request per 500ms across all feeds keeps us polite with
	// publishers even when many feeds are configured.
	fetchInterval = 500 * time.Millisecond
)

// Fetcher retrieves feeds over HTTP and parses them. Goroutine-safe; the
// shared limiter paces requests across concurrent fetches.
type Fetcher struct {
	client  *http.Client
	parser  *gofeed.Parser
	limiter *rate.Limiter
	now     func() time.Time
}

// NewFetcher creates a Fetcher with the given HTTP timeout. A
// non-positive timeout falls back to 30s.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		parser:  gofeed.NewParser(),
		limiter: rate.NewLimiter(rate.Every(fetchInterval), 1),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Fetch pulls one feed and converts its entries to signals. Respects
// context cancellation both while waiting on the rate limiter and during
// the request itself.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) ([]signal.Signal, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "fuseboard/0.1 (+https://github.com/maelcolin/fuseboard)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error from %s: %d %s", feed.Name, resp.StatusCode, resp.Status)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", feed.Name, err)
	}

	return signalsFromFeed(feed, parsed, f.now()), nil
}

// FetchAll polls every feed concurrently and merges the resulting signals.
// Per-feed failures are collected by feed name rather than aborting the
// batch, so one dead feed cannot starve a refresh cycle.
func (f *Fetcher) FetchAll(ctx context.Context, list []Feed) ([]signal.Signal, map[string]error) {
	perFeed := make([][]signal.Signal, len(list))
	errs := make([]error, len(list))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, feed := range list {
		i, feed := i, feed
		g.Go(func() error {
			sigs, err := f.Fetch(ctx, feed)
			if err != nil {
				logging.Debug("feed fetch failed", "feed", feed.Name, "error", err)
				errs[i] = err
				return nil
			}
			perFeed[i] = sigs
			return nil
		})
	}
	_ = g.Wait()

	var out []signal.Signal
	failed := make(map[string]error)
	for i := range list {
		out = append(out, perFeed[i]...)
		if errs[i] != nil {
			failed[list[i].Name] = errs[i]
		}
	}
	return out, failed
}
