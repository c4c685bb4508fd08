package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maelcolin/fuseboard/internal/signal"
)

const fetchTestRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Wire</title>
    <item>
      <title>Profits surge at major banks</title>
      <link>http://example.com/1</link>
      <pubDate>Mon, 09 Feb 2026 08:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Committee schedules quarterly meeting</title>
      <link>http://example.com/2</link>
    </item>
    <item>
      <title>Retail sales fall as inflation bites</title>
      <link>http://example.com/3</link>
    </item>
  </channel>
</rss>`

func rssServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchConvertsHeadlinesToSignals(t *testing.T) {
	server := rssServer(t, fetchTestRSS)

	f := NewFetcher(5 * time.Second)
	sigs, err := f.Fetch(context.Background(), Feed{Name: "Test Wire", URL: server.URL, Topic: "market_news"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(sigs) != 2 {
		t.Fatalf("signals = %d, want 2", len(sigs))
	}
	for _, s := range sigs {
		if s.Source != signal.SourceRealtime {
			t.Errorf("source = %s, want realtime", s.Source)
		}
		if s.Topic != "market_news" {
			t.Errorf("topic = %s", s.Topic)
		}
		if s.Metadata["feed"] != "Test Wire" {
			t.Errorf("feed metadata = %v", s.Metadata["feed"])
		}
	}
}

func TestFetchRejectsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), Feed{Name: "Gone", URL: server.URL})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "HTTP error") {
		t.Errorf("err = %v", err)
	}
}

func TestFetchRejectsInvalidXML(t *testing.T) {
	server := rssServer(t, "this is not a feed")

	f := NewFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), Feed{Name: "Garbage", URL: server.URL}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFetchHonorsCancelledContext(t *testing.T) {
	server := rssServer(t, fetchTestRSS)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(5 * time.Second)
	if _, err := f.Fetch(ctx, Feed{Name: "Test Wire", URL: server.URL}); err == nil {
		t.Fatal("expected error under cancelled context")
	}
}

func TestFetchAllCollectsPerFeedErrors(t *testing.T) {
	good := rssServer(t, fetchTestRSS)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := NewFetcher(5 * time.Second)
	sigs, errs := f.FetchAll(context.Background(), []Feed{
		{Name: "Good Wire", URL: good.URL, Topic: "market_news"},
		{Name: "Bad Wire", URL: bad.URL, Topic: "market_news"},
	})

	if len(sigs) != 2 {
		t.Errorf("signals = %d, want 2 from the healthy feed", len(sigs))
	}
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
	if _, ok := errs["Bad Wire"]; !ok {
		t.Errorf("missing error for Bad Wire: %v", errs)
	}
}

func TestNewFetcherDefaultsTimeout(t *testing.T) {
	f := NewFetcher(0)
	if f.client.Timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", f.client.Timeout, defaultTimeout)
	}
}
