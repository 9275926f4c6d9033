package crawler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/guildcrawl/internal/clock"
	"github.com/nao1215/guildcrawl/internal/crawler"
	"github.com/nao1215/guildcrawl/internal/fetcher"
	"github.com/nao1215/guildcrawl/internal/model"
)

// resultsBody renders count listings with IDs starting at first and online
// counts starting at online.
func resultsBody(first, count, online int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><div class="columns is-multiline">`)
	for i := range count {
		id := first + i
		fmt.Fprintf(&b, `<div class="column is-one-third-desktop is-half-tablet">`+
			`<div class="server-icon"><a href="/server/%d"><img alt="Guild %d" src="https://cdn.example.com/%d.png"></a></div>`+
			`<span class="server-online">%d</span>`+
			`<div class="server-join"><a href="/server/join/%d" data-id="%d">Join</a></div>`+
			`</div>`, id, id, id, online+i, id, id)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// newHTTPCrawler wires the real transport and fetcher to a crawler. The
// fake clock stamps records and absorbs the pauses, so every page carries
// a later timestamp than the one before it.
func newHTTPCrawler(t *testing.T, serverURL string) *crawler.Crawler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fake := clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	transport, err := fetcher.NewHTTPTransport(serverURL, fetcher.WithTransportLogger(logger))
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	f, err := fetcher.New(transport,
		fetcher.WithBaseURL(serverURL),
		fetcher.WithClock(fake),
		fetcher.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}
	c, err := crawler.New(f,
		crawler.WithDelayRange(6*time.Second, 9*time.Second),
		crawler.WithSleeper(fake),
		crawler.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("crawler.New() error = %v", err)
	}
	return c
}

func TestCrawlOverHTTP(t *testing.T) {
	t.Parallel()

	t.Run("same page served twice stops by stagnation", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32
		body := resultsBody(1000, model.FullPageSize, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests.Add(1)
			_, _ = io.WriteString(w, body) //nolint:errcheck // test server
		}))
		defer server.Close()

		s, err := newHTTPCrawler(t, server.URL).Crawl("gaming")
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		emitted := 0
		for s.Next(context.Background()) {
			emitted++
		}
		if err := s.Err(); err != nil {
			t.Fatalf("Err() = %v", err)
		}
		if emitted != model.FullPageSize {
			t.Errorf("emitted %d guilds, want %d", emitted, model.FullPageSize)
		}
		if got := requests.Load(); got != 2 {
			t.Errorf("requests = %d, want 2", got)
		}
		if s.StopReason() != model.StopStagnation {
			t.Errorf("StopReason() = %v, want stagnation", s.StopReason())
		}
	})

	t.Run("changed online count is a new page", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			// Pages 1 and 2 list the same servers with different online counts.
			var body string
			switch requests.Add(1) {
			case 1:
				body = resultsBody(1000, model.FullPageSize, 1)
			case 2:
				body = resultsBody(1000, model.FullPageSize, 50)
			default:
				body = resultsBody(1000, 0, 1)
			}
			_, _ = io.WriteString(w, body) //nolint:errcheck // test server
		}))
		defer server.Close()

		s, err := newHTTPCrawler(t, server.URL).Crawl("gaming")
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		emitted := 0
		for s.Next(context.Background()) {
			emitted++
		}
		if emitted != 2*model.FullPageSize {
			t.Errorf("emitted %d guilds, want %d", emitted, 2*model.FullPageSize)
		}
		if got := requests.Load(); got != 3 {
			t.Errorf("requests = %d, want 3", got)
		}
		if s.StopReason() != model.StopShortPage {
			t.Errorf("StopReason() = %v, want short page", s.StopReason())
		}
	})
}
