package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/guildcrawl/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(Job) *Pipeline { return nil })
		if bp.concurrency != 1 {
			t.Errorf("expected default concurrency 1, got %d", bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(Job) *Pipeline { return nil }, WithConcurrency(5))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(Job) *Pipeline { return nil }, WithConcurrency(0))
		if bp.concurrency != 1 {
			t.Errorf("expected concurrency 1, got %d", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("reports in job order", func(t *testing.T) {
		t.Parallel()

		f := &pageFetcher{
			sizes: map[string][]int{"gaming": {24, 3}, "music": {5}, "anime": {24, 24, 1}},
			fail:  map[string]error{"broken": errors.New("503")},
		}
		c := newTestCrawler(t, f)
		bp := NewBatchProcessor(
			func(Job) *Pipeline { return New(c, WithLogger(quietLogger())) },
			WithConcurrency(3),
			WithBatchLogger(quietLogger()),
		)

		jobs := []Job{{Keyword: "gaming"}, {Keyword: "broken"}, {Keyword: "music"}, {Keyword: "anime", Limit: 30}}
		reports, err := bp.ProcessBatch(context.Background(), jobs)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}

		want := []struct {
			keyword string
			records int
			failed  bool
		}{
			{"gaming", 27, false},
			{"broken", 0, true},
			{"music", 5, false},
			{"anime", 30, false},
		}
		for i, w := range want {
			r := reports[i]
			if r == nil {
				t.Fatalf("report %d is nil", i)
			}
			if r.Keyword != w.keyword || r.Records != w.records || r.Failed() != w.failed {
				t.Errorf("report %d = %+v, want %+v", i, r, w)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		f := &blockingFetcher{current: &current, peak: &peak}
		c := newTestCrawler(t, f)
		bp := NewBatchProcessor(
			func(Job) *Pipeline { return New(c, WithLogger(quietLogger())) },
			WithConcurrency(2),
			WithBatchLogger(quietLogger()),
		)

		jobs := make([]Job, 6)
		for i := range jobs {
			jobs[i] = Job{Keyword: "kw"}
		}
		if _, err := bp.ProcessBatch(context.Background(), jobs); err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if got := peak.Load(); got > 2 {
			t.Errorf("peak concurrency = %d, want <= 2", got)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		f := &pageFetcher{sizes: map[string][]int{"gaming": {1}}}
		c := newTestCrawler(t, f)
		bp := NewBatchProcessor(
			func(Job) *Pipeline { return New(c, WithLogger(quietLogger())) },
			WithBatchLogger(quietLogger()),
		)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		reports, err := bp.ProcessBatch(ctx, []Job{{Keyword: "gaming"}, {Keyword: "gaming"}})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ProcessBatch() error = %v, want context.Canceled", err)
		}
		if reports[0] != nil || reports[1] != nil {
			t.Errorf("reports = %v, want none started", reports)
		}
	})

	t.Run("callback receives every report", func(t *testing.T) {
		t.Parallel()

		f := &pageFetcher{sizes: map[string][]int{"a": {1}, "b": {2}}}
		c := newTestCrawler(t, f)
		bp := NewBatchProcessor(
			func(Job) *Pipeline { return New(c, WithLogger(quietLogger())) },
			WithConcurrency(2),
			WithBatchLogger(quietLogger()),
		)

		var mu sync.Mutex
		got := map[int]string{}
		err := bp.ProcessBatchWithCallback(context.Background(), []Job{{Keyword: "a"}, {Keyword: "b"}},
			func(r *model.CrawlReport, i int) {
				mu.Lock()
				defer mu.Unlock()
				got[i] = r.Keyword
			})
		if err != nil {
			t.Fatalf("ProcessBatchWithCallback() error = %v", err)
		}
		if got[0] != "a" || got[1] != "b" {
			t.Errorf("callbacks = %v", got)
		}
	})
}

// blockingFetcher tracks how many fetches run at once.
type blockingFetcher struct {
	current *atomic.Int32
	peak    *atomic.Int32
}

func (b *blockingFetcher) FetchPage(_ context.Context, _ string, page int) (model.Page, error) {
	n := b.current.Add(1)
	defer b.current.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return model.Page{Index: page}, nil
}
