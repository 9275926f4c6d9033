package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nao1215/guildcrawl/internal/clock"
	"github.com/nao1215/guildcrawl/internal/database"
	"github.com/nao1215/guildcrawl/internal/model"
	"github.com/nao1215/guildcrawl/internal/report"
)

// WriterSink writes guilds to a report.Writer. It does not flush the writer:
// writers shared by a batch are flushed once by their owner.
type WriterSink struct {
	w report.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w report.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Name implements Sink.
func (s *WriterSink) Name() string { return "writer" }

// Open implements Sink.
func (s *WriterSink) Open(context.Context, *model.CrawlReport) error { return nil }

// Consume implements Sink.
func (s *WriterSink) Consume(_ context.Context, g model.Guild) error {
	return s.w.WriteGuild(g)
}

// Close implements Sink.
func (s *WriterSink) Close(context.Context, *model.CrawlReport) error { return nil }

// HistoryStore is the part of the crawl history the DatabaseSink writes to.
// *database.CrawlDB implements it.
type HistoryStore interface {
	BeginRun(ctx context.Context, run database.NewRun) (int64, error)
	SavePage(ctx context.Context, runID int64, page model.Page, fetchedAt time.Time) error
	SaveGuild(ctx context.Context, runID int64, position int, g model.Guild) error
	FinishRun(ctx context.Context, report *model.CrawlReport) error
}

// DatabaseSink records a crawl run in the history database.
// A DatabaseSink serves one crawl; create one per pipeline.
type DatabaseSink struct {
	store    HistoryStore
	locale   string
	limit    int
	clock    clock.Clock
	runID    int64
	position int
}

// NewDatabaseSink creates a sink recording into store.
func NewDatabaseSink(store HistoryStore, locale string, limit int) *DatabaseSink {
	return &DatabaseSink{
		store:  store,
		locale: locale,
		limit:  limit,
		clock:  clock.System{},
	}
}

// Name implements Sink.
func (s *DatabaseSink) Name() string { return "database" }

// Open starts a run and stores its ID in the report.
func (s *DatabaseSink) Open(ctx context.Context, r *model.CrawlReport) error {
	id, err := s.store.BeginRun(ctx, database.NewRun{
		CrawlID:   r.CrawlID,
		Keyword:   r.Keyword,
		Locale:    s.locale,
		Limit:     s.limit,
		StartedAt: r.StartedAt,
	})
	if err != nil {
		return err
	}
	s.runID = id
	s.position = 0
	r.RunID = id
	return nil
}

// ConsumePage implements PageSink.
func (s *DatabaseSink) ConsumePage(ctx context.Context, page model.Page) error {
	return s.store.SavePage(ctx, s.runID, page, s.clock.Now())
}

// Consume implements Sink.
func (s *DatabaseSink) Consume(ctx context.Context, g model.Guild) error {
	if err := s.store.SaveGuild(ctx, s.runID, s.position, g); err != nil {
		return err
	}
	s.position++
	return nil
}

// Close stores the outcome of the run. The run is finished with a fresh
// context so that a cancelled crawl is still recorded.
func (s *DatabaseSink) Close(ctx context.Context, r *model.CrawlReport) error {
	return s.store.FinishRun(context.WithoutCancel(ctx), r)
}

// ProgressSink prints one line per guild, for interactive use.
// One ProgressSink may be shared by concurrent pipelines.
type ProgressSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *ProgressSink) printf(format string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, format, args...)
	return err
}

// NewProgressSink creates a sink printing to out.
func NewProgressSink(out io.Writer) *ProgressSink {
	return &ProgressSink{out: out}
}

// Name implements Sink.
func (s *ProgressSink) Name() string { return "progress" }

// Open implements Sink.
func (s *ProgressSink) Open(_ context.Context, r *model.CrawlReport) error {
	return s.printf("Fetching guilds for %q...\n", r.Keyword)
}

// Consume implements Sink.
func (s *ProgressSink) Consume(_ context.Context, g model.Guild) error {
	return s.printf("Writing guild %q (%d)\n", g.Name, g.ID)
}

// Close implements Sink.
func (s *ProgressSink) Close(_ context.Context, r *model.CrawlReport) error {
	return s.printf("Done: %d guild(s) for %q\n", r.Records, r.Keyword)
}
