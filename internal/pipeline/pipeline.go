package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nao1215/guildcrawl/internal/clock"
	"github.com/nao1215/guildcrawl/internal/crawler"
	"github.com/nao1215/guildcrawl/internal/model"
)

// Sink receives the guilds of one crawl.
type Sink interface {
	// Name returns the sink's name for logging purposes.
	Name() string

	// Open is called before the first page is fetched.
	Open(ctx context.Context, report *model.CrawlReport) error

	// Consume receives one emitted guild.
	Consume(ctx context.Context, g model.Guild) error

	// Close is called once the crawl has ended, with the report filled in.
	// It is called for every opened sink, whatever the outcome of the crawl.
	Close(ctx context.Context, report *model.CrawlReport) error
}

// PageSink is implemented by sinks that also want every fetched page.
type PageSink interface {
	ConsumePage(ctx context.Context, page model.Page) error
}

// StreamCrawler starts crawl streams. *crawler.Crawler implements it.
type StreamCrawler interface {
	Crawl(keyword string, opts ...crawler.CrawlOption) (*crawler.Stream, error)
}

// Pipeline runs one crawl into its sinks.
type Pipeline struct {
	crawler StreamCrawler
	sinks   []Sink
	clock   clock.Clock
	logger  *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithClock sets the clock used for the report's start and finish times.
func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// WithSinks adds sinks to the pipeline.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// New creates a new Pipeline crawling with c.
func New(c StreamCrawler, opts ...Option) *Pipeline {
	p := &Pipeline{
		crawler: c,
		sinks:   make([]Sink, 0),
		clock:   clock.System{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSink appends a sink. Sinks are opened and fed in the order they are added.
func (p *Pipeline) AddSink(s Sink) {
	p.sinks = append(p.sinks, s)
}

// SinkNames returns the names of all sinks in order.
func (p *Pipeline) SinkNames() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// Execute crawls report.Keyword and feeds the guilds to every sink.
//
// The report is filled in whatever happens. The returned error is the crawl
// error or the first sink error, joined with any errors from closing sinks.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport, opts ...crawler.CrawlOption) error {
	report.StartedAt = p.clock.Now()
	if report.CrawlID == "" {
		report.CrawlID = uuid.NewString()
	}
	logger := p.logger.With("keyword", report.Keyword, "crawl_id", report.CrawlID)

	// Page hooks cannot return errors, so the first failure is kept here and
	// checked after every pull.
	var pageErr error
	hook := func(page model.Page) {
		if pageErr != nil {
			return
		}
		for _, s := range p.sinks {
			ps, ok := s.(PageSink)
			if !ok {
				continue
			}
			if err := ps.ConsumePage(ctx, page); err != nil {
				pageErr = fmt.Errorf("sink %s: %w", s.Name(), err)
				return
			}
		}
	}

	stream, err := p.crawler.Crawl(report.Keyword, append(opts, crawler.OnPage(hook))...)
	if err != nil {
		p.fail(report, model.StopError, err)
		return err
	}

	opened := make([]Sink, 0, len(p.sinks))
	var runErr error
	for _, s := range p.sinks {
		if err := s.Open(ctx, report); err != nil {
			runErr = fmt.Errorf("sink %s: %w", s.Name(), err)
			break
		}
		opened = append(opened, s)
	}

	if runErr == nil {
		logger.Info("crawl started", "sinks", p.SinkNames())
		runErr = p.drain(ctx, stream, &pageErr)
	}
	_ = stream.Close() //nolint:errcheck // Close never fails

	stats := stream.Stats()
	report.Pages = stats.Pages
	report.Records = stats.Emitted
	report.StopReason = stats.StopReason
	if runErr != nil {
		if report.StopReason == model.StopClosed || report.StopReason == model.StopNone {
			report.StopReason = model.StopError
		}
		report.Error = runErr
		report.ErrorMessage = runErr.Error()
	}
	report.FinishedAt = p.clock.Now()

	var closeErrs []error
	for i := len(opened) - 1; i >= 0; i-- {
		if err := opened[i].Close(ctx, report); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("sink %s: %w", opened[i].Name(), err))
		}
	}

	if runErr != nil {
		logger.Error("crawl failed", "reason", report.StopReason, "records", report.Records, "error", runErr)
	} else {
		logger.Info("crawl completed", "reason", report.StopReason, "pages", report.Pages, "records", report.Records)
	}

	return errors.Join(append([]error{runErr}, closeErrs...)...)
}

// drain pulls every guild from stream into the sinks.
func (p *Pipeline) drain(ctx context.Context, stream *crawler.Stream, pageErr *error) error {
	for stream.Next(ctx) {
		if *pageErr != nil {
			return *pageErr
		}
		g := stream.Guild()
		for _, s := range p.sinks {
			if err := s.Consume(ctx, g); err != nil {
				return fmt.Errorf("sink %s: %w", s.Name(), err)
			}
		}
	}
	if *pageErr != nil {
		return *pageErr
	}
	return stream.Err()
}

// fail fills report for a crawl that could not start.
func (p *Pipeline) fail(report *model.CrawlReport, reason model.StopReason, err error) {
	report.StopReason = reason
	report.Error = err
	report.ErrorMessage = err.Error()
	report.FinishedAt = p.clock.Now()
	p.logger.Error("crawl could not start", "keyword", report.Keyword, "crawl_id", report.CrawlID, "error", err)
}
