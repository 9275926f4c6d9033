package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/guildcrawl/internal/crawler"
	"github.com/nao1215/guildcrawl/internal/model"
)

// defaultConcurrency keeps keyword crawls sequential unless asked otherwise;
// every crawl targets the same site.
const defaultConcurrency = 1

// Job is one keyword crawl of a batch.
type Job struct {
	// Keyword is the search keyword.
	Keyword string

	// Limit is the maximum number of guilds; zero means unlimited.
	Limit int
}

// crawlOptions returns the crawler options of the job.
func (j Job) crawlOptions() []crawler.CrawlOption {
	if j.Limit == 0 {
		return nil
	}
	return []crawler.CrawlOption{crawler.WithLimit(j.Limit)}
}

// BatchProcessor crawls several keywords concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each job, so per-crawl
	// sinks such as DatabaseSink never leak between crawls.
	pipelineFactory func(job Job) *Pipeline

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values keep the default of one.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(job Job) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     defaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every job and returns one report per job, in job order.
//
// A failed crawl does not stop the others; its error is recorded in its
// report. The returned error is non-nil only when the context was cancelled.
// Jobs that never started because of cancellation have a nil report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*model.CrawlReport, error) {
	results := make([]*model.CrawlReport, len(jobs))
	err := bp.ProcessBatchWithCallback(ctx, jobs, func(report *model.CrawlReport, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback crawls every job and calls callback with each
// completed report and the index of its job. The callback runs on the
// crawl's goroutine and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []Job,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch",
		"keywords", len(jobs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewCrawlReport(job.Keyword)
			p := bp.pipelineFactory(job)
			if err := p.Execute(ctx, report, job.crawlOptions()...); err != nil {
				// Recorded in the report; other keywords keep going.
				bp.logger.Warn("keyword crawl failed", "keyword", job.Keyword, "index", i, "error", err)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch complete",
		"keywords", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return err
}
