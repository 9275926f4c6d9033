package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/nao1215/guildcrawl/internal/model"
)

// Stream is one crawl in progress. It is not safe for concurrent use.
type Stream struct {
	crawler *Crawler
	keyword string
	logger  *slog.Logger

	// limit is the maximum number of guilds to emit; zero means unlimited.
	limit int

	onPage func(model.Page)

	// index is the 1-based index of the page in current.
	index int

	// current is the page being emitted and pos the next position in it.
	current model.Page
	pos     int

	// previous is the last fully consumed page, compared against the next
	// one to detect stagnation.
	previous    model.Page
	hasPrevious bool

	guild   model.Guild
	done    bool
	reason  model.StopReason
	err     error
	emitted int
	pages   int
	delays  []time.Duration
}

// Stats describes the progress of a stream.
type Stats struct {
	// Keyword is the crawled keyword.
	Keyword string

	// Pages is the number of pages fetched.
	Pages int

	// Emitted is the number of guilds returned by Next.
	Emitted int

	// Delays holds every pause slept between two pages.
	Delays []time.Duration

	// StopReason is why the stream ended, or StopNone while it runs.
	StopReason model.StopReason
}

// Next advances to the next guild, fetching the following page when the
// buffered one is consumed. It returns false when the crawl has ended; Err
// then reports whether it ended because of a failure.
func (s *Stream) Next(ctx context.Context) bool {
	if s.done {
		return false
	}

	for {
		if s.pos < s.current.Len() {
			s.guild = s.current.Guilds[s.pos]
			s.pos++
			s.emitted++
			if s.limit > 0 && s.emitted >= s.limit {
				s.finish(model.StopLimit, nil)
			}
			return true
		}

		if s.pages > 0 {
			if !s.current.IsFull(s.crawler.pageSize) {
				s.finish(model.StopShortPage, nil)
				return false
			}

			d := s.crawler.nextDelay()
			s.logger.Debug("waiting before next page", "page", s.index+1, "delay", d)
			if err := s.crawler.sleeper.Sleep(ctx, d); err != nil {
				s.finish(model.StopCancelled, err)
				return false
			}
			s.delays = append(s.delays, d)

			s.previous = s.current
			s.hasPrevious = true
			s.index++
		}

		page, err := s.crawler.fetcher.FetchPage(ctx, s.keyword, s.index)
		if err != nil {
			reason := model.StopError
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				reason = model.StopCancelled
			}
			s.finish(reason, fmt.Errorf("failed to fetch page %d of %q: %w", s.index, s.keyword, err))
			return false
		}
		s.pages++
		if s.onPage != nil {
			s.onPage(page)
		}

		if s.hasPrevious && page.Equal(s.previous) {
			s.logger.Info("results page repeated", "page", s.index, "digest", page.Digest())
			s.finish(model.StopStagnation, nil)
			return false
		}

		s.logger.Debug("page fetched", "page", s.index, "guilds", page.Len())
		s.current = page
		s.pos = 0
	}
}

// Guild returns the guild produced by the last successful call to Next.
func (s *Stream) Guild() model.Guild {
	return s.guild
}

// Err returns the error that ended the stream, or nil if it ended normally
// or is still running.
func (s *Stream) Err() error {
	return s.err
}

// Close ends the stream. No request is made afterwards. Closing an ended
// stream keeps its original stop reason.
func (s *Stream) Close() error {
	if !s.done {
		s.finish(model.StopClosed, nil)
	}
	return nil
}

// StopReason returns why the stream ended, or StopNone while it runs.
func (s *Stream) StopReason() model.StopReason {
	return s.reason
}

// Stats returns a snapshot of the stream's progress.
func (s *Stream) Stats() Stats {
	delays := make([]time.Duration, len(s.delays))
	copy(delays, s.delays)
	return Stats{
		Keyword:    s.keyword,
		Pages:      s.pages,
		Emitted:    s.emitted,
		Delays:     delays,
		StopReason: s.reason,
	}
}

// All returns an iterator over the remaining guilds. A failure is yielded
// once as the final element with a zero Guild. Breaking out of the loop
// closes the stream.
func (s *Stream) All(ctx context.Context) iter.Seq2[model.Guild, error] {
	return func(yield func(model.Guild, error) bool) {
		for s.Next(ctx) {
			if !yield(s.guild, nil) {
				_ = s.Close() //nolint:errcheck // Close never fails
				return
			}
		}
		if s.err != nil {
			yield(model.Guild{}, s.err)
		}
	}
}

func (s *Stream) finish(reason model.StopReason, err error) {
	s.done = true
	s.reason = reason
	s.err = err
	s.current = model.Page{}
	s.pos = 0

	if err != nil {
		s.logger.Warn("crawl aborted", "reason", reason, "pages", s.pages, "emitted", s.emitted, "error", err)
		return
	}
	s.logger.Info("crawl finished", "reason", reason, "pages", s.pages, "emitted", s.emitted)
}
