package crawler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/guildcrawl/internal/clock"
	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/model"
)

// PageFetcher retrieves one results page. *fetcher.Fetcher implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, keyword string, page int) (model.Page, error)
}

// Crawler creates crawl streams. It holds no per-crawl state, so one Crawler
// may serve several concurrent streams.
type Crawler struct {
	// fetcher performs the page requests.
	fetcher PageFetcher

	// minDelay and maxDelay bound the uniform random pause before every
	// page after the first. The interval is half-open: [minDelay, maxDelay).
	minDelay time.Duration
	maxDelay time.Duration

	// pageSize is the number of listings on a full page.
	pageSize int

	sleeper clock.Sleeper
	logger  *slog.Logger

	// randMu guards rng, which is shared by concurrent streams.
	randMu sync.Mutex
	rng    *rand.Rand
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDelayRange sets the bounds of the random pause between two page fetches.
func WithDelayRange(minDelay, maxDelay time.Duration) Option {
	return func(c *Crawler) {
		c.minDelay = minDelay
		c.maxDelay = maxDelay
	}
}

// WithPageSize sets the number of listings of a full page.
func WithPageSize(n int) Option {
	return func(c *Crawler) {
		c.pageSize = n
	}
}

// WithSleeper sets the sleeper used for the pause between pages.
func WithSleeper(s clock.Sleeper) Option {
	return func(c *Crawler) {
		c.sleeper = s
	}
}

// WithRand sets the random source of the pause durations.
func WithRand(r *rand.Rand) Option {
	return func(c *Crawler) {
		c.rng = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler fetching pages with f.
func New(f PageFetcher, opts ...Option) (*Crawler, error) {
	c := &Crawler{
		fetcher:  f,
		minDelay: config.DefaultMinDelay,
		maxDelay: config.DefaultMaxDelay,
		pageSize: model.FullPageSize,
		sleeper:  clock.System{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.minDelay < 0 || c.maxDelay < c.minDelay {
		return nil, config.NewConfigError("delay", config.ErrInvalidDelay)
	}
	if c.pageSize <= 0 {
		return nil, config.NewConfigError("page size", config.ErrInvalidPageSize)
	}
	if c.rng == nil {
		//nolint:gosec // pacing jitter, not security sensitive
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return c, nil
}

// crawlOptions holds per-crawl settings.
type crawlOptions struct {
	limit    int
	limitSet bool
	onPage   func(model.Page)
}

// CrawlOption configures a single crawl.
type CrawlOption func(*crawlOptions)

// WithLimit stops the crawl once n guilds have been emitted. n must be positive.
func WithLimit(n int) CrawlOption {
	return func(o *crawlOptions) {
		o.limit = n
		o.limitSet = true
	}
}

// OnPage registers fn to be called with every fetched page, including a
// repeated page that ends the crawl by stagnation. fn runs inside Next.
func OnPage(fn func(model.Page)) CrawlOption {
	return func(o *crawlOptions) {
		o.onPage = fn
	}
}

// Crawl prepares a crawl of the search results for keyword. No request is
// made until the first call to Stream.Next.
func (c *Crawler) Crawl(keyword string, opts ...CrawlOption) (*Stream, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, config.NewConfigError("keyword", config.ErrEmptyKeyword)
	}

	var o crawlOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.limitSet {
		if err := config.ValidateLimit(o.limit); err != nil {
			return nil, err
		}
	}

	return &Stream{
		crawler: c,
		keyword: keyword,
		limit:   o.limit,
		onPage:  o.onPage,
		index:   1,
		logger:  c.logger.With("keyword", keyword),
	}, nil
}

// nextDelay draws a pause duration in [minDelay, maxDelay).
func (c *Crawler) nextDelay() time.Duration {
	span := c.maxDelay - c.minDelay
	if span <= 0 {
		return c.minDelay
	}

	c.randMu.Lock()
	defer c.randMu.Unlock()
	return c.minDelay + time.Duration(c.rng.Int64N(int64(span)))
}
