package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/nao1215/guildcrawl/internal/clock"
	"github.com/nao1215/guildcrawl/internal/model"
)

// DefaultLocale is the directory locale used when none is configured.
const DefaultLocale = "fr"

// DefaultBaseURL is the directory origin.
const DefaultBaseURL = "https://disboard.org"

// Fetcher retrieves and extracts one search results page per call.
type Fetcher struct {
	transport Transport
	extractor *Extractor
	clock     clock.Clock
	locale    string
	baseURL   string
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClock sets the clock used for record timestamps.
func WithClock(c clock.Clock) Option {
	return func(f *Fetcher) {
		f.clock = c
	}
}

// WithLocale sets the locale path segment of the search URL.
func WithLocale(locale string) Option {
	return func(f *Fetcher) {
		if locale != "" {
			f.locale = locale
		}
	}
}

// WithBaseURL sets the origin profile and invite links are resolved against.
// It should match the transport's base URL.
func WithBaseURL(baseURL string) Option {
	return func(f *Fetcher) {
		if baseURL != "" {
			f.baseURL = baseURL
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher on top of transport.
func New(transport Transport, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		transport: transport,
		clock:     clock.System{},
		locale:    DefaultLocale,
		baseURL:   DefaultBaseURL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	extractor, err := NewExtractor(f.baseURL)
	if err != nil {
		return nil, err
	}
	f.extractor = extractor

	return f, nil
}

// FetchPage requests page (1-based) of the search results for keyword and
// extracts its guilds. It performs exactly one request.
func (f *Fetcher) FetchPage(ctx context.Context, keyword string, page int) (model.Page, error) {
	if page < 1 {
		return model.Page{}, fmt.Errorf("page index must be positive, got %d", page)
	}

	query := url.Values{}
	query.Set("keyword", keyword)
	query.Set("page", strconv.Itoa(page))

	body, err := f.transport.Get(ctx, "/"+f.locale+"/search", query)
	if err != nil {
		return model.Page{}, err
	}
	crawledAt := f.clock.Now()

	result, err := f.extractor.ExtractPage(bytes.NewReader(body), page, crawledAt)
	if err != nil {
		return model.Page{}, err
	}

	f.logger.Debug("page extracted",
		"keyword", keyword,
		"page", page,
		"guilds", result.Len(),
		"digest", result.Digest(),
	)

	return result, nil
}
