package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/guildcrawl/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "guildcrawl"

	// DefaultBaseURL is the directory the crawler talks to.
	DefaultBaseURL = "https://disboard.org"

	// DefaultLocale is the locale path segment of the search page.
	DefaultLocale = "fr"

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 30 * time.Second

	// DefaultMinDelay and DefaultMaxDelay bound the random pause between two
	// page fetches. The pause is drawn uniformly from [min, max) so requests
	// do not follow a fixed cadence.
	DefaultMinDelay = 6 * time.Second
	DefaultMaxDelay = 9 * time.Second

	// DefaultPageSize is the number of listings on a full results page.
	DefaultPageSize = model.FullPageSize

	// DefaultBatchSize is the number of keywords crawled at the same time.
	// Each keyword's crawl is sequential regardless of this value.
	DefaultBatchSize = 1

	// DefaultUserAgent identifies guildcrawl in HTTP requests.
	DefaultUserAgent = "guildcrawl/1.0 (+https://github.com/nao1215/guildcrawl)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultFormat is the output format when none is given.
	DefaultFormat = FormatCSV
)

// Format is an output format for crawled guilds.
type Format string

const (
	// FormatCSV writes one positional row per guild.
	FormatCSV Format = "csv"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
	// FormatMarkdown writes a Markdown table.
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts a user supplied format name into a Format.
// "md" and "jsonl" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json", "jsonl":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", NewConfigError("format", ErrInvalidFormat)
	}
}

// Config holds all configuration options for guildcrawl.
// It is populated from defaults, the optional configuration file and CLI
// flags, in that order, and passed down explicitly.
type Config struct {
	// BaseURL is the scheme and host of the directory.
	BaseURL string

	// Locale is the locale path segment of the search page (e.g. "fr").
	Locale string

	// LocaleFromFlag marks Locale as set on the command line. It then wins
	// over the locale of the file's defaults and keyword sections.
	LocaleFromFlag bool

	// Timeout bounds each page request.
	Timeout time.Duration

	// MinDelay and MaxDelay bound the random pause between page fetches.
	MinDelay time.Duration
	MaxDelay time.Duration

	// PageSize is the number of listings on a full page. A shorter page ends the crawl.
	PageSize int

	// Limit caps the number of guilds emitted per keyword. Zero means no limit.
	Limit int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// BatchSize is the number of keywords crawled concurrently.
	BatchSize int

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string

	// KeywordConfigs holds the configuration file contents.
	KeywordConfigs *File

	// Format is the output format.
	Format Format

	// OutputFile is the path the results are written to.
	OutputFile string

	// CSVHeader writes a header row before CSV output.
	CSVHeader bool

	// Keywords are the search keywords to crawl.
	Keywords []string

	// DBDir is the directory of the crawl history database.
	DBDir string

	// SaveToDB records every crawl in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Locale:      DefaultLocale,
		Timeout:     DefaultTimeout,
		MinDelay:    DefaultMinDelay,
		MaxDelay:    DefaultMaxDelay,
		PageSize:    DefaultPageSize,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		BatchSize:   DefaultBatchSize,
		Format:      DefaultFormat,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for guildcrawl.
// On Linux: ~/.local/share/guildcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for guildcrawl.
// On Linux: ~/.config/guildcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found
// as a *ConfigError.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return NewConfigError("keyword", ErrNoKeyword)
	}
	for _, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return NewConfigError("keyword", ErrEmptyKeyword)
		}
	}

	if c.Limit < 0 {
		return NewConfigError("limit", ErrInvalidLimit)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewConfigError("base URL", ErrInvalidBaseURL)
	}

	if c.Locale == "" || strings.ContainsAny(c.Locale, "/?#") {
		return NewConfigError("locale", ErrInvalidLocale)
	}

	if c.Timeout <= 0 {
		return NewConfigError("timeout", ErrInvalidTimeout)
	}

	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return NewConfigError("delay", ErrInvalidDelay)
	}

	if c.PageSize <= 0 {
		return NewConfigError("page size", ErrInvalidPageSize)
	}

	if c.BatchSize <= 0 {
		return NewConfigError("batch size", ErrInvalidBatchSize)
	}

	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}

	if c.OutputFile == "" {
		return NewConfigError("output", ErrNoOutput)
	}

	if c.MaxBodySize < 0 {
		return NewConfigError("max body size", ErrInvalidMaxBodySize)
	}

	return nil
}

// ApplyFile copies the crawl settings of a configuration file into c.
// Only values set in the file are applied. CLI flags are applied afterwards
// by the caller and therefore win.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.KeywordConfigs = f

	s := f.Crawl
	if s.BaseURL != "" {
		c.BaseURL = s.BaseURL
	}
	if s.UserAgent != "" {
		c.UserAgent = s.UserAgent
	}
	if s.Timeout > 0 {
		c.Timeout = s.Timeout
	}
	if s.MinDelay > 0 {
		c.MinDelay = s.MinDelay
	}
	if s.MaxDelay > 0 {
		c.MaxDelay = s.MaxDelay
	}
	if s.Proxy != "" {
		c.ProxyAddress = s.Proxy
	}
	if f.Defaults.Locale != "" {
		c.Locale = f.Defaults.Locale
	}
}

// ForKeyword returns the effective settings for one keyword: the file's
// defaults and keyword section merged, with the global limit and locale
// used where the file sets none. A limit or locale given on the command
// line always wins.
func (c *Config) ForKeyword(keyword string) KeywordConfig {
	var kc KeywordConfig
	if c.KeywordConfigs != nil {
		kc = c.KeywordConfigs.GetKeywordConfig(keyword)
	}
	if c.Limit > 0 {
		kc.Limit = c.Limit
	}
	if c.LocaleFromFlag || kc.Locale == "" {
		kc.Locale = c.Locale
	}
	return kc
}
