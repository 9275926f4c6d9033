package config

import (
	"time"

	"github.com/nao1215/guildcrawl/internal/model"
)

// KeywordConfig holds settings that can differ per search keyword.
type KeywordConfig struct {
	// Limit caps the number of guilds emitted for the keyword. Zero means no limit.
	Limit int `yaml:"limit,omitempty"`

	// Locale overrides the locale path segment for the keyword.
	Locale string `yaml:"locale,omitempty"`

	// Cookie is an HTTP cookie sent with requests for this keyword.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with requests for this keyword.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// CrawlSettings holds global transport and pacing settings of the file.
type CrawlSettings struct {
	BaseURL   string        `yaml:"baseURL,omitempty"`
	UserAgent string        `yaml:"userAgent,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	MinDelay  time.Duration `yaml:"minDelay,omitempty"`
	MaxDelay  time.Duration `yaml:"maxDelay,omitempty"`
	Proxy     string        `yaml:"proxy,omitempty"`
}

// File represents the structure of the .guildcrawl configuration file.
type File struct {
	// Crawl holds global transport and pacing settings.
	Crawl CrawlSettings `yaml:"crawl,omitempty"`

	// Defaults apply to every keyword unless overridden in Keywords.
	Defaults KeywordConfig `yaml:"defaults,omitempty"`

	// Keywords maps search keywords to their settings. Keys are matched
	// case-insensitively.
	Keywords map[string]KeywordConfig `yaml:"keywords,omitempty"`
}

// GetKeywordConfig returns the configuration for keyword, merging the
// keyword section over the defaults.
func (cf *File) GetKeywordConfig(keyword string) KeywordConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	override, ok := cf.lookup(keyword)
	if !ok {
		return result
	}

	if override.Limit > 0 {
		result.Limit = override.Limit
	}
	if override.Locale != "" {
		result.Locale = override.Locale
	}
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(override.Headers))
		}
		for k, v := range override.Headers {
			result.Headers[k] = v
		}
	}

	return result
}

// lookup finds the keyword section whose key folds to the same value as keyword.
func (cf *File) lookup(keyword string) (KeywordConfig, bool) {
	if kc, ok := cf.Keywords[keyword]; ok {
		return kc, true
	}
	key := model.KeywordKey(keyword)
	for k, kc := range cf.Keywords {
		if model.KeywordKey(k) == key {
			return kc, true
		}
	}
	return KeywordConfig{}, false
}
