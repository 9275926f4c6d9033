package model

import "time"

// StopReason describes why a crawl stream ended.
type StopReason string

const (
	// StopNone means the crawl has not ended yet.
	StopNone StopReason = ""
	// StopLimit means the requested number of guilds was emitted.
	StopLimit StopReason = "limit"
	// StopShortPage means a page with fewer than a full page of listings was reached.
	StopShortPage StopReason = "short_page"
	// StopStagnation means the directory served the same page twice in a row.
	StopStagnation StopReason = "stagnation"
	// StopClosed means the consumer closed the stream before it ended.
	StopClosed StopReason = "closed"
	// StopError means a fetch failed and the crawl was aborted.
	StopError StopReason = "error"
	// StopCancelled means the context was cancelled during a fetch or delay.
	StopCancelled StopReason = "cancelled"
)

// IsNormal reports whether the reason is one of the natural completions
// of a crawl, as opposed to an abort.
func (r StopReason) IsNormal() bool {
	switch r {
	case StopLimit, StopShortPage, StopStagnation:
		return true
	default:
		return false
	}
}

// String returns the reason as stored in reports and the database.
func (r StopReason) String() string {
	if r == StopNone {
		return "running"
	}
	return string(r)
}

// CrawlReport summarizes one crawl invocation for a keyword.
type CrawlReport struct {
	// Keyword is the search keyword of the crawl.
	Keyword string `json:"keyword"`

	// CrawlID correlates the log lines and the stored run of one crawl.
	CrawlID string `json:"crawl_id"`

	// RunID is the database ID of the crawl run. Zero when not persisted.
	RunID int64 `json:"run_id,omitempty"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl ended.
	FinishedAt time.Time `json:"finished_at"`

	// Pages is the number of pages fetched.
	Pages int `json:"pages"`

	// Records is the number of guilds emitted to the consumer.
	Records int `json:"records"`

	// StopReason is why the crawl ended.
	StopReason StopReason `json:"stop_reason"`

	// Error is the error that aborted the crawl, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as text, kept for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCrawlReport creates a report for a crawl of keyword starting now.
func NewCrawlReport(keyword string) *CrawlReport {
	return &CrawlReport{
		Keyword:   keyword,
		StartedAt: time.Now(),
	}
}

// Elapsed returns the duration of the crawl. It is zero until the crawl finishes.
func (r *CrawlReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the crawl ended with an error.
func (r *CrawlReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}
