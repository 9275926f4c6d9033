package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/guildcrawl/internal/model"
)

// Run is a stored crawl run.
type Run struct {
	// ID is the unique identifier of the run.
	ID int64

	// CrawlID is the correlation ID of the crawl that produced the run.
	CrawlID string

	// Keyword is the keyword as typed by the user.
	Keyword string

	// Locale is the directory locale the run crawled.
	Locale string

	// Limit is the requested guild limit; zero means unlimited.
	Limit int

	// StartedAt and FinishedAt bound the run. FinishedAt is zero for a run
	// that never finished (for example, the process was killed).
	StartedAt  time.Time
	FinishedAt time.Time

	// Pages is the number of fetched pages.
	Pages int

	// Records is the number of emitted guilds.
	Records int

	// StopReason is why the crawl ended.
	StopReason model.StopReason

	// Error is the error message of a failed run.
	Error string
}

// Finished reports whether FinishRun was called for the run.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// NewRun describes a run to record with BeginRun.
type NewRun struct {
	CrawlID   string
	Keyword   string
	Locale    string
	Limit     int
	StartedAt time.Time
}

// BeginRun inserts a run and returns its ID.
func (cdb *CrawlDB) BeginRun(ctx context.Context, run NewRun) (int64, error) {
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	query := `
	INSERT INTO crawl_runs (crawl_id, keyword, keyword_key, locale, limit_count, started_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := cdb.db.ExecContext(ctx, query,
		run.CrawlID,
		run.Keyword,
		model.KeywordKey(run.Keyword),
		run.Locale,
		run.Limit,
		formatTimestamp(started),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl run: %w", err)
	}

	return result.LastInsertId()
}

// FinishRun stores the outcome of the crawl described by report.
func (cdb *CrawlDB) FinishRun(ctx context.Context, report *model.CrawlReport) error {
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	errMsg := report.ErrorMessage
	if errMsg == "" && report.Error != nil {
		errMsg = report.Error.Error()
	}

	query := `
	UPDATE crawl_runs
	SET finished_at = ?, pages = ?, records = ?, stop_reason = ?, error = ?
	WHERE id = ?
	`

	result, err := cdb.db.ExecContext(ctx, query,
		formatTimestamp(finished),
		report.Pages,
		report.Records,
		string(report.StopReason),
		errMsg,
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, report.RunID)
	}

	return nil
}

// runColumns is the column list scanned by scanRun.
const runColumns = `id, crawl_id, keyword, locale, limit_count, started_at, finished_at, pages, records, stop_reason, error`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	var reason string

	err := s.Scan(
		&run.ID,
		&run.CrawlID,
		&run.Keyword,
		&run.Locale,
		&run.Limit,
		&started,
		&finished,
		&run.Pages,
		&run.Records,
		&reason,
		&run.Error,
	)
	if err != nil {
		return Run{}, err
	}

	run.StartedAt = parseTimestamp(started)
	if finished.Valid {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	run.StopReason = model.StopReason(reason)

	return run, nil
}

// GetRun retrieves a run by ID. It returns nil, nil if the run does not exist.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs WHERE id = ?`

	run, err := scanRun(cdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	return &run, nil
}

// ListRuns returns the runs of keyword, newest first. Keywords match
// case-insensitively. An empty keyword lists every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, keyword string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs`
	args := make([]any, 0, 1)

	if keyword != "" {
		query += " WHERE keyword_key = ?"
		args = append(args, model.KeywordKey(keyword))
	}
	query += " ORDER BY id DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// KeywordSummary aggregates the runs of one keyword.
type KeywordSummary struct {
	// Keyword is the spelling used by the most recent run.
	Keyword string

	// Runs is the number of stored runs.
	Runs int

	// LastRunAt is the start time of the most recent run.
	LastRunAt time.Time
}

// ListKeywords returns every crawled keyword, alphabetically by folded key.
func (cdb *CrawlDB) ListKeywords(ctx context.Context) ([]KeywordSummary, error) {
	query := `
	SELECT
		(SELECT r2.keyword FROM crawl_runs r2
		 WHERE r2.keyword_key = r.keyword_key
		 ORDER BY r2.id DESC LIMIT 1),
		COUNT(*),
		MAX(r.started_at)
	FROM crawl_runs r
	GROUP BY r.keyword_key
	ORDER BY r.keyword_key
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []KeywordSummary
	for rows.Next() {
		var ks KeywordSummary
		var last string
		if err := rows.Scan(&ks.Keyword, &ks.Runs, &last); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		ks.LastRunAt = parseTimestamp(last)
		keywords = append(keywords, ks)
	}

	return keywords, rows.Err()
}
