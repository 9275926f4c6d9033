// Package database provides SQLite-based crawl history for guildcrawl.
//
// This package implements the CrawlDB, which stores:
//   - crawl runs: one row per keyword crawl with its outcome
//   - crawl pages: the size and digest of every fetched page
//   - guild snapshots: every guild emitted by a run, in emission order
//
// The database uses modernc.org/sqlite, so the binary stays CGO-free, and
// runs in WAL mode. Runs are never merged: crawling the same keyword twice
// stores two independent snapshots, which the history command compares.
package database
