// Package pipeline drives crawls into sinks.
//
// A Pipeline runs one keyword crawl: it opens every Sink, drains the crawl
// stream into them guild by guild, closes them and fills the CrawlReport.
// Sinks are always closed, also when the crawl or another sink fails, so the
// history database records aborted runs too.
//
// The BatchProcessor runs the pipelines of several keywords concurrently with
// errgroup and a concurrency limit. Each crawl itself stays sequential.
package pipeline
