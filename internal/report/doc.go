// Package report writes crawled guilds and crawl summaries.
//
// Guild writers implement Writer and accept one guild at a time as the crawl
// produces them:
//   - CSVWriter: positional rows, the classic output of the tool
//   - JSONWriter: one JSON object per line
//   - MarkdownWriter: a table rendered when the writer is flushed
//
// SummaryWriter renders CrawlReports as plain text for the terminal.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter. Wrap a writer shared by
// concurrent crawls in a SyncWriter.
package report
