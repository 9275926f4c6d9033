package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/guildcrawl/internal/model"
)

// SummaryWriter writes crawl summaries as plain text for terminal display.
type SummaryWriter struct {
	baseWriter

	// verbose adds start and finish times.
	verbose bool
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSummary writes one section per crawl and a total line.
func (w *SummaryWriter) WriteSummary(reports []*model.CrawlReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	var total, failed int
	for _, r := range reports {
		w.writeCrawl(&sb, r)
		total += r.Records
		if r.Failed() {
			failed++
		}
	}

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Keywords: %d  Guilds: %d  Failed: %d\n", len(reports), total, failed)

	return w.output.Write([]byte(sb.String()))
}

func (w *SummaryWriter) writeCrawl(sb *strings.Builder, r *model.CrawlReport) {
	fmt.Fprintf(sb, "Keyword:  %s\n", r.Keyword)
	if r.RunID != 0 {
		fmt.Fprintf(sb, "Run:      #%d\n", r.RunID)
	}
	fmt.Fprintf(sb, "Pages:    %d\n", r.Pages)
	fmt.Fprintf(sb, "Guilds:   %d\n", r.Records)

	if r.Failed() {
		msg := r.ErrorMessage
		if msg == "" && r.Error != nil {
			msg = r.Error.Error()
		}
		fmt.Fprintf(sb, "Status:   ERROR (%s) - %s\n", r.StopReason, msg)
	} else {
		fmt.Fprintf(sb, "Status:   %s\n", stopText(r.StopReason))
	}

	if w.verbose {
		if r.CrawlID != "" {
			fmt.Fprintf(sb, "Crawl:    %s\n", r.CrawlID)
		}
		fmt.Fprintf(sb, "Started:  %s\n", r.StartedAt.Format(time.DateTime))
		fmt.Fprintf(sb, "Finished: %s\n", r.FinishedAt.Format(time.DateTime))
		fmt.Fprintf(sb, "Elapsed:  %s\n", r.Elapsed().Round(time.Second))
	}
	sb.WriteString("\n")
}

func stopText(reason model.StopReason) string {
	switch reason {
	case model.StopLimit:
		return "limit reached"
	case model.StopShortPage:
		return "end of results"
	case model.StopStagnation:
		return "end of results (page repeated)"
	case model.StopClosed:
		return "stopped"
	case model.StopCancelled:
		return "cancelled"
	default:
		return reason.String()
	}
}
