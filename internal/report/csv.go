package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/guildcrawl/internal/model"
)

// CSVWriter writes one positional row per guild, in model.FieldNames order.
// Without a header every line is a positional guild row.
type CSVWriter struct {
	csv *csv.Writer

	// header enables a first row with the column names.
	header      bool
	wroteHeader bool
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithHeader writes the column names before the first row.
func WithHeader(enabled bool) CSVWriterOption {
	return func(w *CSVWriter) {
		w.header = enabled
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{csv: csv.NewWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteGuild writes g as one row.
func (w *CSVWriter) WriteGuild(g model.Guild) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.csv.Write(g.Fields())
}

// Flush flushes buffered rows. An empty crawl still gets its header.
func (w *CSVWriter) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

func (w *CSVWriter) writeHeader() error {
	if !w.header || w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	return w.csv.Write(model.FieldNames)
}
