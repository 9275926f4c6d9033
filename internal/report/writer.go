package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nao1215/guildcrawl/internal/model"
)

// ErrUnknownFormat is returned by New for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer consumes guilds as they are emitted by a crawl.
//
// WriteGuild may buffer. Flush must be called once after the last guild;
// writers that render a document (Markdown) emit everything on Flush.
type Writer interface {
	WriteGuild(g model.Guild) error
	Flush() error
}

// Format names a guild output format.
type Format string

// Supported formats.
const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// New creates a writer of the given format on output.
func New(format Format, output io.Writer, header bool) (Writer, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatCSV, "":
		return NewCSVWriter(output, WithHeader(header)), nil
	case FormatJSON:
		return NewJSONWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers.
//
// Our Writer interface writes guilds, not bytes, so io.MultiWriter does not apply.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteGuild writes g to every writer, stopping on the first error.
func (m *MultiWriter) WriteGuild(g model.Guild) error {
	for _, w := range m.writers {
		if err := w.WriteGuild(g); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every writer and returns all errors joined.
func (m *MultiWriter) Flush() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncWriter serializes access to a Writer shared by concurrent crawls.
// Guilds of one WriteGuild call are never interleaved with another's.
type SyncWriter struct {
	mu sync.Mutex
	w  Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

// WriteGuild implements Writer.
func (s *SyncWriter) WriteGuild(g model.Guild) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteGuild(g)
}

// Flush implements Writer.
func (s *SyncWriter) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
