package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/guildcrawl/internal/model"
)

// JSONWriter writes guilds as JSON lines: one compact object per line, so
// the output can be streamed and appended to.
type JSONWriter struct {
	baseWriter
	enc *json.Encoder
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	enc := json.NewEncoder(output)
	enc.SetEscapeHTML(false)
	return &JSONWriter{
		baseWriter: newBaseWriter(output),
		enc:        enc,
	}
}

// WriteGuild writes g followed by a newline.
func (w *JSONWriter) WriteGuild(g model.Guild) error {
	return w.enc.Encode(jsonGuild{Guild: g, CreatedAt: g.CreatedAt().Unix()})
}

// Flush is a no-op; every guild is written immediately.
func (w *JSONWriter) Flush() error {
	return nil
}

// jsonGuild adds derived fields to the serialized guild.
type jsonGuild struct {
	model.Guild

	// CreatedAt is the server creation time decoded from the ID, in seconds.
	CreatedAt int64 `json:"created_at"`
}
