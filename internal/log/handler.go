package log

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces sensitive values in log output.
const MaskValue = "***REDACTED***"

// maskedKeys are attribute and header names whose values are always masked.
var maskedKeys = map[string]bool{
	"cookie":              true,
	"set-cookie":          true,
	"authorization":       true,
	"proxy-authorization": true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"password":            true,
	"token":               true,
	"session":             true,
}

// maskedKeywords mask any key that contains them, e.g. "session_cookie".
var maskedKeywords = []string{"cookie", "password", "passwd", "secret", "token", "auth"}

// credentialPatterns match values that are credentials whatever their key.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
}

// MaskingHandler wraps an slog.Handler and masks sensitive attribute values
// before they reach it.
type MaskingHandler struct {
	handler slog.Handler
}

// NewMaskingHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewMaskingHandler(handler slog.Handler) *MaskingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &MaskingHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *MaskingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs masks attrs and returns a handler that includes them.
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &MaskingHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{handler: h.handler.WithGroup(name)}
}

func maskAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		masked := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			masked[i] = maskAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case http.Header:
			return slog.Attr{Key: a.Key, Value: headerValue(v)}
		case *url.URL:
			if v != nil {
				return slog.String(a.Key, redactURL(v))
			}
		}
	}

	if isMaskedKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		if isCredential(s) {
			return slog.String(a.Key, MaskValue)
		}
		if strings.Contains(s, "@") && strings.Contains(s, "://") {
			if u, err := url.Parse(s); err == nil && u.User != nil {
				return slog.String(a.Key, redactURL(u))
			}
		}
	}

	return a
}

// headerValue renders an http.Header as a group with masked entries.
func headerValue(h http.Header) slog.Value {
	attrs := make([]slog.Attr, 0, len(h))
	for name, values := range h {
		v := strings.Join(values, ", ")
		if isMaskedKey(name) || isCredential(v) {
			v = MaskValue
		}
		attrs = append(attrs, slog.String(name, v))
	}
	return slog.GroupValue(attrs...)
}

// redactURL hides the password of a URL's userinfo.
func redactURL(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	return u.Redacted()
}

func isMaskedKey(key string) bool {
	k := strings.ToLower(key)
	if maskedKeys[k] {
		return true
	}
	for _, kw := range maskedKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

func isCredential(value string) bool {
	for _, p := range credentialPatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// NewLogger creates a masking logger writing to w.
// Verbose enables debug output; otherwise only warnings and errors are shown.
// jsonOutput selects the JSON handler instead of the text handler.
func NewLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewMaskingHandler(handler))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
