// Package log builds the slog loggers used by guildcrawl.
//
// Loggers wrap their handler in a MaskingHandler, which hides values that
// must not end up in shared logs:
//   - Cookie, Authorization and similar header or attribute values
//   - Bearer and Basic credentials detected by pattern
//   - The user:password part of proxy and request URLs
//   - Sensitive entries inside http.Header attributes
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	logger.Debug("request", "url", u, "headers", req.Header)
//	slog.SetDefault(logger)
package log
