// Package fetcher implements the page fetcher: one search results page in,
// one ordered model.Page out.
//
// # Components
//
//   - Transport: performs the GET request. HTTPTransport is the net/http
//     implementation with header injection, body size limits and an optional
//     SOCKS5 proxy.
//   - Extractor: parses the listing markup with golang.org/x/net/html and
//     selects listing fields with goquery.
//   - Fetcher: ties both together and stamps every guild of a page with the
//     same crawl time taken from an injected clock.
//
// # Errors
//
// Transport failures, including non-2xx statuses, are reported as
// *TransportError and match ErrTransport. Listings missing a required field
// are reported as *ParseError and match ErrParse. Nothing is retried and no
// listing is skipped: a malformed entry fails the whole page.
package fetcher
