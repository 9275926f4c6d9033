package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Transport performs a GET request for a path below the base URL and returns
// the response body. Implementations must fail with a *TransportError on
// network errors and non-2xx statuses.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Defaults for HTTPTransport.
const (
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024
	defaultUserAgent   = "guildcrawl/1.0"
	maxRedirects       = 10
)

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	// baseURL is the scheme and host every path is resolved against.
	baseURL *url.URL

	// client performs the requests.
	client *http.Client

	// userAgent, cookie and headers are injected into every request,
	// including redirects.
	userAgent string
	cookie    string
	headers   map[string]string

	// timeout bounds each request.
	timeout time.Duration

	// proxyAddress is an optional SOCKS5 proxy.
	proxyAddress string

	// maxBodySize is the largest response body accepted. A larger body
	// fails the request instead of being truncated.
	maxBodySize int64

	logger *slog.Logger
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) TransportOption {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// WithCookie sets a raw Cookie header value sent with every request.
func WithCookie(cookie string) TransportOption {
	return func(t *HTTPTransport) {
		t.cookie = cookie
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) TransportOption {
	return func(t *HTTPTransport) {
		t.headers = headers
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.timeout = d
	}
}

// WithProxy routes requests through a SOCKS5 proxy given as "host:port"
// or "socks5://[user:pass@]host:port".
func WithProxy(address string) TransportOption {
	return func(t *HTTPTransport) {
		t.proxyAddress = address
	}
}

// WithMaxBodySize sets the maximum response body size in bytes.
func WithMaxBodySize(n int64) TransportOption {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxBodySize = n
		}
	}
}

// WithTransportLogger sets the logger used for request tracing.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// NewHTTPTransport creates a transport for baseURL.
func NewHTTPTransport(baseURL string, opts ...TransportOption) (*HTTPTransport, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: must be absolute http(s)", baseURL)
	}

	t := &HTTPTransport{
		baseURL:     base,
		userAgent:   defaultUserAgent,
		timeout:     defaultTimeout,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}

	client, err := t.newHTTPClient()
	if err != nil {
		return nil, err
	}
	// Injected at the round tripper so headers also reach redirects.
	client.Transport = &headerInjectingTransport{
		base:      client.Transport,
		userAgent: t.userAgent,
		cookie:    t.cookie,
		headers:   t.headers,
		logger:    t.logger,
	}
	t.client = client

	return t, nil
}

// BaseURL returns the origin requests are sent to, as scheme://host.
// Listing links are resolved against it.
func (t *HTTPTransport) BaseURL() string {
	return (&url.URL{Scheme: t.baseURL.Scheme, Host: t.baseURL.Host}).String()
}

// Get requests path with query below the base URL.
func (t *HTTPTransport) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := t.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	rawURL := target.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	t.logger.Debug("page response",
		"url", rawURL,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, &TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        ErrUnexpectedStatus,
		}
	}

	// One byte past the limit tells a body of exactly maxBodySize from a longer one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		return nil, &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > t.maxBodySize {
		return nil, &TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, t.maxBodySize),
		}
	}

	return body, nil
}

// newHTTPClient builds the default client, optionally through a SOCKS5 proxy.
func (t *HTTPTransport) newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if t.proxyAddress != "" {
		dialer, err := socks5Dialer(t.proxyAddress)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dialer.DialContext
		t.logger.Info("using SOCKS5 proxy", "proxy", t.proxyAddress)
	}

	// cookiejar.New only fails with invalid options.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // nil options never fail

	return &http.Client{
		Transport: transport,
		Timeout:   t.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// socks5Dialer creates a context-aware SOCKS5 dialer for address.
func socks5Dialer(address string) (proxy.ContextDialer, error) {
	hostPort, auth, err := parseProxyAddress(address)
	if err != nil {
		return nil, err
	}

	d, err := proxy.SOCKS5("tcp", hostPort, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd, nil
	}
	return contextDialer{d}, nil
}

// contextDialer adapts a proxy.Dialer without DialContext.
type contextDialer struct {
	proxy.Dialer
}

func (c contextDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := c.Dial(network, addr)
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// parseProxyAddress splits a proxy address into host:port and optional credentials.
func parseProxyAddress(address string) (string, *proxy.Auth, error) {
	var auth *proxy.Auth
	hostPort := address

	if strings.Contains(address, "://") {
		u, err := url.Parse(address)
		if err != nil || u.Scheme != "socks5" {
			return "", nil, ErrInvalidProxyAddress
		}
		hostPort = u.Host
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
	}

	host, port, err := net.SplitHostPort(hostPort)
	if err != nil || host == "" {
		return "", nil, ErrInvalidProxyAddress
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", nil, ErrInvalidProxyAddress
	}

	return hostPort, auth, nil
}

// headerInjectingTransport adds the configured headers to every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
	logger    *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	// Header values pass through the masking log handler.
	t.logger.Debug("page request", "url", clone.URL, "headers", clone.Header)

	return t.base.RoundTrip(clone)
}
