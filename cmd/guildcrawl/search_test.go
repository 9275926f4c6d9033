package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/model"
)

// directoryServer serves fake search result pages. pages[i] is the number
// of listings on page i+1; pages past the end are empty.
type directoryServer struct {
	*httptest.Server
	requests atomic.Int32
}

func newDirectoryServer(t *testing.T, pages ...int) *directoryServer {
	t.Helper()

	ds := &directoryServer{}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ds.requests.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/search") {
			http.NotFound(w, r)
			return
		}
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		count := 0
		if page <= len(pages) {
			count = pages[page-1]
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, renderResults(page, count))
	}))
	t.Cleanup(ds.Close)
	return ds
}

// renderResults renders count listings whose IDs are unique per page.
func renderResults(page, count int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><div class="columns is-multiline">`)
	for i := range count {
		id := 100000000000000000 + page*1000 + i
		fmt.Fprintf(&b, `<div class="column is-one-third-desktop is-half-tablet">`+
			`<div class="server-icon"><a href="/server/%d"><img alt="Guild %d" src="https://cdn.example.com/%d.png"></a></div>`+
			`<span class="server-online">%d</span>`+
			`<ul class="tags"><li><a title="gaming" href="/servers/tag/gaming">gaming</a></li></ul>`+
			`<div class="server-join"><a href="/server/join/%d" data-id="%d">Join</a></div>`+
			`</div>`, id, id, id, i+1, id, id)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// writeConfig writes a configuration file pointing at baseURL with no delay.
func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	path := filepath.Join(dir, "guildcrawl.yaml")
	content := fmt.Sprintf(`crawl:
  baseURL: %q
  timeout: 5s
keywords:
  music:
    limit: 5
`, baseURL)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// executeRoot runs the root command with args and returns stdout and stderr.
func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	return records
}

func TestNewSearchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()

	if !strings.HasPrefix(cmd.Use, "search") {
		t.Errorf("expected use to start with 'search', got %q", cmd.Use)
	}

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"output", "o", ""},
		{"limit", "l", "0"},
		{"format", "F", "csv"},
		{"header", "", "false"},
		{"locale", "", config.DefaultLocale},
		{"base-url", "", config.DefaultBaseURL},
		{"proxy", "x", ""},
		{"timeout", "t", config.DefaultTimeout.String()},
		{"min-delay", "", config.DefaultMinDelay.String()},
		{"max-delay", "", config.DefaultMaxDelay.String()},
		{"batch", "b", "1"},
		{"config", "c", ""},
		{"no-save", "", "false"},
		{"db-dir", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}

	t.Run("requires a keyword", func(t *testing.T) {
		t.Parallel()
		if err := cmd.Args(cmd, nil); err == nil {
			t.Error("expected error without keywords")
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("flags override the configuration file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "http://mirror.example.com")

		cmd := NewSearchCmd()
		if err := cmd.ParseFlags([]string{
			"-c", cfgPath,
			"-o", "out.json",
			"--format", "JSON",
			"--locale", "en",
			"--min-delay", "1s",
			"--max-delay", "2s",
			"--no-save",
		}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"gaming", "music"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.BaseURL != "http://mirror.example.com" {
			t.Errorf("BaseURL = %q, want value from file", cfg.BaseURL)
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s from file", cfg.Timeout)
		}
		if cfg.Locale != "en" {
			t.Errorf("Locale = %q, want en", cfg.Locale)
		}
		if cfg.MinDelay != time.Second || cfg.MaxDelay != 2*time.Second {
			t.Errorf("delay = [%v, %v), want [1s, 2s)", cfg.MinDelay, cfg.MaxDelay)
		}
		if cfg.Format != config.FormatJSON {
			t.Errorf("Format = %q, want json", cfg.Format)
		}
		if cfg.SaveToDB {
			t.Error("SaveToDB should be false with --no-save")
		}
		if len(cfg.Keywords) != 2 {
			t.Errorf("Keywords = %v", cfg.Keywords)
		}
		if got := cfg.ForKeyword("MUSIC").Limit; got != 5 {
			t.Errorf("ForKeyword(MUSIC).Limit = %d, want 5", got)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("locale flag wins over the keyword section", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "guildcrawl.yaml")
		content := "defaults:\n  locale: de\nkeywords:\n  music:\n    locale: es\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		for _, tt := range []struct {
			args []string
			want string
		}{
			{args: []string{"-c", cfgPath, "-o", "out.csv"}, want: "es"},
			{args: []string{"-c", cfgPath, "-o", "out.csv", "--locale", "en"}, want: "en"},
		} {
			cmd := NewSearchCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg, err := buildConfig(cmd, []string{"music"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := cfg.ForKeyword("music").Locale; got != tt.want {
				t.Errorf("args %v: locale = %q, want %q", tt.args, got, tt.want)
			}
		}
	})

	t.Run("explicit missing config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewSearchCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing, "-o", "out.csv"}); err != nil {
			t.Fatal(err)
		}
		_, err := buildConfig(cmd, []string{"gaming"})
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		cmd := NewSearchCmd()
		cfgPath := writeConfig(t, t.TempDir(), "http://mirror.example.com")
		if err := cmd.ParseFlags([]string{"-c", cfgPath, "-o", "out.xml", "--format", "xml"}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"gaming"}); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestRunSearch(t *testing.T) {
	t.Run("crawls until a short page", func(t *testing.T) {
		srv := newDirectoryServer(t, 24, 24, 10)
		dir := t.TempDir()
		out := filepath.Join(dir, "results", "gaming.csv")

		stdout, stderr, err := executeRoot(t, "search", "gaming",
			"-c", writeConfig(t, dir, srv.URL),
			"-o", out,
			"--min-delay", "0s",
			"--max-delay", "0s",
			"--no-save",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr)
		}

		records := readCSV(t, out)
		if len(records) != 58 {
			t.Errorf("expected 58 rows, got %d", len(records))
		}
		if got := srv.requests.Load(); got != 3 {
			t.Errorf("expected 3 requests, got %d", got)
		}
		if !strings.Contains(stdout, "CRAWL SUMMARY") || !strings.Contains(stdout, "Guilds: 58") {
			t.Errorf("unexpected summary:\n%s", stdout)
		}
		if !strings.Contains(stderr, `Fetching guilds for "gaming"...`) {
			t.Errorf("expected progress output, got:\n%s", stderr)
		}
	})

	t.Run("per keyword limit from the configuration file", func(t *testing.T) {
		srv := newDirectoryServer(t, 24, 24)
		dir := t.TempDir()
		out := filepath.Join(dir, "music.csv")

		_, stderr, err := executeRoot(t, "search", "music",
			"-c", writeConfig(t, dir, srv.URL),
			"-o", out,
			"--header",
			"--min-delay", "0s",
			"--max-delay", "0s",
			"--no-save",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr)
		}

		records := readCSV(t, out)
		if len(records) != 6 {
			t.Errorf("expected header and 5 rows, got %d rows", len(records))
		}
		if records[0][0] != "id" {
			t.Errorf("expected header row, got %v", records[0])
		}
		if got := srv.requests.Load(); got != 1 {
			t.Errorf("expected 1 request, got %d", got)
		}
	})

	t.Run("server error fails the command", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		dir := t.TempDir()
		out := filepath.Join(dir, "out.csv")

		_, stderr, err := executeRoot(t, "search", "gaming",
			"-c", writeConfig(t, dir, srv.URL),
			"-o", out,
			"--min-delay", "0s",
			"--max-delay", "0s",
			"--no-save",
		)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(stderr, "Crawl error") {
			t.Errorf("expected crawl error on stderr, got:\n%s", stderr)
		}
		if _, statErr := os.Stat(out); statErr != nil {
			t.Errorf("output file should exist even on failure: %v", statErr)
		}
	})

	t.Run("missing output", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := executeRoot(t, "search", "gaming",
			"-c", writeConfig(t, dir, "http://127.0.0.1:1"),
			"--no-save",
		)
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

// outputFile records Flush and Close calls and fails them on demand.
type outputFile struct {
	flushErr error
	closeErr error
	flushed  bool
	closed   bool
}

func (o *outputFile) WriteGuild(model.Guild) error { return nil }

func (o *outputFile) Flush() error {
	o.flushed = true
	return o.flushErr
}

func (o *outputFile) Close() error {
	o.closed = true
	return o.closeErr
}

func TestFinishOutput(t *testing.T) {
	t.Parallel()

	t.Run("flushes then closes", func(t *testing.T) {
		t.Parallel()
		f := &outputFile{}
		if err := finishOutput(f, f, "out.csv"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.flushed || !f.closed {
			t.Errorf("flushed = %v, closed = %v", f.flushed, f.closed)
		}
	})

	t.Run("close error is reported", func(t *testing.T) {
		t.Parallel()
		errDisk := errors.New("disk full")
		f := &outputFile{closeErr: errDisk}
		err := finishOutput(f, f, "out.csv")
		if !errors.Is(err, errDisk) || !strings.Contains(err.Error(), "failed to close out.csv") {
			t.Errorf("expected close error, got %v", err)
		}
	})

	t.Run("flush error still closes the file", func(t *testing.T) {
		t.Parallel()
		errWrite := errors.New("short write")
		f := &outputFile{flushErr: errWrite}
		err := finishOutput(f, f, "out.csv")
		if !errors.Is(err, errWrite) {
			t.Errorf("expected flush error, got %v", err)
		}
		if !f.closed {
			t.Error("expected file to be closed after a failed flush")
		}
	})
}
