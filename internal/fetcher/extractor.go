package fetcher

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/guildcrawl/internal/model"
)

// Selectors of the directory listing markup.
const (
	selectorListing     = "div.column.is-one-third-desktop.is-half-tablet"
	selectorIcon        = ".server-icon"
	selectorDescription = ".server-description"
	selectorJoin        = ".server-join a"
	selectorTags        = "ul.tags a[title]"
	selectorCategory    = "a.server-category"
	selectorOnline      = "span.server-online"
	selectorFlag        = "span.flag-icon"
	selectorBump        = "div.server-bumped-at"

	flagClassPrefix = "flag-icon-"
)

// BumpLayout is the time layout of the bump timestamp in the listing's title attribute.
const BumpLayout = "2006-01-02 15:04:05 (MST)"

// Extractor turns a listing page into guild records.
//
// Parsing is done by golang.org/x/net/html, which tolerates the malformed
// markup common on the web; selection uses goquery's CSS selectors.
type Extractor struct {
	// baseURL is resolved against the relative profile and invite links.
	baseURL *url.URL
}

// NewExtractor creates an extractor resolving links against baseURL.
func NewExtractor(baseURL string) (*Extractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	return &Extractor{baseURL: u}, nil
}

// ExtractPage parses one listing page. Every guild gets crawledAt as its
// timestamp. A page without any listing yields an empty Page, not an error.
func (e *Extractor) ExtractPage(r io.Reader, page int, crawledAt time.Time) (model.Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return model.Page{}, &ParseError{Page: page, Entry: -1, Err: err}
	}
	doc := goquery.NewDocumentFromNode(root)

	listings := doc.Find(selectorListing)
	guilds := make([]model.Guild, 0, listings.Length())

	var extractErr error
	listings.EachWithBreak(func(i int, s *goquery.Selection) bool {
		g, err := e.extractGuild(s, crawledAt)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Page = page
				pe.Entry = i
			}
			extractErr = err
			return false
		}
		guilds = append(guilds, g)
		return true
	})
	if extractErr != nil {
		return model.Page{}, extractErr
	}

	return model.Page{Index: page, Guilds: guilds}, nil
}

// extractGuild reads one listing. Page and Entry of returned ParseErrors are
// filled in by the caller.
func (e *Extractor) extractGuild(s *goquery.Selection, crawledAt time.Time) (model.Guild, error) {
	join := s.Find(selectorJoin).First()
	rawID, ok := join.Attr("data-id")
	if !ok {
		return model.Guild{}, missing("id")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return model.Guild{}, malformed("id", rawID)
	}
	joinHref, ok := join.Attr("href")
	if !ok {
		return model.Guild{}, missing("link")
	}

	icon := s.Find(selectorIcon).First()
	img := icon.Find("img").First()
	alt, ok := img.Attr("alt")
	if !ok {
		return model.Guild{}, missing("name")
	}
	src, ok := img.Attr("src")
	if !ok {
		return model.Guild{}, missing("image")
	}
	iconHref, ok := icon.Find("a").First().Attr("href")
	if !ok {
		return model.Guild{}, missing("url")
	}

	onlineSel := s.Find(selectorOnline).First()
	if onlineSel.Length() == 0 {
		return model.Guild{}, missing("online")
	}
	online, err := parseOnline(onlineSel.Text())
	if err != nil {
		return model.Guild{}, malformed("online", onlineSel.Text())
	}

	bump := model.NoBump
	if bumpSel := s.Find(selectorBump).First(); bumpSel.Length() > 0 {
		title, _ := bumpSel.Attr("title")
		t, err := time.Parse(BumpLayout, strings.TrimSpace(title))
		if err != nil {
			return model.Guild{}, malformed("bump", title)
		}
		bump = t.Unix()
	}

	tags := make([]string, 0)
	s.Find(selectorTags).Each(func(_ int, a *goquery.Selection) {
		if title, ok := a.Attr("title"); ok {
			tags = append(tags, title)
		}
	})

	return model.Guild{
		ID:          id,
		Name:        strings.ReplaceAll(alt, " ", ""),
		Image:       src,
		URL:         e.resolve(iconHref),
		Description: strings.TrimSpace(s.Find(selectorDescription).First().Text()),
		Link:        e.resolve(joinHref),
		Tags:        tags,
		Category:    strings.TrimSpace(s.Find(selectorCategory).First().Text()),
		Flag:        flagCode(s.Find(selectorFlag).First()),
		Online:      online,
		Timestamp:   crawledAt.Unix(),
		Bump:        bump,
	}, nil
}

// resolve makes href absolute against the base URL. Unparseable hrefs are
// appended to the base verbatim.
func (e *Extractor) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return strings.TrimSuffix(e.baseURL.String(), "/") + href
	}
	return e.baseURL.ResolveReference(ref).String()
}

// parseOnline parses a member count such as "1,234" or "1 234".
func parseOnline(text string) (int, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '\u202f', '\t', '\n', '\r':
			return -1
		}
		return r
	}, text)
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative online count %d", n)
	}
	return n, nil
}

// flagCode returns the country code of a flag span ("flag-icon-fr" -> "fr").
func flagCode(s *goquery.Selection) string {
	class, ok := s.Attr("class")
	if !ok {
		return ""
	}
	for _, c := range strings.Fields(class) {
		if code, found := strings.CutPrefix(c, flagClassPrefix); found && code != "" {
			return code
		}
	}
	return ""
}

func missing(field string) *ParseError {
	return &ParseError{Field: field, Err: ErrMissingField}
}

func malformed(field, value string) *ParseError {
	return &ParseError{Field: field, Err: fmt.Errorf("malformed value %q", value)}
}
