package report

import (
	"cmp"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/guildcrawl/internal/model"
)

// uncategorized labels guilds without a category in the distribution chart.
const uncategorized = "(none)"

// markdownTimeLayout renders bump and crawl times.
const markdownTimeLayout = "2006-01-02 15:04 UTC"

// MarkdownWriter buffers guilds and renders them as a Markdown document on
// Flush: a table of the guilds and a mermaid pie chart of their categories.
type MarkdownWriter struct {
	baseWriter
	title  string
	guilds []model.Guild
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTitle sets the document heading.
func WithTitle(title string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.title = title
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      "Guild Search Results",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteGuild buffers g.
func (w *MarkdownWriter) WriteGuild(g model.Guild) error {
	w.guilds = append(w.guilds, g)
	return nil
}

// Flush renders the buffered guilds.
func (w *MarkdownWriter) Flush() error {
	md := markdown.NewMarkdown(w.output)

	md.H1(w.title)
	md.PlainText("")

	if len(w.guilds) == 0 {
		md.Note("No guilds found.")
		md.PlainText("")
		return md.Build()
	}

	md.PlainTextf("%d guild(s).", len(w.guilds))
	md.PlainText("")

	w.writeTable(md)
	w.writeCategories(md)
	w.writeFooter(md)

	return md.Build()
}

// writeTable writes one row per guild.
func (w *MarkdownWriter) writeTable(md *markdown.Markdown) {
	rows := make([][]string, len(w.guilds))
	for i, g := range w.guilds {
		rows[i] = []string{
			markdown.Link(cell(g.Name), g.URL),
			strconv.Itoa(g.Online),
			orDash(cell(g.Category)),
			orDash(g.Flag),
			orDash(cell(strings.Join(g.Tags, ", "))),
			orDash(cell(truncateString(g.Description, 60))),
			bumped(g),
			markdown.Link("join", g.Link),
		}
	}

	md.H2("Guilds")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Name", "Online", "Category", "Language", "Tags", "Description", "Bumped", "Invite"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCategories writes a mermaid pie chart of the category distribution.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown) {
	counts := make(map[string]uint64)
	for _, g := range w.guilds {
		c := g.Category
		if c == "" {
			c = uncategorized
		}
		counts[c]++
	}

	labels := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if n := cmp.Compare(counts[b], counts[a]); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Categories"),
		piechart.WithShowData(true),
	)
	for _, label := range labels {
		chart.LabelAndIntValue(label, counts[label])
	}

	md.H2("Categories")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer with the time of the latest page.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	var last time.Time
	for _, g := range w.guilds {
		if at := g.CrawledAt(); at.After(last) {
			last = at
		}
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by guildcrawl, crawled %s*", last.Format(markdownTimeLayout))
}

func bumped(g model.Guild) string {
	if !g.HasBump() {
		return "-"
	}
	return g.BumpedAt().Format(markdownTimeLayout)
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

// cell makes s safe inside a table cell.
func cell(s string) string {
	return cellReplacer.Replace(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
