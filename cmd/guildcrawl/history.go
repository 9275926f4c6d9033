package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/database"
	"github.com/nao1215/guildcrawl/internal/model"
	"github.com/nao1215/guildcrawl/internal/report"
	"github.com/spf13/cobra"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [keyword]",
		Short: "Show recorded crawls",
		Long: `History reads the crawl history database written by 'guildcrawl search'.

Without arguments it lists every crawled keyword. With a keyword it lists
the runs of that keyword, newest first. A single run's guilds can be
printed with --run, and two runs can be compared with --diff.

Examples:
  # List crawled keywords
  guildcrawl history

  # List the runs of a keyword
  guildcrawl history gaming

  # Print the guilds of run 12 as JSON lines
  guildcrawl history --run 12 --format json

  # Print the pages fetched by run 12 with their content digests
  guildcrawl history --run 12 --pages

  # Show guilds that joined, left or changed between two runs
  guildcrawl history --diff 12,15`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("run", "r", 0,
		"Print the guilds recorded by the run with this ID")
	cmd.Flags().Bool("pages", false,
		"Print the pages fetched by --run instead of its guilds")
	cmd.Flags().Int64Slice("diff", nil,
		"Compare two runs given as FROM,TO")
	cmd.Flags().StringP("format", "F", string(config.DefaultFormat),
		"Output format of --run: csv, json or markdown")
	cmd.Flags().Bool("header", false,
		"Write a header row before CSV output of --run")
	cmd.Flags().BoolP("json", "j", false,
		"Output --diff result in JSON format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	runID, err := flags.GetInt64("run")
	if err != nil {
		return err
	}
	diff, err := flags.GetInt64Slice("diff")
	if err != nil {
		return err
	}
	pages, err := flags.GetBool("pages")
	if err != nil {
		return err
	}

	// Validate before opening the database so a usage error leaves no file behind.
	if len(diff) != 0 && len(diff) != 2 {
		return errors.New("--diff takes exactly two run IDs (FROM,TO)")
	}
	if runID != 0 && len(diff) != 0 {
		return errors.New("--run and --diff are mutually exclusive")
	}
	if (runID != 0 || len(diff) != 0) && len(args) > 0 {
		return errors.New("a keyword cannot be combined with --run or --diff")
	}
	if pages && runID == 0 {
		return errors.New("--pages requires --run")
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case runID != 0 && pages:
		return printRunPages(ctx, db, out, runID)
	case runID != 0:
		format, err := flags.GetString("format")
		if err != nil {
			return err
		}
		header, err := flags.GetBool("header")
		if err != nil {
			return err
		}
		return printRunGuilds(ctx, db, out, runID, report.Format(format), header)
	case len(diff) == 2:
		jsonOutput, err := flags.GetBool("json")
		if err != nil {
			return err
		}
		return printRunDiff(ctx, db, out, diff[0], diff[1], jsonOutput)
	case len(args) == 1:
		return listKeywordRuns(ctx, db, out, args[0])
	default:
		return listKeywords(ctx, db, out)
	}
}

// listKeywords lists every keyword that has runs in the database.
func listKeywords(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	keywords, err := db.ListKeywords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keywords: %w", err)
	}

	if len(keywords) == 0 {
		fmt.Fprintln(out, "No crawls found in the database.")
		fmt.Fprintln(out, "\nUse 'guildcrawl search <keyword> -o <file>' to crawl a keyword.")
		return nil
	}

	fmt.Fprintf(out, "Crawled keywords (%d):\n\n", len(keywords))
	t := newHistoryTable(out)
	t.AppendHeader(table.Row{"Keyword", "Runs", "Last run"})
	for _, k := range keywords {
		t.AppendRow(table.Row{k.Keyword, k.Runs, k.LastRunAt.Local().Format(historyTimeLayout)})
	}
	t.Render()
	fmt.Fprintln(out, "\nUse 'guildcrawl history <keyword>' to see the runs of a keyword.")

	return nil
}

// listKeywordRuns lists the runs of keyword, newest first.
func listKeywordRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, keyword string) error {
	runs, err := db.ListRuns(ctx, keyword)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %q\n", keyword)
		return nil
	}

	fmt.Fprintf(out, "Runs for %q (%d):\n\n", keyword, len(runs))
	t := newHistoryTable(out)
	t.AppendHeader(table.Row{"ID", "Started", "Pages", "Guilds", "Status"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format(historyTimeLayout),
			r.Pages,
			r.Records,
			runStatus(r),
		})
	}
	t.Render()
	fmt.Fprintln(out, "\nUse 'guildcrawl history --run <id>' to print the guilds of a run.")
	fmt.Fprintln(out, "Use 'guildcrawl history --diff <from>,<to>' to compare two runs.")

	return nil
}

// newHistoryTable returns a table writer rendering to out.
func newHistoryTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

// runStatus describes how a stored run ended.
func runStatus(r database.Run) string {
	switch {
	case !r.Finished():
		return "unfinished"
	case r.Error != "":
		return fmt.Sprintf("%s: %s", r.StopReason, r.Error)
	case r.StopReason == model.StopNone:
		return "finished"
	default:
		return r.StopReason.String()
	}
}

// printRunGuilds writes the guilds of a run with the report writer for format.
func printRunGuilds(ctx context.Context, db *database.CrawlDB, out io.Writer, runID int64, format report.Format, header bool) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	if run == nil {
		return fmt.Errorf("run %d: %w", runID, database.ErrRunNotFound)
	}

	guilds, err := db.GetRunGuilds(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get guilds of run %d: %w", runID, err)
	}

	w, err := report.New(format, out, header)
	if err != nil {
		return err
	}
	for _, g := range guilds {
		if err := w.WriteGuild(g); err != nil {
			return err
		}
	}
	return w.Flush()
}

// printRunPages lists the pages fetched by a run. A page whose digest
// matches the page before it was served twice and ended the run.
func printRunPages(ctx context.Context, db *database.CrawlDB, out io.Writer, runID int64) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	if run == nil {
		return fmt.Errorf("run %d: %w", runID, database.ErrRunNotFound)
	}

	pages, err := db.GetRunPages(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get pages of run %d: %w", runID, err)
	}

	fmt.Fprintf(out, "Pages of run %d for %q (%s):\n\n", run.ID, run.Keyword, runStatus(*run))
	t := newHistoryTable(out)
	t.AppendHeader(table.Row{"Page", "Guilds", "Fetched", "Digest", ""})
	for i, p := range pages {
		note := ""
		if i > 0 && p.Digest != "" && p.Digest == pages[i-1].Digest {
			note = fmt.Sprintf("same as page %d", pages[i-1].Index)
		}
		t.AppendRow(table.Row{
			p.Index,
			p.GuildCount,
			p.FetchedAt.Local().Format(historyTimeLayout),
			p.Digest,
			note,
		})
	}
	t.Render()

	return nil
}

// runDiff is the JSON form of a run comparison.
type runDiff struct {
	From      int64         `json:"from"`
	To        int64         `json:"to"`
	Keyword   string        `json:"keyword"`
	Joined    []model.Guild `json:"joined"`
	Left      []model.Guild `json:"left"`
	Changed   []model.Guild `json:"changed"`
	Unchanged int           `json:"unchanged"`
}

// printRunDiff compares two runs and prints the result.
func printRunDiff(ctx context.Context, db *database.CrawlDB, out io.Writer, from, to int64, jsonOutput bool) error {
	cmp, err := db.CompareRuns(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runDiff{
			From:      cmp.From.ID,
			To:        cmp.To.ID,
			Keyword:   cmp.To.Keyword,
			Joined:    nonNil(cmp.Joined),
			Left:      nonNil(cmp.Left),
			Changed:   nonNil(cmp.Changed),
			Unchanged: cmp.Unchanged,
		})
	}

	fmt.Fprintf(out, "Run Comparison: %q\n", cmp.To.Keyword)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nFrom run %d: %s (%d guilds)\n",
		cmp.From.ID, cmp.From.StartedAt.Local().Format(historyTimeLayout), cmp.From.Records)
	fmt.Fprintf(out, "To run %d:   %s (%d guilds)\n",
		cmp.To.ID, cmp.To.StartedAt.Local().Format(historyTimeLayout), cmp.To.Records)

	if !cmp.HasChanges() {
		fmt.Fprintf(out, "\nNo changes (%d guilds unchanged)\n", cmp.Unchanged)
		return nil
	}

	printGuildList(out, "Joined", "+", cmp.Joined)
	printGuildList(out, "Left", "-", cmp.Left)
	printGuildList(out, "Changed", "~", cmp.Changed)
	fmt.Fprintf(out, "\nUnchanged: %d guilds\n", cmp.Unchanged)

	return nil
}

func printGuildList(out io.Writer, title, mark string, guilds []model.Guild) {
	if len(guilds) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s (%d):\n", title, len(guilds))
	for _, g := range guilds {
		fmt.Fprintf(out, "  [%s] %s (%d) online=%d\n", mark, g.Name, g.ID, g.Online)
	}
}

func nonNil(guilds []model.Guild) []model.Guild {
	if guilds == nil {
		return []model.Guild{}
	}
	return guilds
}
