package database

import (
	"context"
	"fmt"

	"github.com/nao1215/guildcrawl/internal/model"
)

// RunComparison lists the differences between two runs.
type RunComparison struct {
	// From and To are the compared runs.
	From Run
	To   Run

	// Joined are guilds present in To but not in From.
	Joined []model.Guild

	// Left are guilds present in From but not in To.
	Left []model.Guild

	// Changed are guilds of To whose listing differs from From,
	// ignoring the crawl timestamp.
	Changed []model.Guild

	// Unchanged counts guilds present in both runs with the same listing.
	Unchanged int
}

// HasChanges reports whether the runs differ.
func (c *RunComparison) HasChanges() bool {
	return len(c.Joined) > 0 || len(c.Left) > 0 || len(c.Changed) > 0
}

// CompareRuns compares the guilds of run from with those of run to.
func (cdb *CrawlDB) CompareRuns(ctx context.Context, from, to int64) (*RunComparison, error) {
	fromRun, err := cdb.mustGetRun(ctx, from)
	if err != nil {
		return nil, err
	}
	toRun, err := cdb.mustGetRun(ctx, to)
	if err != nil {
		return nil, err
	}

	before, err := cdb.GetRunGuilds(ctx, from)
	if err != nil {
		return nil, err
	}
	after, err := cdb.GetRunGuilds(ctx, to)
	if err != nil {
		return nil, err
	}

	cmp := CompareGuilds(before, after)
	cmp.From = *fromRun
	cmp.To = *toRun
	return cmp, nil
}

// CompareGuilds compares two guild lists by identity. Order follows after
// for Joined and Changed, and before for Left. A guild listed twice in one
// run is counted once, at its first position.
func CompareGuilds(before, after []model.Guild) *RunComparison {
	prev := make(map[int64]model.Guild, len(before))
	for _, g := range before {
		if _, ok := prev[g.Key()]; !ok {
			prev[g.Key()] = g
		}
	}
	seen := make(map[int64]bool, len(after))

	cmp := &RunComparison{}
	for _, g := range after {
		if seen[g.Key()] {
			continue
		}
		seen[g.Key()] = true
		old, ok := prev[g.Key()]
		switch {
		case !ok:
			cmp.Joined = append(cmp.Joined, g)
		case !old.SameListing(g):
			cmp.Changed = append(cmp.Changed, g)
		default:
			cmp.Unchanged++
		}
	}
	left := make(map[int64]bool)
	for _, g := range before {
		if !seen[g.Key()] && !left[g.Key()] {
			left[g.Key()] = true
			cmp.Left = append(cmp.Left, g)
		}
	}

	return cmp
}

func (cdb *CrawlDB) mustGetRun(ctx context.Context, id int64) (*Run, error) {
	run, err := cdb.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return run, nil
}
