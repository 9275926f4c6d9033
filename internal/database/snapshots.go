package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/guildcrawl/internal/model"
)

// PageRecord is a stored page fetch.
type PageRecord struct {
	Index      int
	GuildCount int
	Digest     string
	FetchedAt  time.Time
}

// SavePage records a fetched page of a run. Saving the same page index twice
// replaces the earlier record.
func (cdb *CrawlDB) SavePage(ctx context.Context, runID int64, page model.Page, fetchedAt time.Time) error {
	query := `
	INSERT INTO crawl_pages (run_id, page_index, guild_count, digest, fetched_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(run_id, page_index) DO UPDATE SET
		guild_count = excluded.guild_count,
		digest = excluded.digest,
		fetched_at = excluded.fetched_at
	`

	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		page.Index,
		page.Len(),
		page.Digest(),
		formatTimestamp(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save page %d: %w", page.Index, err)
	}

	return nil
}

// GetRunPages returns the pages of a run in page order.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID int64) ([]PageRecord, error) {
	query := `
	SELECT page_index, guild_count, digest, fetched_at
	FROM crawl_pages
	WHERE run_id = ?
	ORDER BY page_index
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var fetched string
		if err := rows.Scan(&p.Index, &p.GuildCount, &p.Digest, &fetched); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.FetchedAt = parseTimestamp(fetched)
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// SaveGuild stores a guild emitted by a run at the given 0-based position.
// Snapshots are keyed by position, so a guild listed twice in one run keeps
// both rows like the output file does. Saving the same position twice
// replaces the earlier snapshot.
func (cdb *CrawlDB) SaveGuild(ctx context.Context, runID int64, position int, g model.Guild) error {
	tags := g.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to serialize tags: %w", err)
	}

	query := `
	INSERT INTO guild_snapshots (
		run_id, position, guild_id, name, image, url, description, link,
		tags, category, flag, online, crawled_at, bump
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, position) DO UPDATE SET
		guild_id = excluded.guild_id,
		name = excluded.name,
		image = excluded.image,
		url = excluded.url,
		description = excluded.description,
		link = excluded.link,
		tags = excluded.tags,
		category = excluded.category,
		flag = excluded.flag,
		online = excluded.online,
		crawled_at = excluded.crawled_at,
		bump = excluded.bump
	`

	_, err = cdb.db.ExecContext(ctx, query,
		runID,
		position,
		g.ID,
		g.Name,
		g.Image,
		g.URL,
		g.Description,
		g.Link,
		string(tagsJSON),
		g.Category,
		g.Flag,
		g.Online,
		g.Timestamp,
		g.Bump,
	)
	if err != nil {
		return fmt.Errorf("failed to save guild %d: %w", g.ID, err)
	}

	return nil
}

// GetRunGuilds returns the guilds of a run in emission order.
func (cdb *CrawlDB) GetRunGuilds(ctx context.Context, runID int64) ([]model.Guild, error) {
	query := `
	SELECT guild_id, name, image, url, description, link, tags, category, flag, online, crawled_at, bump
	FROM guild_snapshots
	WHERE run_id = ?
	ORDER BY position
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run guilds: %w", err)
	}
	defer rows.Close()

	var guilds []model.Guild
	for rows.Next() {
		var g model.Guild
		var tagsJSON string

		err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.Image,
			&g.URL,
			&g.Description,
			&g.Link,
			&tagsJSON,
			&g.Category,
			&g.Flag,
			&g.Online,
			&g.Timestamp,
			&g.Bump,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guild: %w", err)
		}

		if err := json.Unmarshal([]byte(tagsJSON), &g.Tags); err != nil {
			return nil, fmt.Errorf("failed to parse tags of guild %d: %w", g.ID, err)
		}
		guilds = append(guilds, g)
	}

	return guilds, rows.Err()
}
