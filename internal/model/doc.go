// Package model defines the data structures shared by the fetcher, the
// crawler, the report writers and the database.
//
// This package contains the following main types:
//   - Guild: One server listing extracted from a search results page
//   - Page: The ordered batch of guilds returned by one page fetch
//   - CrawlReport: Summary of a single crawl invocation
//   - StopReason: Why a crawl stream ended
//
// Guild values are immutable once built. Identity (Guild.Is) compares the
// snowflake ID only; structural equality (Guild.Equal) compares every field
// and is what page stagnation detection relies on.
package model
