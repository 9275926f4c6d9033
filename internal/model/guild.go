package model

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// NoBump is the Bump value of a guild whose listing carried no bump timestamp.
const NoBump int64 = -1

// TagSeparator joins Guild.Tags when a guild is flattened into a row.
const TagSeparator = ","

// FieldNames lists the positional columns of a flattened Guild.
// The order matches Guild.Fields and must not change: CSV consumers rely on it.
var FieldNames = []string{
	"id",
	"name",
	"image",
	"url",
	"description",
	"link",
	"tags",
	"category",
	"flag",
	"online",
	"timestamp",
	"bump",
}

// timestampField is the index of the "timestamp" column in FieldNames.
const timestampField = 10

// Guild is one server listing extracted from the directory.
//
// A Guild is built once per page extraction and never mutated afterwards.
// Callers that need to change a value should copy it; Tags is shared with
// the value it was copied from, so it must be cloned before modification.
type Guild struct {
	// ID is the Discord snowflake of the server. It is unique per server.
	ID int64 `json:"id"`

	// Name is the server name as shown on the icon, with spaces removed.
	Name string `json:"name"`

	// Image is the URL of the server icon.
	Image string `json:"image"`

	// URL is the canonical directory profile URL of the server.
	URL string `json:"url"`

	// Description is the listing description. May be empty.
	Description string `json:"description"`

	// Link is the directory invite URL.
	Link string `json:"link"`

	// Tags are the tag labels of the listing, in page order.
	Tags []string `json:"tags"`

	// Category is the listing category. May be empty.
	Category string `json:"category"`

	// Flag is the country/region code of the listing. May be empty.
	Flag string `json:"flag"`

	// Online is the number of members currently online.
	Online int `json:"online"`

	// Timestamp is the crawl time of the page this guild came from,
	// in seconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`

	// Bump is the time of the last bump in seconds since the Unix epoch,
	// or NoBump when the listing did not show one.
	Bump int64 `json:"bump"`
}

// Key returns the identity key of the guild, suitable for map keys.
func (g Guild) Key() int64 {
	return g.ID
}

// Is reports whether g and other describe the same server.
// Only the ID is compared: online counts, descriptions and bump times
// change between crawls while the server stays the same.
func (g Guild) Is(other Guild) bool {
	return g.ID == other.ID
}

// Equal reports whether g and other are structurally identical,
// comparing every field and the tags element by element.
func (g Guild) Equal(other Guild) bool {
	return g.SameListing(other) && g.Timestamp == other.Timestamp
}

// SameListing reports whether g and other show the same listing content.
// It compares every field except Timestamp, which is the time of the fetch
// rather than part of what the directory served.
func (g Guild) SameListing(other Guild) bool {
	return g.ID == other.ID &&
		g.Name == other.Name &&
		g.Image == other.Image &&
		g.URL == other.URL &&
		g.Description == other.Description &&
		g.Link == other.Link &&
		slices.Equal(g.Tags, other.Tags) &&
		g.Category == other.Category &&
		g.Flag == other.Flag &&
		g.Online == other.Online &&
		g.Bump == other.Bump
}

// HasBump reports whether the listing carried a bump timestamp.
func (g Guild) HasBump() bool {
	return g.Bump != NoBump
}

// BumpedAt returns the bump time, or the zero time if there is none.
func (g Guild) BumpedAt() time.Time {
	if !g.HasBump() {
		return time.Time{}
	}
	return time.Unix(g.Bump, 0).UTC()
}

// CrawledAt returns the crawl time as a time.Time.
func (g Guild) CrawledAt() time.Time {
	return time.Unix(g.Timestamp, 0).UTC()
}

// CreatedAt returns the creation time of the server encoded in its snowflake ID.
func (g Guild) CreatedAt() time.Time {
	return SnowflakeTime(g.ID)
}

// Fields returns the guild flattened into positional string columns,
// in the order given by FieldNames.
func (g Guild) Fields() []string {
	return []string{
		strconv.FormatInt(g.ID, 10),
		g.Name,
		g.Image,
		g.URL,
		g.Description,
		g.Link,
		strings.Join(g.Tags, TagSeparator),
		g.Category,
		g.Flag,
		strconv.Itoa(g.Online),
		strconv.FormatInt(g.Timestamp, 10),
		strconv.FormatInt(g.Bump, 10),
	}
}
