package model

import (
	"encoding/hex"
	"slices"
	"strings"

	"golang.org/x/crypto/sha3"
)

// FullPageSize is the number of listings the directory shows on a full
// results page. A page with fewer entries is the last one.
const FullPageSize = 24

// Page is the ordered batch of guilds extracted from one fetch.
type Page struct {
	// Index is the 1-based page number that was requested.
	Index int `json:"index"`

	// Guilds are the listings of the page in page order.
	Guilds []Guild `json:"guilds"`
}

// Len returns the number of guilds on the page.
func (p Page) Len() int {
	return len(p.Guilds)
}

// IsFull reports whether the page holds at least size listings.
// A size of zero or less means FullPageSize.
func (p Page) IsFull(size int) bool {
	if size <= 0 {
		size = FullPageSize
	}
	return len(p.Guilds) >= size
}

// Equal reports whether p and other list the same guilds with the same
// content in the same order. Neither the page index nor the crawl timestamp
// is compared: a stale page served for index 2 a few seconds later is equal
// to the page served for index 1.
func (p Page) Equal(other Page) bool {
	return slices.EqualFunc(p.Guilds, other.Guilds, Guild.SameListing)
}

// Digest returns a hex SHA3-256 fingerprint of the page content.
// Two pages have the same digest exactly when they are Equal, so it can be
// stored and compared in place of the full page. The timestamp column is
// left out. An empty page has an empty digest.
func (p Page) Digest() string {
	if len(p.Guilds) == 0 {
		return ""
	}

	h := sha3.New256()
	for _, g := range p.Guilds {
		// Unit separator and record separator keep field boundaries unambiguous.
		fields := g.Fields()
		fields[timestampField] = ""
		_, _ = h.Write([]byte(strings.Join(fields, "\x1f")))
		_, _ = h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
