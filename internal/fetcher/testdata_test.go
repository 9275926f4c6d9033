package fetcher

import (
	"fmt"
	"strings"
)

// listing describes one server card of a synthetic results page.
type listing struct {
	id          string
	name        string
	description string
	tags        []string
	category    string
	flag        string
	online      string
	bump        string
	omitIcon    bool
	omitOnline  bool
}

func renderListing(l listing) string {
	var b strings.Builder
	b.WriteString(`<div class="column is-one-third-desktop is-half-tablet"><div class="listing-card">`)
	if !l.omitIcon {
		fmt.Fprintf(&b, `<div class="server-icon"><a href="/server/%s"><img alt="%s" src="https://cdn.example.com/icons/%s.png"></a></div>`, l.id, l.name, l.id)
	}
	if l.flag != "" {
		fmt.Fprintf(&b, `<span class="flag-icon flag-icon-%s"></span>`, l.flag)
	}
	if l.category != "" {
		fmt.Fprintf(&b, `<a class="server-category category" href="/servers/category/x">  %s  </a>`, l.category)
	}
	if !l.omitOnline {
		fmt.Fprintf(&b, `<span class="server-online">%s</span>`, l.online)
	}
	if l.bump != "" {
		fmt.Fprintf(&b, `<div class="server-bumped-at" title="%s">bumped</div>`, l.bump)
	}
	if l.description != "" {
		fmt.Fprintf(&b, `<div class="server-description">
			%s
		</div>`, l.description)
	}
	if l.tags != nil {
		b.WriteString(`<ul class="tags">`)
		for _, t := range l.tags {
			fmt.Fprintf(&b, `<li><a title="%s" href="/servers/tag/%s">%s</a></li>`, t, t, t)
		}
		b.WriteString(`</ul>`)
	}
	fmt.Fprintf(&b, `<div class="server-join"><a href="/server/join/%s" data-id="%s">Join</a></div>`, l.id, l.id)
	b.WriteString(`</div></div>`)
	return b.String()
}

func renderPage(listings ...listing) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Search</title></head><body><div class="columns is-multiline">`)
	for _, l := range listings {
		b.WriteString(renderListing(l))
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func basicListing(id string) listing {
	return listing{
		id:     id,
		name:   "Server " + id,
		online: "12",
		tags:   []string{"gaming"},
	}
}
