// Package main provides the entry point for the guildcrawl CLI.
//
// guildcrawl searches the disboard.org public server directory for a
// keyword, walks the paginated results politely and writes every listed
// guild to a CSV, JSON lines or Markdown file. Each crawl is recorded in a
// local SQLite history so runs can be listed and compared later.
//
// Usage:
//
//	guildcrawl search gaming -o gaming.csv
//	guildcrawl search gaming music -o guilds.json --format json --limit 100
//	guildcrawl history gaming
//
// See --help for all available options.
package main

func main() {
	Execute()
}
