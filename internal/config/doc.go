// Package config provides configuration structures and utilities for guildcrawl.
// It defines the crawl cadence, transport settings, output preferences and the
// optional YAML configuration file with per-keyword overrides.
package config
