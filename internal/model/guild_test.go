package model

import (
	"testing"
	"time"
)

func sampleGuild() Guild {
	return Guild{
		ID:          81384788765712384,
		Name:        "DiscordAPI",
		Image:       "https://cdn.discordapp.com/icons/81384788765712384/a.png",
		URL:         "https://disboard.org/server/81384788765712384",
		Description: "Unofficial API server",
		Link:        "https://disboard.org/server/join/81384788765712384",
		Tags:        []string{"api", "developers"},
		Category:    "Programming",
		Flag:        "flag-icon-us",
		Online:      1200,
		Timestamp:   1700000000,
		Bump:        1699990000,
	}
}

// TestGuildIdentity tests that identity is based on the ID only.
func TestGuildIdentity(t *testing.T) {
	t.Parallel()

	t.Run("same id with different online counts is the same guild", func(t *testing.T) {
		t.Parallel()

		a := sampleGuild()
		b := sampleGuild()
		b.Online = 42

		if !a.Is(b) {
			t.Error("expected guilds with equal IDs to be the same")
		}
		if a.Equal(b) {
			t.Error("expected guilds with different online counts to be structurally different")
		}
		if a.Key() != b.Key() {
			t.Errorf("expected equal keys, got %d and %d", a.Key(), b.Key())
		}
	})

	t.Run("different ids are different guilds", func(t *testing.T) {
		t.Parallel()

		a := sampleGuild()
		b := sampleGuild()
		b.ID++

		if a.Is(b) {
			t.Error("expected guilds with different IDs to differ")
		}
	})

	t.Run("works as map key through Key", func(t *testing.T) {
		t.Parallel()

		seen := map[int64]Guild{}
		a := sampleGuild()
		b := sampleGuild()
		b.Description = "changed"
		seen[a.Key()] = a
		seen[b.Key()] = b

		if len(seen) != 1 {
			t.Errorf("expected 1 entry, got %d", len(seen))
		}
	})
}

// TestGuildEqual tests structural equality.
func TestGuildEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(g *Guild)
	}{
		{name: "name", modify: func(g *Guild) { g.Name = "x" }},
		{name: "image", modify: func(g *Guild) { g.Image = "x" }},
		{name: "url", modify: func(g *Guild) { g.URL = "x" }},
		{name: "description", modify: func(g *Guild) { g.Description = "" }},
		{name: "link", modify: func(g *Guild) { g.Link = "x" }},
		{name: "tag order", modify: func(g *Guild) { g.Tags = []string{"developers", "api"} }},
		{name: "tag count", modify: func(g *Guild) { g.Tags = []string{"api"} }},
		{name: "category", modify: func(g *Guild) { g.Category = "" }},
		{name: "flag", modify: func(g *Guild) { g.Flag = "" }},
		{name: "timestamp", modify: func(g *Guild) { g.Timestamp++ }},
		{name: "bump", modify: func(g *Guild) { g.Bump = NoBump }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := sampleGuild()
			b := sampleGuild()
			b.Tags = append([]string(nil), a.Tags...)
			tt.modify(&b)

			if a.Equal(b) {
				t.Errorf("expected guilds differing in %s to be unequal", tt.name)
			}
		})
	}

	t.Run("identical values are equal", func(t *testing.T) {
		t.Parallel()
		if !sampleGuild().Equal(sampleGuild()) {
			t.Error("expected identical guilds to be equal")
		}
	})

	t.Run("nil and empty tags are equal", func(t *testing.T) {
		t.Parallel()
		a := sampleGuild()
		b := sampleGuild()
		a.Tags = nil
		b.Tags = []string{}
		if !a.Equal(b) {
			t.Error("expected nil and empty tags to compare equal")
		}
	})
}

// TestGuildSameListing tests listing equality across fetches.
func TestGuildSameListing(t *testing.T) {
	t.Parallel()

	t.Run("timestamp is ignored", func(t *testing.T) {
		t.Parallel()
		a := sampleGuild()
		b := sampleGuild()
		b.Timestamp += 9
		if !a.SameListing(b) {
			t.Error("expected guilds fetched at different times to be the same listing")
		}
		if a.Equal(b) {
			t.Error("expected Equal to still compare the timestamp")
		}
	})

	t.Run("online count is compared", func(t *testing.T) {
		t.Parallel()
		a := sampleGuild()
		b := sampleGuild()
		b.Online++
		if a.SameListing(b) {
			t.Error("expected online change to break listing equality")
		}
	})

	t.Run("description is compared", func(t *testing.T) {
		t.Parallel()
		a := sampleGuild()
		b := sampleGuild()
		b.Description = "new"
		if a.SameListing(b) {
			t.Error("expected description change to break listing equality")
		}
	})
}

// TestGuildFields tests the positional row rendering.
func TestGuildFields(t *testing.T) {
	t.Parallel()

	g := sampleGuild()
	fields := g.Fields()

	if len(fields) != len(FieldNames) {
		t.Fatalf("expected %d fields, got %d", len(FieldNames), len(fields))
	}

	want := []string{
		"81384788765712384",
		"DiscordAPI",
		"https://cdn.discordapp.com/icons/81384788765712384/a.png",
		"https://disboard.org/server/81384788765712384",
		"Unofficial API server",
		"https://disboard.org/server/join/81384788765712384",
		"api,developers",
		"Programming",
		"flag-icon-us",
		"1200",
		"1700000000",
		"1699990000",
	}
	if FieldNames[timestampField] != "timestamp" {
		t.Errorf("timestampField points at %q", FieldNames[timestampField])
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %s: expected %q, got %q", FieldNames[i], want[i], fields[i])
		}
	}

	t.Run("missing bump renders sentinel", func(t *testing.T) {
		t.Parallel()
		g := sampleGuild()
		g.Bump = NoBump
		if got := g.Fields()[11]; got != "-1" {
			t.Errorf("expected -1, got %q", got)
		}
	})
}

// TestGuildTimes tests the time accessors.
func TestGuildTimes(t *testing.T) {
	t.Parallel()

	g := sampleGuild()

	if !g.HasBump() {
		t.Error("expected HasBump to be true")
	}
	if got := g.BumpedAt(); !got.Equal(time.Unix(1699990000, 0)) {
		t.Errorf("unexpected BumpedAt %v", got)
	}
	if got := g.CrawledAt(); !got.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("unexpected CrawledAt %v", got)
	}

	g.Bump = NoBump
	if g.HasBump() {
		t.Error("expected HasBump to be false")
	}
	if !g.BumpedAt().IsZero() {
		t.Error("expected zero BumpedAt without bump")
	}
}
