// Package session keeps per-guild mutable state: preferred theme, stored
// dungeons and the last run summary.
package session

import (
	"sort"
	"time"
)

// StoredDungeon is a prepared dungeon a guild can start later. The seed
// and room count are enough to replay it.
type StoredDungeon struct {
	Name            string    `json:"name"`
	Theme           string    `json:"theme"`
	Seed            int64     `json:"seed"`
	Rooms           int       `json:"rooms"`
	SnapshotVersion uint64    `json:"snapshot_version"`
	RunID           string    `json:"run_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// RunSummary describes the most recent run of a guild.
type RunSummary struct {
	At      time.Time `json:"at"`
	Dungeon string    `json:"dungeon,omitempty"`
	Theme   string    `json:"theme"`
	Seed    int64     `json:"seed"`
	Rooms   int       `json:"rooms"`
	RunID   string    `json:"run_id"`
	Outcome string    `json:"outcome"`
}

// Outcomes recorded in RunSummary.
const (
	OutcomePrepared = "prepared"
	OutcomeStarted  = "started"
)

// GuildSession is the state of one guild.
type GuildSession struct {
	GuildID   string
	Theme     string // preferred theme id, empty for none
	Dungeons  map[string]StoredDungeon
	LastRun   *RunSummary
	Runs      int
	UpdatedAt time.Time
}

// New returns an empty session for guildID.
func New(guildID string) GuildSession {
	return GuildSession{GuildID: guildID, Dungeons: make(map[string]StoredDungeon)}
}

// Clone returns a deep copy.
func (g GuildSession) Clone() GuildSession {
	out := g
	out.Dungeons = make(map[string]StoredDungeon, len(g.Dungeons))
	for name, d := range g.Dungeons {
		out.Dungeons[name] = d
	}
	if g.LastRun != nil {
		run := *g.LastRun
		out.LastRun = &run
	}
	return out
}

// DungeonNames returns the stored dungeon names in sorted order.
func (g GuildSession) DungeonNames() []string {
	names := make([]string, 0, len(g.Dungeons))
	for name := range g.Dungeons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsZero reports whether the session carries no state worth keeping.
func (g GuildSession) IsZero() bool {
	return g.Theme == "" && len(g.Dungeons) == 0 && g.LastRun == nil && g.Runs == 0
}
