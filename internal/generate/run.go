// Package generate assembles dungeon runs from a compiled theme using a
// seeded random source.
package generate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// runNamespace scopes the deterministic run ids.
var runNamespace = uuid.MustParse("5b0c7c1e-2f43-4d7a-9e55-2d1c6f0a8b31")

// RunID derives a stable identifier from the inputs that determine a run.
// Replaying the same theme, seed, room count and snapshot version yields the same id.
func RunID(themeID string, seed int64, roomCount int, version uint64) uuid.UUID {
	return uuid.NewSHA1(runNamespace, []byte(fmt.Sprintf("%s|%d|%d|%d", themeID, seed, roomCount, version)))
}

// Encounter is what a room holds.
type Encounter struct {
	Kind     string
	Summary  string
	Monsters []MonsterSpawn
	Traps    []TrapSpawn
	Loot     []LootDrop
}

// MonsterSpawn is a monster placed in a room.
type MonsterSpawn struct {
	ID            string
	Name          string
	Challenge     float64
	HitPoints     int
	Damage        string
	AverageDamage int
	DamageRange   string // "min-max"
}

// TrapSpawn is a trap placed in a room.
type TrapSpawn struct {
	ID          string
	Name        string
	Description string
	Save        string // e.g. "DEX DC 13", empty when the trap forces no save
	Damage      string
	// RolledDamage is drawn from the run's seed, so replays roll the same.
	RolledDamage int
}

// LootDrop is an item found in a room.
type LootDrop struct {
	ID     string
	Name   string
	Rarity string
	Value  int
}

// Room is one generated room.
type Room struct {
	Index       int
	Name        string
	Template    string
	Description string
	Tags        []string
	Encounter   Encounter
	Exits       []int
}

// Corridor connects two consecutive rooms.
type Corridor struct {
	From        int
	To          int
	Description string
}

// DungeonRun is the result of one generation request. It is plain data:
// nothing in it points back into the snapshot it was generated from.
type DungeonRun struct {
	RunID           uuid.UUID
	Name            string
	ThemeID         string
	ThemeName       string
	Seed            int64
	SnapshotVersion uint64
	Rooms           []Room
	Corridors       []Corridor
	TreasureValue   int
	Draws           int64 // random draws consumed, for replay diagnostics
}

// EncounterCounts tallies rooms by encounter kind.
func (r *DungeonRun) EncounterCounts() map[string]int {
	counts := make(map[string]int)
	for _, room := range r.Rooms {
		counts[room.Encounter.Kind]++
	}
	return counts
}

// MonsterCount returns the total number of monsters across all rooms.
func (r *DungeonRun) MonsterCount() int {
	n := 0
	for _, room := range r.Rooms {
		n += len(room.Encounter.Monsters)
	}
	return n
}

// Outline renders a short multi-line overview of the run.
func (r *DungeonRun) Outline() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, seed %d, content v%d)\n", r.Name, r.ThemeName, r.Seed, r.SnapshotVersion)
	for i, room := range r.Rooms {
		fmt.Fprintf(&b, "%d. %s [%s] %s\n", room.Index+1, room.Name, room.Encounter.Kind, room.Encounter.Summary)
		if i < len(r.Corridors) {
			fmt.Fprintf(&b, "   %s\n", r.Corridors[i].Description)
		}
	}
	fmt.Fprintf(&b, "Monsters: %d, treasure value: %d gp\n", r.MonsterCount(), r.TreasureValue)
	return b.String()
}
