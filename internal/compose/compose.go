// Package compose flattens a theme's references into sampling-ready pools
// and memoizes the result per snapshot version.
package compose

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lawnchairsociety/dungeonforge/internal/content"
	"github.com/lawnchairsociety/dungeonforge/internal/registry"
	"github.com/lawnchairsociety/dungeonforge/internal/sampler"
)

// ConsistencyError reports a theme reference that does not resolve in the
// snapshot it is being composed against. Validation should make this
// impossible, so seeing one means the snapshot was assembled incorrectly.
type ConsistencyError struct {
	Theme   string
	Kind    content.Kind
	ID      string
	Version uint64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("theme %q references %s %q missing from snapshot v%d", e.Theme, e.Kind, e.ID, e.Version)
}

// Room is a room template with its effective encounter table.
type Room struct {
	Template   content.RoomTemplate
	Encounters []sampler.Weighted[string]
}

// CompiledTheme is a theme with every reference resolved against one snapshot.
type CompiledTheme struct {
	Theme    *content.Theme
	Version  uint64
	Rooms    []sampler.Weighted[*Room]
	Monsters []sampler.Weighted[*content.Monster]
	Traps    []sampler.Weighted[*content.Trap]
	Loot     []sampler.Weighted[*content.Item]
}

// DistinctMonsters returns the number of distinct monster ids in the pool.
func (c *CompiledTheme) DistinctMonsters() int {
	seen := make(map[string]struct{}, len(c.Monsters))
	for _, m := range c.Monsters {
		seen[m.Item.ID] = struct{}{}
	}
	return len(seen)
}

type memoKey struct {
	theme   string
	version uint64
}

type memoEntry struct {
	compiled   *CompiledTheme
	generation uint64
}

// Composer memoizes compiled themes keyed by (theme id, snapshot version).
// It is safe for concurrent use. Two goroutines missing the same key may
// both compute it; the results are identical and the last store wins.
type Composer struct {
	memo       sync.Map // memoKey -> memoEntry
	generation atomic.Uint64
	computed   atomic.Uint64
}

// New creates an empty composer.
func New() *Composer {
	return &Composer{}
}

// Invalidate marks every memoized entry as stale. Stale entries are
// recomputed on their next lookup.
func (c *Composer) Invalidate() {
	c.generation.Add(1)
}

// Generation returns the current invalidation generation.
func (c *Composer) Generation() uint64 {
	return c.generation.Load()
}

// Computed returns how many times a theme has actually been compiled.
func (c *Composer) Computed() uint64 {
	return c.computed.Load()
}

// Compose returns the compiled form of theme against snap.
func (c *Composer) Compose(theme *content.Theme, snap *registry.Snapshot) (*CompiledTheme, error) {
	if theme == nil || snap == nil {
		return nil, errors.New("compose: nil theme or snapshot")
	}

	key := memoKey{theme: theme.ID, version: snap.Version()}
	gen := c.generation.Load()
	if v, ok := c.memo.Load(key); ok {
		if e := v.(memoEntry); e.generation == gen {
			return e.compiled, nil
		}
	}

	compiled, err := Compile(theme, snap)
	if err != nil {
		return nil, err
	}
	c.computed.Add(1)
	c.memo.Store(key, memoEntry{compiled: compiled, generation: gen})
	c.dropOlder(key)
	return compiled, nil
}

// dropOlder removes entries for the same theme at older snapshot versions.
func (c *Composer) dropOlder(key memoKey) {
	c.memo.Range(func(k, _ any) bool {
		if mk := k.(memoKey); mk.theme == key.theme && mk.version < key.version {
			c.memo.Delete(k)
		}
		return true
	})
}

// Compile resolves theme against snap without memoization.
func Compile(theme *content.Theme, snap *registry.Snapshot) (*CompiledTheme, error) {
	out := &CompiledTheme{Theme: theme, Version: snap.Version()}

	themeEncounters := theme.Encounters
	if len(themeEncounters) == 0 {
		themeEncounters = content.DefaultEncounters
	}
	for i := range theme.RoomTemplates {
		tmpl := theme.RoomTemplates[i]
		table := tmpl.EncounterWeights
		if len(table) == 0 {
			table = themeEncounters
		}
		room := &Room{Template: tmpl, Encounters: encounterPool(table)}
		out.Rooms = append(out.Rooms, sampler.Weighted[*Room]{Item: room, Weight: tmpl.Weight})
	}

	var err error
	if out.Monsters, err = resolvePool[*content.Monster](theme, snap, content.KindMonster, theme.Monsters); err != nil {
		return nil, err
	}
	if out.Traps, err = resolvePool[*content.Trap](theme, snap, content.KindTrap, theme.Traps); err != nil {
		return nil, err
	}
	if out.Loot, err = resolvePool[*content.Item](theme, snap, content.KindItem, theme.Loot); err != nil {
		return nil, err
	}
	return out, nil
}

func encounterPool(table []content.EncounterWeight) []sampler.Weighted[string] {
	pool := make([]sampler.Weighted[string], 0, len(table))
	for _, e := range table {
		pool = append(pool, sampler.Weighted[string]{Item: e.Kind, Weight: e.Weight})
	}
	return pool
}

func resolvePool[T content.Entity](theme *content.Theme, snap *registry.Snapshot, kind content.Kind, refs []content.WeightedRef) ([]sampler.Weighted[T], error) {
	pool := make([]sampler.Weighted[T], 0, len(refs))
	for _, ref := range refs {
		missing := &ConsistencyError{Theme: theme.ID, Kind: kind, ID: ref.ID, Version: snap.Version()}
		if !snap.Has(kind, ref.ID) {
			return nil, missing
		}
		e, err := snap.Lookup(kind, ref.ID)
		if err != nil {
			return nil, missing
		}
		typed, ok := e.(T)
		if !ok {
			return nil, missing
		}
		pool = append(pool, sampler.Weighted[T]{Item: typed, Weight: ref.Weight})
	}
	return pool, nil
}
