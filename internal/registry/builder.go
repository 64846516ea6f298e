package registry

import (
	"fmt"
	"time"

	"github.com/lawnchairsociety/dungeonforge/internal/content"
)

// Builder assembles the registries for a new snapshot. It is used by a
// single goroutine and satisfies content.Resolver so themes can be validated
// against the entities added so far.
type Builder struct {
	monsters map[string]*content.Monster
	traps    map[string]*content.Trap
	items    map[string]*content.Item
	themes   map[string]*content.Theme
	origin   map[content.Kind]map[string]content.Location
	aliases  map[content.Kind]map[string]string // normalized display name -> id
	sources  []string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		monsters: make(map[string]*content.Monster),
		traps:    make(map[string]*content.Trap),
		items:    make(map[string]*content.Item),
		themes:   make(map[string]*content.Theme),
		origin:   make(map[content.Kind]map[string]content.Location),
		aliases:  make(map[content.Kind]map[string]string),
	}
}

// AddSource records a source root for the snapshot metadata.
func (b *Builder) AddSource(root string) {
	b.sources = append(b.sources, root)
}

// Resolve maps an identifier or display name of kind to the id of an entity
// added so far. Identifiers win over display names.
func (b *Builder) Resolve(kind content.Kind, nameOrID string) (string, bool) {
	key := content.NormalizeID(nameOrID)
	if _, ok := b.origin[kind][key]; ok {
		return key, true
	}
	id, ok := b.aliases[kind][key]
	return id, ok
}

// Add registers a validated record. Duplicate identifiers within a kind are
// a SchemaError naming both locations.
func (b *Builder) Add(v any, loc content.Location) error {
	var kind content.Kind
	var id, name string
	switch rec := v.(type) {
	case *content.Monster:
		kind, id, name = content.KindMonster, rec.ID, rec.Name
	case *content.Trap:
		kind, id, name = content.KindTrap, rec.ID, rec.Name
	case *content.Item:
		kind, id, name = content.KindItem, rec.ID, rec.Name
	case *content.Theme:
		kind, id, name = content.KindTheme, rec.ID, rec.Name
	default:
		return fmt.Errorf("registry: unsupported record type %T", v)
	}

	if prev, dup := b.origin[kind][id]; dup {
		return &content.SchemaError{
			Loc:    loc,
			Reason: fmt.Sprintf("duplicate %s id %q (first defined in %s)", kind, id, prev),
		}
	}
	if b.origin[kind] == nil {
		b.origin[kind] = make(map[string]content.Location)
	}
	b.origin[kind][id] = loc
	b.addAlias(kind, id, name)

	switch rec := v.(type) {
	case *content.Monster:
		b.monsters[id] = rec
	case *content.Trap:
		b.traps[id] = rec
	case *content.Item:
		b.items[id] = rec
	case *content.Theme:
		b.themes[id] = rec
	}
	return nil
}

// addAlias records name for id. When several entities share a display name
// the lowest id keeps it, so the result does not depend on load order.
func (b *Builder) addAlias(kind content.Kind, id, name string) {
	alias := content.NormalizeID(name)
	if alias == "" {
		return
	}
	if b.aliases[kind] == nil {
		b.aliases[kind] = make(map[string]string)
	}
	if prev, taken := b.aliases[kind][alias]; !taken || id < prev {
		b.aliases[kind][alias] = id
	}
}

// Build freezes the builder into a snapshot with the given version.
// The builder must not be used afterwards.
func (b *Builder) Build(version uint64, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		version:  version,
		loadedAt: loadedAt,
		sources:  append([]string(nil), b.sources...),
		monsters: b.monsters,
		traps:    b.traps,
		items:    b.items,
		themes:   b.themes,
		aliases:  b.aliases,
	}
	s.fingerprint = fingerprintOf(s)
	return s
}
