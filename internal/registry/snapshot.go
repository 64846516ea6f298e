// Package registry holds immutable, versioned snapshots of validated content
// and the store that publishes them.
package registry

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/lawnchairsociety/dungeonforge/internal/content"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a lookup for an identifier missing from a snapshot.
type NotFoundError struct {
	Kind    content.Kind
	ID      string
	Version uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in snapshot v%d", e.Kind, e.ID, e.Version)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Snapshot is an immutable bundle of every registry at one version.
// Nothing in a snapshot is modified after Build returns it.
type Snapshot struct {
	version     uint64
	loadedAt    time.Time
	sources     []string
	monsters    map[string]*content.Monster
	traps       map[string]*content.Trap
	items       map[string]*content.Item
	themes      map[string]*content.Theme
	aliases     map[content.Kind]map[string]string // normalized display name -> id
	fingerprint string
}

// Empty returns the version 0 snapshot with no content.
func Empty() *Snapshot {
	return NewBuilder().Build(0, time.Time{})
}

// Version returns the snapshot version.
func (s *Snapshot) Version() uint64 { return s.version }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Sources returns the source roots the snapshot was built from.
func (s *Snapshot) Sources() []string { return append([]string(nil), s.sources...) }

// Fingerprint returns a hex BLAKE2b-256 digest of the snapshot content.
// Two snapshots with identical content have identical fingerprints.
func (s *Snapshot) Fingerprint() string { return s.fingerprint }

// Has reports whether id exists for kind. Display names are not considered.
func (s *Snapshot) Has(kind content.Kind, id string) bool {
	id = content.NormalizeID(id)
	switch kind {
	case content.KindMonster:
		_, ok := s.monsters[id]
		return ok
	case content.KindTrap:
		_, ok := s.traps[id]
		return ok
	case content.KindItem:
		_, ok := s.items[id]
		return ok
	case content.KindTheme:
		_, ok := s.themes[id]
		return ok
	}
	return false
}

// Lookup returns the entity of kind with the given id or display name.
func (s *Snapshot) Lookup(kind content.Kind, id string) (content.Entity, error) {
	key := s.resolve(kind, id)
	switch kind {
	case content.KindMonster:
		if m, ok := s.monsters[key]; ok {
			return m, nil
		}
	case content.KindTrap:
		if t, ok := s.traps[key]; ok {
			return t, nil
		}
	case content.KindItem:
		if i, ok := s.items[key]; ok {
			return i, nil
		}
	}
	return nil, &NotFoundError{Kind: kind, ID: id, Version: s.version}
}

// Theme returns the theme with the given id or display name.
func (s *Snapshot) Theme(nameOrID string) (*content.Theme, error) {
	if t, ok := s.themes[s.resolve(content.KindTheme, nameOrID)]; ok {
		return t, nil
	}
	return nil, &NotFoundError{Kind: content.KindTheme, ID: nameOrID, Version: s.version}
}

// Themes returns all themes sorted by id.
func (s *Snapshot) Themes() []*content.Theme {
	out := make([]*content.Theme, 0, len(s.themes))
	for _, id := range sortedKeys(s.themes) {
		out = append(out, s.themes[id])
	}
	return out
}

// IDs returns the sorted identifiers of kind.
func (s *Snapshot) IDs(kind content.Kind) []string {
	switch kind {
	case content.KindMonster:
		return sortedKeys(s.monsters)
	case content.KindTrap:
		return sortedKeys(s.traps)
	case content.KindItem:
		return sortedKeys(s.items)
	case content.KindTheme:
		return sortedKeys(s.themes)
	}
	return nil
}

// Count returns the number of records of kind.
func (s *Snapshot) Count(kind content.Kind) int {
	return len(s.IDs(kind))
}

// resolve maps a display name to its id when it is not already an id.
func (s *Snapshot) resolve(kind content.Kind, nameOrID string) string {
	key := content.NormalizeID(nameOrID)
	if s.Has(kind, key) {
		return key
	}
	if id, ok := s.aliases[kind][key]; ok {
		return id
	}
	return key
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fingerprintOf hashes the canonical JSON form of the content maps.
// encoding/json sorts map keys, so the digest is independent of load order.
func fingerprintOf(s *Snapshot) string {
	canonical := struct {
		Monsters map[string]*content.Monster `json:"monsters"`
		Traps    map[string]*content.Trap    `json:"traps"`
		Items    map[string]*content.Item    `json:"items"`
		Themes   map[string]*content.Theme   `json:"themes"`
	}{s.monsters, s.traps, s.items, s.themes}

	data, err := json.Marshal(canonical)
	if err != nil {
		// content types are plain data; Marshal cannot fail on them
		panic(fmt.Sprintf("registry: fingerprint marshal: %v", err))
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
