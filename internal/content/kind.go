// Package content defines the dungeon content schema (monsters, traps, items,
// themes), decodes content files and validates records against the schema.
package content

import "strings"

// Kind identifies a content kind.
type Kind string

const (
	KindMonster Kind = "monster"
	KindTrap    Kind = "trap"
	KindItem    Kind = "item"
	KindTheme   Kind = "theme"
)

// EntityKinds are the kinds that themes may reference, in load order.
var EntityKinds = []Kind{KindMonster, KindTrap, KindItem}

// Dir returns the directory role holding files of this kind.
func (k Kind) Dir() string {
	switch k {
	case KindMonster:
		return "monsters"
	case KindTrap:
		return "traps"
	case KindItem:
		return "items"
	case KindTheme:
		return "themes"
	default:
		return string(k) + "s"
	}
}

// NormalizeID lower-cases and trims an identifier or display name for lookup.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
