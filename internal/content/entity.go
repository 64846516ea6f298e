package content

import "github.com/lawnchairsociety/dungeonforge/internal/dice"

// Entity is a validated monster, trap or item. Entities are immutable once
// placed in a snapshot.
type Entity interface {
	EntityID() string
	EntityName() string
	EntityKind() Kind
	EntityTags() []string
}

// Monster is a creature that can appear in combat encounters.
type Monster struct {
	ID            string
	Name          string
	Challenge     float64
	ArmorClass    int
	HitPoints     int
	AttackBonus   int
	Damage        dice.Expr
	AbilityScores map[string]int
	Tags          []string
}

func (m *Monster) EntityID() string     { return m.ID }
func (m *Monster) EntityName() string   { return m.Name }
func (m *Monster) EntityKind() Kind     { return KindMonster }
func (m *Monster) EntityTags() []string { return m.Tags }

// SavingThrow is the check a trap forces on whoever triggers it.
type SavingThrow struct {
	Ability string
	DC      int
}

// Trap is a hazard placed in trap encounters.
type Trap struct {
	ID          string
	Name        string
	Description string
	SavingThrow *SavingThrow
	Damage      *dice.Expr
	Tags        []string
}

func (t *Trap) EntityID() string     { return t.ID }
func (t *Trap) EntityName() string   { return t.Name }
func (t *Trap) EntityKind() Kind     { return KindTrap }
func (t *Trap) EntityTags() []string { return t.Tags }

// Item is a loot item.
type Item struct {
	ID          string
	Name        string
	Rarity      string
	Description string
	Tags        []string
}

func (i *Item) EntityID() string     { return i.ID }
func (i *Item) EntityName() string   { return i.Name }
func (i *Item) EntityKind() Kind     { return KindItem }
func (i *Item) EntityTags() []string { return i.Tags }

// rarityValues is the notional gold value of loot by rarity.
var rarityValues = map[string]int{
	"common":    25,
	"uncommon":  75,
	"rare":      200,
	"very rare": 750,
	"legendary": 2500,
	"artifact":  7500,
}

// Value returns the notional gold value of the item based on its rarity.
func (i *Item) Value() int {
	if v, ok := rarityValues[NormalizeID(i.Rarity)]; ok {
		return v
	}
	return rarityValues["common"]
}

// ValidRarity reports whether rarity is one of the known rarities.
func ValidRarity(rarity string) bool {
	_, ok := rarityValues[NormalizeID(rarity)]
	return ok
}

// WeightedRef is an identifier with a strictly positive weight. Bare
// identifiers in content files are normalised to weight 1 at parse time.
type WeightedRef struct {
	ID     string
	Weight int
}

// EncounterWeight is one entry of an encounter table.
type EncounterWeight struct {
	Kind   string
	Weight int
}

// Encounter kinds with special meaning during generation. Any other label
// is a narrative-only encounter.
const (
	EncounterCombat   = "combat"
	EncounterTrap     = "trap"
	EncounterTreasure = "treasure"
	EncounterEmpty    = "empty"
)

// DefaultEncounters is used when a theme declares no top-level encounter table.
var DefaultEncounters = []EncounterWeight{
	{Kind: EncounterCombat, Weight: 3},
	{Kind: EncounterTrap, Weight: 1},
	{Kind: EncounterTreasure, Weight: 1},
	{Kind: EncounterEmpty, Weight: 1},
}

// RoomTemplate is a reusable room definition inside a theme.
type RoomTemplate struct {
	Name             string
	Description      string
	EncounterWeights []EncounterWeight // empty means "use the theme table"
	Weight           int
	Tags             []string
}

// Theme is a named bundle of room templates and weighted entity pools.
type Theme struct {
	ID            string
	Name          string
	Description   string
	RoomTemplates []RoomTemplate
	Monsters      []WeightedRef
	Traps         []WeightedRef
	Loot          []WeightedRef
	Encounters    []EncounterWeight
}
