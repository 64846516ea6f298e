package content

import (
	"fmt"
	"strings"

	"github.com/lawnchairsociety/dungeonforge/internal/dice"
)

// Bounds for numeric fields.
const (
	MaxChallenge  = 30
	MaxArmorClass = 30
	MaxScore      = 30
	MaxDC         = 30

	// MaxWeight caps every sampling weight so a pool total always fits in an int.
	MaxWeight = 1_000_000
)

// Resolver maps an identifier or display name to the canonical id of an
// entity in the registries being assembled. Theme validation only reads
// through it.
type Resolver interface {
	Resolve(kind Kind, nameOrID string) (string, bool)
}

// abilities maps accepted ability spellings to their short form.
var abilities = map[string]string{
	"str": "str", "strength": "str",
	"dex": "dex", "dexterity": "dex",
	"con": "con", "constitution": "con",
	"int": "int", "intelligence": "int",
	"wis": "wis", "wisdom": "wis",
	"cha": "cha", "charisma": "cha",
}

func decodeRecord(rec Record, v any) error {
	if rec.Node == nil {
		return schemaErr(rec.Loc, "record is empty")
	}
	if err := rec.Node.Decode(v); err != nil {
		return schemaErr(rec.Loc, "%v", err)
	}
	return nil
}

// ValidateMonster checks a monster record and builds the Monster.
func ValidateMonster(rec Record) (*Monster, error) {
	var def MonsterDefinition
	if err := decodeRecord(rec, &def); err != nil {
		return nil, err
	}
	field := func(name string) Location { return rec.Loc.At(name, fieldLine(rec.Node, name)) }

	m := &Monster{
		ID:          rec.ID,
		Name:        strings.TrimSpace(def.Name),
		AttackBonus: def.AttackBonus,
		ArmorClass:  10,
		Tags:        copyTags(def.Tags),
	}
	if m.Name == "" {
		m.Name = rec.ID
	}

	if def.Challenge != nil {
		if *def.Challenge < 0 || *def.Challenge > MaxChallenge {
			return nil, rangeErr(field("challenge"), *def.Challenge, "must be between 0 and %d", MaxChallenge)
		}
		m.Challenge = *def.Challenge
	}

	m.HitPoints = 1
	if def.HitPoints != nil {
		if *def.HitPoints < 1 {
			return nil, rangeErr(field("hit_points"), *def.HitPoints, "must be at least 1")
		}
		m.HitPoints = *def.HitPoints
	}

	if def.ArmorClass != nil {
		if *def.ArmorClass < 1 || *def.ArmorClass > MaxArmorClass {
			return nil, rangeErr(field("armor_class"), *def.ArmorClass, "must be between 1 and %d", MaxArmorClass)
		}
		m.ArmorClass = *def.ArmorClass
	}

	damage := def.Damage
	if strings.TrimSpace(damage) == "" {
		damage = "1d6"
	}
	expr, err := dice.Parse(damage)
	if err != nil {
		return nil, schemaErr(field("damage"), "%v", err)
	}
	m.Damage = expr

	if len(def.AbilityScores) > 0 {
		m.AbilityScores = make(map[string]int, len(def.AbilityScores))
		for name, score := range def.AbilityScores {
			short, ok := abilities[NormalizeID(name)]
			if !ok {
				return nil, schemaErr(field("ability_scores"), "unknown ability %q", name)
			}
			if score < 1 || score > MaxScore {
				return nil, rangeErr(field("ability_scores"), score, "%s must be between 1 and %d", short, MaxScore)
			}
			m.AbilityScores[short] = score
		}
	}

	return m, nil
}

// ValidateTrap checks a trap record and builds the Trap.
func ValidateTrap(rec Record) (*Trap, error) {
	var def TrapDefinition
	if err := decodeRecord(rec, &def); err != nil {
		return nil, err
	}
	field := func(name string) Location { return rec.Loc.At(name, fieldLine(rec.Node, name)) }

	t := &Trap{
		ID:          rec.ID,
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Tags:        copyTags(def.Tags),
	}
	if t.Name == "" {
		t.Name = rec.ID
	}

	if def.SavingThrow != nil {
		loc := field("saving_throw")
		short, ok := abilities[NormalizeID(def.SavingThrow.Ability)]
		if !ok {
			return nil, schemaErr(loc.At("ability", 0), "unknown ability %q", def.SavingThrow.Ability)
		}
		if def.SavingThrow.DC == nil {
			return nil, schemaErr(loc.At("dc", 0), "dc is required")
		}
		if dc := *def.SavingThrow.DC; dc < 1 || dc > MaxDC {
			return nil, rangeErr(loc.At("dc", 0), dc, "must be between 1 and %d", MaxDC)
		}
		t.SavingThrow = &SavingThrow{Ability: short, DC: *def.SavingThrow.DC}
	}

	if strings.TrimSpace(def.Damage) != "" {
		expr, err := dice.Parse(def.Damage)
		if err != nil {
			return nil, schemaErr(field("damage"), "%v", err)
		}
		t.Damage = &expr
	}

	return t, nil
}

// ValidateItem checks an item record and builds the Item.
func ValidateItem(rec Record) (*Item, error) {
	var def ItemDefinition
	if err := decodeRecord(rec, &def); err != nil {
		return nil, err
	}

	i := &Item{
		ID:          rec.ID,
		Name:        strings.TrimSpace(def.Name),
		Rarity:      strings.TrimSpace(def.Rarity),
		Description: strings.TrimSpace(def.Description),
		Tags:        copyTags(def.Tags),
	}
	if i.Name == "" {
		i.Name = rec.ID
	}
	if i.Rarity == "" {
		i.Rarity = "Common"
	}
	if !ValidRarity(i.Rarity) {
		return nil, schemaErr(rec.Loc.At("rarity", fieldLine(rec.Node, "rarity")), "unknown rarity %q", i.Rarity)
	}

	return i, nil
}

// ValidateTheme checks a theme record, including that every pool entry names
// an entity known to refs.
func ValidateTheme(rec Record, refs Resolver) (*Theme, error) {
	var def ThemeDefinition
	if err := decodeRecord(rec, &def); err != nil {
		return nil, err
	}
	field := func(name string) Location { return rec.Loc.At(name, fieldLine(rec.Node, name)) }

	theme := &Theme{
		ID:          rec.ID,
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
	}
	if theme.Name == "" {
		theme.Name = rec.ID
	}

	if len(def.RoomTemplates) == 0 {
		return nil, schemaErr(field("room_templates"), "theme must define at least one room template")
	}
	for i, tdef := range def.RoomTemplates {
		tmpl, err := validateRoomTemplate(tdef, rec.Loc.At(fmt.Sprintf("room_templates[%d]", i), tdef.line))
		if err != nil {
			return nil, err
		}
		theme.RoomTemplates = append(theme.RoomTemplates, tmpl)
	}

	if len(def.Encounters) == 0 {
		theme.Encounters = append([]EncounterWeight(nil), DefaultEncounters...)
	} else {
		encounters, err := validateWeights(def.Encounters, field("encounters"))
		if err != nil {
			return nil, err
		}
		theme.Encounters = encounters
	}

	pools := []struct {
		name string
		kind Kind
		defs []RefDefinition
		out  *[]WeightedRef
	}{
		{"monsters", KindMonster, def.Monsters, &theme.Monsters},
		{"traps", KindTrap, def.Traps, &theme.Traps},
		{"loot", KindItem, def.Loot, &theme.Loot},
	}
	for _, pool := range pools {
		for i, ref := range pool.defs {
			wref, err := validateRef(ref, pool.kind, refs, rec.Loc.At(fmt.Sprintf("%s[%d]", pool.name, i), ref.Line))
			if err != nil {
				return nil, err
			}
			*pool.out = append(*pool.out, wref)
		}
	}

	return theme, nil
}

func validateRoomTemplate(def RoomTemplateDefinition, loc Location) (RoomTemplate, error) {
	tmpl := RoomTemplate{
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Weight:      1,
		Tags:        copyTags(def.Tags),
	}
	if tmpl.Name == "" {
		return RoomTemplate{}, schemaErr(loc.At("name", 0), "room template name is required")
	}

	weight := def.Weight
	if weight == nil {
		weight = def.Count
	}
	if weight != nil {
		if err := checkWeight(*weight, loc.At("weight", 0), "weight"); err != nil {
			return RoomTemplate{}, err
		}
		tmpl.Weight = *weight
	}

	if len(def.EncounterWeights) > 0 {
		weights, err := validateWeights(def.EncounterWeights, loc.At("encounter_weights", 0))
		if err != nil {
			return RoomTemplate{}, err
		}
		tmpl.EncounterWeights = weights
	}

	return tmpl, nil
}

func validateWeights(entries WeightMap, loc Location) ([]EncounterWeight, error) {
	seen := make(map[string]bool, len(entries))
	weights := make([]EncounterWeight, 0, len(entries))
	for _, entry := range entries {
		label := NormalizeID(entry.Label)
		entryLoc := loc.At(label, entry.Line)
		if label == "" {
			return nil, schemaErr(entryLoc, "encounter label is empty")
		}
		if seen[label] {
			return nil, schemaErr(entryLoc, "duplicate encounter label %q", label)
		}
		if err := checkWeight(entry.Weight, entryLoc, "weight"); err != nil {
			return nil, err
		}
		seen[label] = true
		weights = append(weights, EncounterWeight{Kind: label, Weight: entry.Weight})
	}
	return weights, nil
}

func validateRef(def RefDefinition, kind Kind, refs Resolver, loc Location) (WeightedRef, error) {
	id := NormalizeID(def.ID)
	if id == "" {
		return WeightedRef{}, schemaErr(loc, "missing identifier for %s reference", kind)
	}

	weight := 1
	if def.Weight != nil {
		weight = *def.Weight
	}
	if err := checkWeight(weight, loc.At("weight", 0), fmt.Sprintf("weight for %q", id)); err != nil {
		return WeightedRef{}, err
	}

	var canonical string
	ok := false
	if refs != nil {
		canonical, ok = refs.Resolve(kind, id)
	}
	if !ok {
		return WeightedRef{}, &ReferenceError{Loc: loc, Kind: kind, ID: id}
	}

	return WeightedRef{ID: canonical, Weight: weight}, nil
}

func checkWeight(weight int, loc Location, what string) error {
	if weight <= 0 {
		return rangeErr(loc, weight, "%s must be a positive integer", what)
	}
	if weight > MaxWeight {
		return rangeErr(loc, weight, "%s must be at most %d", what, MaxWeight)
	}
	return nil
}

func copyTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Validate dispatches on kind. The result is a *Monster, *Trap, *Item or *Theme.
func Validate(rec Record, kind Kind, refs Resolver) (any, error) {
	switch kind {
	case KindMonster:
		return ValidateMonster(rec)
	case KindTrap:
		return ValidateTrap(rec)
	case KindItem:
		return ValidateItem(rec)
	case KindTheme:
		return ValidateTheme(rec, refs)
	default:
		return nil, schemaErr(rec.Loc, "unknown content kind %q", kind)
	}
}

// ValidateRecords validates the decoded records of one file, all-or-nothing:
// the first failure rejects the whole file. Results are in record order.
func ValidateRecords(records []Record, kind Kind, refs Resolver) ([]any, error) {
	out := make([]any, 0, len(records))
	for _, rec := range records {
		v, err := Validate(rec, kind, refs)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
