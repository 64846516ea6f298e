package content

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MonsterDefinition represents a monster record in a content file.
type MonsterDefinition struct {
	Name          string         `yaml:"name"`
	Challenge     *float64       `yaml:"challenge"`
	ArmorClass    *int           `yaml:"armor_class"`
	HitPoints     *int           `yaml:"hit_points"`
	AttackBonus   int            `yaml:"attack_bonus"`
	Damage        string         `yaml:"damage"`
	AbilityScores map[string]int `yaml:"ability_scores"`
	Tags          []string       `yaml:"tags"`
}

// SavingThrowDefinition represents a trap's saving throw.
type SavingThrowDefinition struct {
	Ability string `yaml:"ability"`
	DC      *int   `yaml:"dc"`
}

// TrapDefinition represents a trap record in a content file.
type TrapDefinition struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	SavingThrow *SavingThrowDefinition `yaml:"saving_throw"`
	Damage      string                 `yaml:"damage"`
	Tags        []string               `yaml:"tags"`
}

// ItemDefinition represents a loot item record in a content file.
type ItemDefinition struct {
	Name        string   `yaml:"name"`
	Rarity      string   `yaml:"rarity"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// RoomTemplateDefinition represents a room template inside a theme record.
type RoomTemplateDefinition struct {
	Name             string    `yaml:"name"`
	Description      string    `yaml:"description"`
	EncounterWeights WeightMap `yaml:"encounter_weights"`
	Weight           *int      `yaml:"weight"`
	Count            *int      `yaml:"count"`
	Tags             []string  `yaml:"tags"`
	line             int
}

// UnmarshalYAML keeps the template's line for error locations.
func (d *RoomTemplateDefinition) UnmarshalYAML(node *yaml.Node) error {
	type plain RoomTemplateDefinition
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = RoomTemplateDefinition(p)
	d.line = node.Line
	return nil
}

// ThemeDefinition represents a theme record in a content file.
type ThemeDefinition struct {
	Name          string                   `yaml:"name"`
	Description   string                   `yaml:"description"`
	RoomTemplates []RoomTemplateDefinition `yaml:"room_templates"`
	Monsters      []RefDefinition          `yaml:"monsters"`
	Traps         []RefDefinition          `yaml:"traps"`
	Loot          []RefDefinition          `yaml:"loot"`
	Encounters    WeightMap                `yaml:"encounters"`
}

// RefDefinition is a weighted reference as written in a file: either a bare
// identifier or a mapping with id (or key/name) and weight (or count).
type RefDefinition struct {
	ID     string
	Weight *int
	Line   int
}

// UnmarshalYAML accepts both reference shapes.
func (r *RefDefinition) UnmarshalYAML(node *yaml.Node) error {
	r.Line = node.Line
	switch node.Kind {
	case yaml.ScalarNode:
		r.ID = node.Value
		return nil

	case yaml.MappingNode:
		var raw struct {
			ID     string `yaml:"id"`
			Key    string `yaml:"key"`
			Name   string `yaml:"name"`
			Weight *int   `yaml:"weight"`
			Count  *int   `yaml:"count"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		switch {
		case raw.ID != "":
			r.ID = raw.ID
		case raw.Key != "":
			r.ID = raw.Key
		default:
			r.ID = raw.Name
		}
		r.Weight = raw.Weight
		if r.Weight == nil {
			r.Weight = raw.Count
		}
		return nil

	default:
		return fmt.Errorf("line %d: reference must be an identifier or a mapping", node.Line)
	}
}

// WeightEntry is one label/weight pair of a WeightMap.
type WeightEntry struct {
	Label  string
	Weight int
	Line   int
}

// WeightMap is a label -> weight mapping that keeps file order, so sampling
// over it is reproducible.
type WeightMap []WeightEntry

// UnmarshalYAML decodes a mapping of label to integer weight.
func (m *WeightMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: weights must be a mapping of label to integer", node.Line)
	}
	entries := make(WeightMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var weight int
		if err := node.Content[i+1].Decode(&weight); err != nil {
			return err
		}
		entries = append(entries, WeightEntry{
			Label:  node.Content[i].Value,
			Weight: weight,
			Line:   node.Content[i].Line,
		})
	}
	*m = entries
	return nil
}
