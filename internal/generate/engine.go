package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lawnchairsociety/dungeonforge/internal/compose"
	"github.com/lawnchairsociety/dungeonforge/internal/content"
	"github.com/lawnchairsociety/dungeonforge/internal/logger"
	"github.com/lawnchairsociety/dungeonforge/internal/registry"
	"github.com/lawnchairsociety/dungeonforge/internal/sampler"
)

// DefaultMaxRooms caps the number of rooms in a single run.
const DefaultMaxRooms = 20

// Caps on spawn counts per room.
const (
	maxMonstersPerRoom = 3
	maxCombatLoot      = 2
	minTreasureLoot    = 1
	maxTreasureLoot    = 3
)

// ErrRoomCount is returned when the requested room count is out of range.
var ErrRoomCount = errors.New("invalid room count")

var (
	corridorShapes   = []string{"short", "winding", "narrow", "collapsed", "sloping", "ancient"}
	corridorFeatures = []string{"etched runes", "toppled statues", "hanging roots", "guttering torches", "dripping moss", "scattered bones"}
)

// Engine turns a theme and a snapshot into dungeon runs.
type Engine struct {
	composer *compose.Composer
	maxRooms int
}

// NewEngine creates an engine that compiles themes through composer.
// A maxRooms of zero or less uses DefaultMaxRooms.
func NewEngine(composer *compose.Composer, maxRooms int) *Engine {
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}
	if composer == nil {
		composer = compose.New()
	}
	return &Engine{composer: composer, maxRooms: maxRooms}
}

// MaxRooms returns the configured room cap.
func (e *Engine) MaxRooms() int {
	return e.maxRooms
}

// GenerateRun builds a run of roomCount rooms from theme using only snap.
// The same theme, snapshot version, seed and room count always produce the
// same run. The context is checked between rooms.
func (e *Engine) GenerateRun(ctx context.Context, theme *content.Theme, snap *registry.Snapshot, seed int64, roomCount int) (*DungeonRun, error) {
	if roomCount < 1 || roomCount > e.maxRooms {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrRoomCount, roomCount, e.maxRooms)
	}

	compiled, err := e.composer.Compose(theme, snap)
	if err != nil {
		var ce *compose.ConsistencyError
		if errors.As(err, &ce) {
			logger.Error("Theme failed to compose against validated snapshot",
				"theme", ce.Theme, "kind", ce.Kind, "id", ce.ID, "version", ce.Version)
		}
		return nil, fmt.Errorf("failed to compose theme %s: %w", theme.ID, err)
	}

	rng := sampler.NewRNG(seed)
	run := &DungeonRun{
		RunID:           RunID(theme.ID, seed, roomCount, snap.Version()),
		Name:            theme.Name + " Expedition",
		ThemeID:         theme.ID,
		ThemeName:       theme.Name,
		Seed:            seed,
		SnapshotVersion: snap.Version(),
		Rooms:           make([]Room, 0, roomCount),
	}

	for i := 0; i < roomCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		room, err := buildRoom(i, compiled, rng)
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", i+1, err)
		}
		run.Rooms = append(run.Rooms, room)

		if i > 0 {
			run.Corridors = append(run.Corridors, buildCorridor(i-1, i, rng))
		}
		for _, drop := range room.Encounter.Loot {
			run.TreasureValue += drop.Value
		}
	}

	run.Draws = rng.Position()
	return run, nil
}

func buildRoom(index int, compiled *compose.CompiledTheme, rng *sampler.RNG) (Room, error) {
	tmpl, err := sampler.Sample("room template", compiled.Rooms, rng)
	if err != nil {
		return Room{}, err
	}
	kind, err := sampler.Sample("encounter", tmpl.Encounters, rng)
	if err != nil {
		return Room{}, err
	}
	enc, err := buildEncounter(kind, compiled, rng)
	if err != nil {
		return Room{}, err
	}

	var parts []string
	if d := strings.TrimSpace(tmpl.Template.Description); d != "" {
		parts = append(parts, d)
	}
	parts = append(parts, enc.Summary)

	room := Room{
		Index:       index,
		Name:        tmpl.Template.Name,
		Template:    tmpl.Template.Name,
		Description: strings.Join(parts, "\n\n"),
		Tags:        append([]string(nil), tmpl.Template.Tags...),
		Encounter:   enc,
	}
	if index > 0 {
		room.Exits = []int{index - 1}
	}
	return room, nil
}

func buildEncounter(kind string, compiled *compose.CompiledTheme, rng *sampler.RNG) (Encounter, error) {
	enc := Encounter{Kind: kind}

	switch kind {
	case content.EncounterCombat:
		if len(compiled.Monsters) == 0 {
			return enc, &sampler.EmptyPoolError{Pool: "monster"}
		}
		count := rng.Between(1, min(maxMonstersPerRoom, compiled.DistinctMonsters()))
		names := make([]string, 0, count)
		for i := 0; i < count; i++ {
			m, err := sampler.Sample("monster", compiled.Monsters, rng)
			if err != nil {
				return enc, err
			}
			enc.Monsters = append(enc.Monsters, MonsterSpawn{
				ID:            m.ID,
				Name:          m.Name,
				Challenge:     m.Challenge,
				HitPoints:     m.HitPoints,
				Damage:        m.Damage.String(),
				AverageDamage: m.Damage.Average(),
				DamageRange:   fmt.Sprintf("%d-%d", m.Damage.Min(), m.Damage.Max()),
			})
			names = append(names, m.Name)
		}
		// stragglers drop loot only when the theme has any
		drops := rng.Between(0, maxCombatLoot)
		if len(compiled.Loot) > 0 {
			loot, err := sampleLoot(compiled, drops, rng)
			if err != nil {
				return enc, err
			}
			enc.Loot = loot
		}
		enc.Summary = fmt.Sprintf("Hostile presence: %s.", strings.Join(names, ", "))

	case content.EncounterTrap:
		t, err := sampler.Sample("trap", compiled.Traps, rng)
		if err != nil {
			return enc, err
		}
		spawn := TrapSpawn{ID: t.ID, Name: t.Name, Description: t.Description}
		if t.SavingThrow != nil {
			spawn.Save = fmt.Sprintf("%s DC %d", strings.ToUpper(t.SavingThrow.Ability), t.SavingThrow.DC)
		}
		summary := fmt.Sprintf("A trap lies in wait: %s.", t.Name)
		if t.Damage != nil {
			spawn.Damage = t.Damage.String()
			spawn.RolledDamage = t.Damage.Roll(rng)
			summary = fmt.Sprintf("A trap lies in wait: %s (%d damage).", t.Name, spawn.RolledDamage)
		}
		enc.Traps = []TrapSpawn{spawn}
		enc.Summary = summary

	case content.EncounterTreasure:
		loot, err := sampleLoot(compiled, rng.Between(minTreasureLoot, maxTreasureLoot), rng)
		if err != nil {
			return enc, err
		}
		enc.Loot = loot
		enc.Summary = "A hidden cache is uncovered."

	case content.EncounterEmpty:
		enc.Summary = "The chamber is silent and nothing stirs."

	default:
		enc.Summary = fmt.Sprintf("Something strange tied to the %s stirs here (%s).", strings.ToLower(compiled.Theme.Name), kind)
	}
	return enc, nil
}

func sampleLoot(compiled *compose.CompiledTheme, n int, rng *sampler.RNG) ([]LootDrop, error) {
	var out []LootDrop
	for i := 0; i < n; i++ {
		item, err := sampler.Sample("loot", compiled.Loot, rng)
		if err != nil {
			return nil, err
		}
		out = append(out, LootDrop{ID: item.ID, Name: item.Name, Rarity: item.Rarity, Value: item.Value()})
	}
	return out, nil
}

func buildCorridor(from, to int, rng *sampler.RNG) Corridor {
	shape := corridorShapes[rng.Intn(len(corridorShapes))]
	feature := corridorFeatures[rng.Intn(len(corridorFeatures))]
	return Corridor{
		From:        from,
		To:          to,
		Description: fmt.Sprintf("A %s corridor lined with %s.", shape, feature),
	}
}
