// Package dungeon is the entry point used by the chat layer: it resolves a
// guild's theme, generates and stores dungeons, and triggers content reloads.
package dungeon

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/lawnchairsociety/dungeonforge/internal/compose"
	"github.com/lawnchairsociety/dungeonforge/internal/content"
	"github.com/lawnchairsociety/dungeonforge/internal/database"
	"github.com/lawnchairsociety/dungeonforge/internal/generate"
	"github.com/lawnchairsociety/dungeonforge/internal/logger"
	"github.com/lawnchairsociety/dungeonforge/internal/registry"
	"github.com/lawnchairsociety/dungeonforge/internal/reload"
	"github.com/lawnchairsociety/dungeonforge/internal/session"
)

// MaxSeed is the largest seed picked when a request does not supply one.
const MaxSeed = 999999

// ReloadHistory records reload outcomes. *database.Database implements it.
type ReloadHistory interface {
	RecordReload(ctx context.Context, r database.ReloadRecord) error
}

// Options configures a Service.
type Options struct {
	// ContentDirs are the roots passed to every reload.
	ContentDirs []string

	MaxRooms     int
	DefaultRooms int

	// Persister backs guild sessions. Nil keeps them in memory.
	Persister session.Persister

	// History, when set, receives every reload outcome.
	History ReloadHistory
}

// Service wires the registry store, composer, generator, reload coordinator
// and guild sessions together.
type Service struct {
	store        *registry.Store
	engine       *generate.Engine
	reloader     *reload.Coordinator
	sessions     *session.Store
	history      ReloadHistory
	dirs         []string
	defaultRooms int

	now  func() time.Time
	seed func() int64
}

// NewService creates a service with an empty snapshot. Call Reload to load content.
func NewService(opts Options) *Service {
	store := registry.NewStore()
	composer := compose.New()
	engine := generate.NewEngine(composer, opts.MaxRooms)

	defaultRooms := opts.DefaultRooms
	if defaultRooms < 1 || defaultRooms > engine.MaxRooms() {
		defaultRooms = min(5, engine.MaxRooms())
	}

	return &Service{
		store:        store,
		engine:       engine,
		reloader:     reload.NewCoordinator(store, composer),
		sessions:     session.NewStore(opts.Persister),
		history:      opts.History,
		dirs:         append([]string(nil), opts.ContentDirs...),
		defaultRooms: defaultRooms,
		now:          time.Now,
		seed:         func() int64 { return rand.Int63n(MaxSeed + 1) },
	}
}

// Snapshot returns the currently published content snapshot.
func (s *Service) Snapshot() *registry.Snapshot {
	return s.store.Current()
}

// Sessions exposes the guild session store.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// ResolveTheme picks the theme for a request against snap. An explicit name
// wins; otherwise the guild's preferred theme; otherwise the first loaded
// theme by id.
func (s *Service) ResolveTheme(ctx context.Context, snap *registry.Snapshot, guildID, explicit string) (*content.Theme, error) {
	if strings.TrimSpace(explicit) != "" {
		theme, err := snap.Theme(explicit)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, explicit)
		}
		return theme, nil
	}

	g, ok, err := s.sessions.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if ok && g.Theme != "" {
		theme, err := snap.Theme(g.Theme)
		if err != nil {
			return nil, &StaleThemeError{GuildID: guildID, Theme: g.Theme, Version: snap.Version()}
		}
		return theme, nil
	}

	themes := snap.Themes()
	if len(themes) == 0 {
		return nil, ErrNoThemes
	}
	return themes[0], nil
}

// PrepareOptions describes a dungeon to prepare. Zero values pick defaults.
type PrepareOptions struct {
	Name    string
	Theme   string
	Rooms   int
	Seed    *int64
	Replace bool
}

// Prepare generates a dungeon and stores it for the guild under its name.
// Generation happens outside the guild's session lock.
func (s *Service) Prepare(ctx context.Context, guildID string, opts PrepareOptions) (*generate.DungeonRun, error) {
	snap := s.store.Current()

	theme, err := s.ResolveTheme(ctx, snap, guildID, opts.Theme)
	if err != nil {
		return nil, err
	}

	rooms := opts.Rooms
	if rooms == 0 {
		rooms = s.defaultRooms
	}
	seed := s.seed()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	run, err := s.engine.GenerateRun(ctx, theme, snap, seed, rooms)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(opts.Name); name != "" {
		run.Name = name
	}
	key := dungeonKey(run.Name)
	now := s.now().UTC()

	_, err = s.sessions.Update(ctx, guildID, func(g *session.GuildSession) error {
		if _, exists := g.Dungeons[key]; exists && !opts.Replace {
			return fmt.Errorf("%w: %q", ErrDungeonExists, run.Name)
		}
		g.Dungeons[key] = session.StoredDungeon{
			Name:            run.Name,
			Theme:           theme.ID,
			Seed:            seed,
			Rooms:           rooms,
			SnapshotVersion: snap.Version(),
			RunID:           run.RunID.String(),
			CreatedAt:       now,
		}
		g.LastRun = &session.RunSummary{
			At: now, Dungeon: run.Name, Theme: theme.ID, Seed: seed, Rooms: rooms,
			RunID: run.RunID.String(), Outcome: session.OutcomePrepared,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Dungeon prepared", "guild", guildID, "dungeon", run.Name, "theme", theme.ID,
		"seed", seed, "rooms", rooms, "monsters", run.MonsterCount())
	return run, nil
}

// Start replays a stored dungeon from its seed and room count against the
// current snapshot and records the run.
func (s *Service) Start(ctx context.Context, guildID, name string) (*generate.DungeonRun, error) {
	g, _, err := s.sessions.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	stored, ok := g.Dungeons[dungeonKey(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDungeonNotFound, name)
	}

	snap := s.store.Current()
	theme, err := snap.Theme(stored.Theme)
	if err != nil {
		return nil, &StaleThemeError{GuildID: guildID, Theme: stored.Theme, Version: snap.Version()}
	}
	if stored.SnapshotVersion != snap.Version() {
		logger.Debug("Replaying dungeon on newer content", "guild", guildID, "dungeon", stored.Name,
			"prepared_on", stored.SnapshotVersion, "current", snap.Version())
	}

	run, err := s.engine.GenerateRun(ctx, theme, snap, stored.Seed, stored.Rooms)
	if err != nil {
		return nil, err
	}
	run.Name = stored.Name

	_, err = s.sessions.Update(ctx, guildID, func(g *session.GuildSession) error {
		g.Runs++
		g.LastRun = &session.RunSummary{
			At: s.now().UTC(), Dungeon: stored.Name, Theme: theme.ID, Seed: stored.Seed,
			Rooms: stored.Rooms, RunID: run.RunID.String(), Outcome: session.OutcomeStarted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// DeleteDungeon removes a stored dungeon from the guild.
func (s *Service) DeleteDungeon(ctx context.Context, guildID, name string) error {
	_, err := s.sessions.Update(ctx, guildID, func(g *session.GuildSession) error {
		key := dungeonKey(name)
		if _, ok := g.Dungeons[key]; !ok {
			return fmt.Errorf("%w: %q", ErrDungeonNotFound, name)
		}
		delete(g.Dungeons, key)
		return nil
	})
	return err
}

// ListDungeons returns the guild's stored dungeons sorted by name.
func (s *Service) ListDungeons(ctx context.Context, guildID string) ([]session.StoredDungeon, error) {
	g, ok, err := s.sessions.Get(ctx, guildID)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]session.StoredDungeon, 0, len(g.Dungeons))
	for _, key := range g.DungeonNames() {
		out = append(out, g.Dungeons[key])
	}
	return out, nil
}

// ConfigureTheme sets the guild's preferred theme and returns its id. An
// empty name clears the preference.
func (s *Service) ConfigureTheme(ctx context.Context, guildID, name string) (string, error) {
	var themeID string
	if strings.TrimSpace(name) != "" {
		theme, err := s.store.Current().Theme(name)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownTheme, name)
		}
		themeID = theme.ID
	}

	_, err := s.sessions.Update(ctx, guildID, func(g *session.GuildSession) error {
		g.Theme = themeID
		return nil
	})
	if err != nil {
		return "", err
	}
	return themeID, nil
}

// ReloadReport summarises a successful reload.
type ReloadReport struct {
	Version     uint64
	Fingerprint string
	Counts      map[content.Kind]int
	LoadedAt    time.Time
	Duration    time.Duration
}

// Reload rebuilds content from the configured directories. On failure the
// previous snapshot keeps serving and the error is a *reload.ReloadAbortedError.
func (s *Service) Reload(ctx context.Context) (*ReloadReport, error) {
	start := s.now()
	snap, err := s.reloader.Reload(ctx, s.dirs)
	if err != nil {
		var aborted *reload.ReloadAbortedError
		if errors.As(err, &aborted) {
			s.record(ctx, database.ReloadRecord{
				Version: aborted.ServingVersion,
				Outcome: database.ReloadAborted,
				Detail:  aborted.Err.Error(),
			})
		}
		return nil, err
	}

	report := &ReloadReport{
		Version:     snap.Version(),
		Fingerprint: snap.Fingerprint(),
		Counts:      make(map[content.Kind]int),
		LoadedAt:    snap.LoadedAt(),
		Duration:    s.now().Sub(start),
	}
	for _, kind := range []content.Kind{content.KindMonster, content.KindTrap, content.KindItem, content.KindTheme} {
		report.Counts[kind] = snap.Count(kind)
	}

	s.record(ctx, database.ReloadRecord{
		Version:     report.Version,
		Fingerprint: report.Fingerprint,
		Outcome:     database.ReloadPublished,
		Monsters:    report.Counts[content.KindMonster],
		Traps:       report.Counts[content.KindTrap],
		Items:       report.Counts[content.KindItem],
		Themes:      report.Counts[content.KindTheme],
	})
	return report, nil
}

func (s *Service) record(ctx context.Context, r database.ReloadRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordReload(ctx, r); err != nil {
		logger.Warning("Failed to record reload history", "error", err)
	}
}

func dungeonKey(name string) string {
	return content.NormalizeID(name)
}
