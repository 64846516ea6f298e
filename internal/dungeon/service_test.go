package dungeon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/lawnchairsociety/dungeonforge/internal/content"
	"github.com/lawnchairsociety/dungeonforge/internal/database"
	"github.com/lawnchairsociety/dungeonforge/internal/reload"
	"github.com/lawnchairsociety/dungeonforge/internal/session"
)

const testMonsters = `
- {id: skeleton, name: Skeleton, challenge: 0.25, hit_points: 13}
- {id: ghast, name: Ghast, challenge: 2, hit_points: 36}
- {id: wight, name: Wight, challenge: 3, hit_points: 45}
- {id: sahuagin, name: Sahuagin, challenge: 0.5, hit_points: 22}
`

const testTraps = `
- {id: pit, name: Hidden Pit, description: The floor gives way.}
`

const testItems = `
- {id: potion_of_healing, name: Potion of Healing, rarity: Common}
`

const testCatacombs = `
id: forgotten_catacombs
name: Forgotten Catacombs
room_templates:
  - name: Ossuary Gallery
    weight: 2
    encounter_weights: {combat: 3, trap: 1, empty: 1}
monsters: [skeleton, ghast, wight]
traps: [pit]
loot: [potion_of_healing]
`

const testTemple = `
id: sunken_temple
name: Sunken Temple
room_templates:
  - name: Flooded Nave
monsters: [sahuagin]
traps: [pit]
loot: [potion_of_healing]
`

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestService(t *testing.T, opts Options) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "monsters/all.yaml", testMonsters)
	writeFile(t, root, "traps/all.yaml", testTraps)
	writeFile(t, root, "items/all.yaml", testItems)
	writeFile(t, root, "themes/catacombs.yaml", testCatacombs)
	writeFile(t, root, "themes/temple.yaml", testTemple)

	opts.ContentDirs = []string{root}
	s := NewService(opts)
	if _, err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	return s, root
}

func seedOf(v int64) *int64 { return &v }

type fakeHistory struct {
	mu      sync.Mutex
	records []database.ReloadRecord
}

func (h *fakeHistory) RecordReload(ctx context.Context, r database.ReloadRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func TestResolveTheme(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, Options{})
	snap := s.Snapshot()

	theme, err := s.ResolveTheme(ctx, snap, "g", "Sunken Temple")
	if err != nil || theme.ID != "sunken_temple" {
		t.Errorf("explicit display name = %v, %v", theme, err)
	}

	if _, err := s.ResolveTheme(ctx, snap, "g", "Abyssal Rift"); !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("unknown explicit theme error = %v, want ErrUnknownTheme", err)
	}

	// no preference: first theme by id
	theme, err = s.ResolveTheme(ctx, snap, "g", "")
	if err != nil || theme.ID != "forgotten_catacombs" {
		t.Errorf("default theme = %v, %v", theme, err)
	}

	if _, err := s.ConfigureTheme(ctx, "g", "sunken_temple"); err != nil {
		t.Fatalf("ConfigureTheme() error = %v", err)
	}
	theme, err = s.ResolveTheme(ctx, snap, "g", "")
	if err != nil || theme.ID != "sunken_temple" {
		t.Errorf("preferred theme = %v, %v", theme, err)
	}
}

func TestResolveTheme_NoThemes(t *testing.T) {
	s := NewService(Options{ContentDirs: []string{t.TempDir()}})
	if _, err := s.ResolveTheme(context.Background(), s.Snapshot(), "g", ""); !errors.Is(err, ErrNoThemes) {
		t.Errorf("ResolveTheme() error = %v, want ErrNoThemes", err)
	}
}

func TestResolveTheme_StaleAfterReload(t *testing.T) {
	ctx := context.Background()
	s, root := newTestService(t, Options{})

	if _, err := s.ConfigureTheme(ctx, "g", "Sunken Temple"); err != nil {
		t.Fatalf("ConfigureTheme() error = %v", err)
	}
	if err := os.Remove(filepath.Join(root, "themes", "temple.yaml")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	_, err := s.ResolveTheme(ctx, s.Snapshot(), "g", "")
	var stale *StaleThemeError
	if !errors.As(err, &stale) {
		t.Fatalf("ResolveTheme() error = %v, want StaleThemeError", err)
	}
	if stale.Theme != "sunken_temple" || stale.Version != 2 {
		t.Errorf("StaleThemeError = %+v", stale)
	}

	// the preference is not touched until the guild picks another theme
	g, _, _ := s.Sessions().Get(ctx, "g")
	if g.Theme != "sunken_temple" {
		t.Errorf("session theme = %q, want it kept", g.Theme)
	}
}

func TestPrepareAndStart(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, Options{})

	prepared, err := s.Prepare(ctx, "g", PrepareOptions{Name: "Bone Pit", Rooms: 6, Seed: seedOf(31337)})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if prepared.Name != "Bone Pit" || len(prepared.Rooms) != 6 || prepared.Seed != 31337 {
		t.Errorf("prepared run = %s, %d rooms, seed %d", prepared.Name, len(prepared.Rooms), prepared.Seed)
	}

	dungeons, err := s.ListDungeons(ctx, "g")
	if err != nil || len(dungeons) != 1 {
		t.Fatalf("ListDungeons() = %v, %v", dungeons, err)
	}
	if d := dungeons[0]; d.Theme != "forgotten_catacombs" || d.Seed != 31337 || d.Rooms != 6 || d.SnapshotVersion != 1 {
		t.Errorf("stored dungeon = %+v", d)
	}

	started, err := s.Start(ctx, "g", "bone pit")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !reflect.DeepEqual(started.Rooms, prepared.Rooms) || started.RunID != prepared.RunID {
		t.Error("Start() on the same content should replay the prepared dungeon")
	}

	g, _, _ := s.Sessions().Get(ctx, "g")
	if g.Runs != 1 || g.LastRun == nil || g.LastRun.Outcome != session.OutcomeStarted || g.LastRun.Dungeon != "Bone Pit" {
		t.Errorf("session after start = runs %d, last %+v", g.Runs, g.LastRun)
	}
}

func TestPrepare_DefaultsAndDuplicates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, Options{DefaultRooms: 4})
	s.seed = func() int64 { return 12 }

	run, err := s.Prepare(ctx, "g", PrepareOptions{Theme: "sunken_temple"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if run.Name != "Sunken Temple Expedition" || len(run.Rooms) != 4 || run.Seed != 12 {
		t.Errorf("defaults = %s, %d rooms, seed %d", run.Name, len(run.Rooms), run.Seed)
	}

	if _, err := s.Prepare(ctx, "g", PrepareOptions{Theme: "sunken_temple"}); !errors.Is(err, ErrDungeonExists) {
		t.Errorf("duplicate Prepare() error = %v, want ErrDungeonExists", err)
	}
	if _, err := s.Prepare(ctx, "g", PrepareOptions{Theme: "sunken_temple", Replace: true, Rooms: 2}); err != nil {
		t.Errorf("Prepare(Replace) error = %v", err)
	}
	dungeons, _ := s.ListDungeons(ctx, "g")
	if len(dungeons) != 1 || dungeons[0].Rooms != 2 {
		t.Errorf("after replace = %+v", dungeons)
	}

	if _, err := s.Prepare(ctx, "g", PrepareOptions{Name: "huge", Rooms: 21}); err == nil {
		t.Error("Prepare() with too many rooms should fail")
	}
}

func TestStart_Errors(t *testing.T) {
	ctx := context.Background()
	s, root := newTestService(t, Options{})

	if _, err := s.Start(ctx, "g", "nothing"); !errors.Is(err, ErrDungeonNotFound) {
		t.Errorf("Start(missing) error = %v, want ErrDungeonNotFound", err)
	}

	if _, err := s.Prepare(ctx, "g", PrepareOptions{Name: "flood", Theme: "sunken_temple", Seed: seedOf(1)}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	os.Remove(filepath.Join(root, "themes", "temple.yaml"))
	if _, err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	var stale *StaleThemeError
	if _, err := s.Start(ctx, "g", "flood"); !errors.As(err, &stale) {
		t.Errorf("Start() on removed theme error = %v, want StaleThemeError", err)
	}
}

func TestDeleteDungeon(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, Options{})

	if _, err := s.Prepare(ctx, "g", PrepareOptions{Name: "Crypt", Seed: seedOf(5)}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := s.DeleteDungeon(ctx, "g", "CRYPT"); err != nil {
		t.Fatalf("DeleteDungeon() error = %v", err)
	}
	if err := s.DeleteDungeon(ctx, "g", "Crypt"); !errors.Is(err, ErrDungeonNotFound) {
		t.Errorf("second DeleteDungeon() error = %v, want ErrDungeonNotFound", err)
	}
}

func TestConfigureTheme(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, Options{})

	id, err := s.ConfigureTheme(ctx, "g", "Forgotten Catacombs")
	if err != nil || id != "forgotten_catacombs" {
		t.Errorf("ConfigureTheme() = %q, %v", id, err)
	}
	if _, err := s.ConfigureTheme(ctx, "g", "nope"); !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("ConfigureTheme(nope) error = %v", err)
	}
	id, err = s.ConfigureTheme(ctx, "g", "")
	if err != nil || id != "" {
		t.Errorf("clearing = %q, %v", id, err)
	}
	g, _, _ := s.Sessions().Get(ctx, "g")
	if g.Theme != "" {
		t.Errorf("theme after clear = %q", g.Theme)
	}
}

func TestReload_Report(t *testing.T) {
	s, _ := newTestService(t, Options{})

	report, err := s.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if report.Version != 2 || report.Fingerprint != s.Snapshot().Fingerprint() {
		t.Errorf("report = v%d %s, snapshot = v%d %s", report.Version, report.Fingerprint,
			s.Snapshot().Version(), s.Snapshot().Fingerprint())
	}
	if report.LoadedAt.IsZero() || !report.LoadedAt.Equal(s.Snapshot().LoadedAt()) {
		t.Errorf("LoadedAt = %v, want snapshot time %v", report.LoadedAt, s.Snapshot().LoadedAt())
	}
	if report.Counts[content.KindTheme] != 2 {
		t.Errorf("theme count = %d, want 2", report.Counts[content.KindTheme])
	}
}

func TestReload_History(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{}
	s, root := newTestService(t, Options{History: history})

	writeFile(t, root, "themes/broken.yaml", "id: broken\nroom_templates: [{name: Hall}]\nloot: [nonexistent_item]\n")
	_, err := s.Reload(ctx)
	var aborted *reload.ReloadAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("Reload() error = %v, want ReloadAbortedError", err)
	}
	if s.Snapshot().Version() != 1 {
		t.Errorf("version = %d after failed reload, want 1", s.Snapshot().Version())
	}

	if len(history.records) != 2 {
		t.Fatalf("history has %d records, want 2", len(history.records))
	}
	if r := history.records[0]; r.Outcome != database.ReloadPublished || r.Themes != 2 || r.Monsters != 4 {
		t.Errorf("first record = %+v", r)
	}
	if r := history.records[1]; r.Outcome != database.ReloadAborted || r.Version != 1 || r.Detail == "" {
		t.Errorf("second record = %+v", r)
	}
}

func TestService_WithDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "dungeon.db"))
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close()

	s, root := newTestService(t, Options{Persister: db, History: db})
	if _, err := s.Prepare(ctx, "guild-9", PrepareOptions{Name: "Vault", Seed: seedOf(9)}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	// a second service over the same database sees the stored dungeon
	other := NewService(Options{ContentDirs: []string{root}, Persister: db})
	if _, err := other.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	run, err := other.Start(ctx, "guild-9", "vault")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if run.Seed != 9 || run.ThemeID != "forgotten_catacombs" {
		t.Errorf("replayed run = seed %d theme %s", run.Seed, run.ThemeID)
	}

	records, err := db.RecentReloads(ctx, 5)
	if err != nil || len(records) != 1 {
		t.Errorf("RecentReloads() = %d records, %v", len(records), err)
	}
	if counts := s.Snapshot().Count(content.KindTheme); counts != 2 {
		t.Errorf("themes = %d", counts)
	}
}
