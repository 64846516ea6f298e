package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/dungeonforge/internal/config"
	"github.com/lawnchairsociety/dungeonforge/internal/content"
	"github.com/lawnchairsociety/dungeonforge/internal/database"
	"github.com/lawnchairsociety/dungeonforge/internal/dungeon"
	"github.com/lawnchairsociety/dungeonforge/internal/generate"
	"github.com/lawnchairsociety/dungeonforge/internal/logger"
	"github.com/lawnchairsociety/dungeonforge/internal/reload"
)

var kinds = []content.Kind{content.KindMonster, content.KindTrap, content.KindItem, content.KindTheme}

func runValidate(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)

	snap, err := reload.Build(ctx, cfg.Content.Dirs, 1, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Content OK (%s)\n", strings.Join(snap.Sources(), ", "))
	for _, kind := range kinds {
		fmt.Printf("  %-8s %d\n", kind, snap.Count(kind))
	}
	fmt.Printf("  fingerprint %s\n", snap.Fingerprint())
	return nil
}

func runGenerate(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	themeName := fs.String("theme", "", "Theme id or display name (default: first theme)")
	seed := fs.Int64("seed", -1, "Seed (default: random)")
	rooms := fs.Int("rooms", cfg.Generation.DefaultRooms, "Number of rooms")
	asJSON := fs.Bool("json", false, "Print the run as JSON")
	fs.Parse(args)

	snap, err := reload.Build(ctx, cfg.Content.Dirs, 1, time.Now())
	if err != nil {
		return err
	}

	var theme *content.Theme
	if *themeName != "" {
		if theme, err = snap.Theme(*themeName); err != nil {
			return err
		}
	} else {
		themes := snap.Themes()
		if len(themes) == 0 {
			return dungeon.ErrNoThemes
		}
		theme = themes[0]
	}

	runSeed := *seed
	if runSeed < 0 {
		runSeed = time.Now().UnixNano() % (dungeon.MaxSeed + 1)
	}

	engine := generate.NewEngine(nil, cfg.Generation.MaxRooms)
	run, err := engine.GenerateRun(ctx, theme, snap, runSeed, *rooms)
	if err != nil {
		return err
	}
	return printRun(run, *asJSON)
}

func runReload(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	fs.Parse(args)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	opts := dungeon.Options{ContentDirs: cfg.Content.Dirs, MaxRooms: cfg.Generation.MaxRooms}
	if db != nil {
		defer db.Close()
		opts.History = db
	}

	report, err := dungeon.NewService(opts).Reload(ctx)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func runPrepare(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	guild := fs.String("guild", "", "Guild id (required)")
	name := fs.String("name", "", "Dungeon name (default: \"<Theme> Expedition\")")
	themeName := fs.String("theme", "", "Theme id or display name")
	rooms := fs.Int("rooms", 0, "Number of rooms (default from config)")
	seed := fs.Int64("seed", -1, "Seed (default: random)")
	replace := fs.Bool("replace", false, "Overwrite a stored dungeon with the same name")
	asJSON := fs.Bool("json", false, "Print the run as JSON")
	fs.Parse(args)

	if *guild == "" {
		return fmt.Errorf("-guild is required")
	}

	svc, db, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	opts := dungeon.PrepareOptions{Name: *name, Theme: *themeName, Rooms: *rooms, Replace: *replace}
	if *seed >= 0 {
		opts.Seed = seed
	}
	run, err := svc.Prepare(ctx, *guild, opts)
	if err != nil {
		return err
	}
	return printRun(run, *asJSON)
}

func runStart(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	guild := fs.String("guild", "", "Guild id (required)")
	name := fs.String("name", "", "Stored dungeon name (required)")
	asJSON := fs.Bool("json", false, "Print the run as JSON")
	fs.Parse(args)

	if *guild == "" || *name == "" {
		return fmt.Errorf("-guild and -name are required")
	}

	svc, db, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	run, err := svc.Start(ctx, *guild, *name)
	if err != nil {
		return err
	}
	return printRun(run, *asJSON)
}

func runList(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	guild := fs.String("guild", "", "Guild id (required)")
	fs.Parse(args)

	if *guild == "" {
		return fmt.Errorf("-guild is required")
	}

	svc, db, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	dungeons, err := svc.ListDungeons(ctx, *guild)
	if err != nil {
		return err
	}
	if len(dungeons) == 0 {
		fmt.Println("No stored dungeons.")
		return nil
	}
	for _, d := range dungeons {
		fmt.Printf("%-24s %-22s seed %-7d %2d rooms  v%d\n", d.Name, d.Theme, d.Seed, d.Rooms, d.SnapshotVersion)
	}
	return nil
}

func runTheme(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("theme", flag.ExitOnError)
	guild := fs.String("guild", "", "Guild id (required)")
	set := fs.String("set", "", "Theme to prefer")
	clearPref := fs.Bool("clear", false, "Clear the preferred theme")
	fs.Parse(args)

	if *guild == "" {
		return fmt.Errorf("-guild is required")
	}

	svc, db, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	if *set != "" || *clearPref {
		id, err := svc.ConfigureTheme(ctx, *guild, *set)
		if err != nil {
			return err
		}
		if id == "" {
			fmt.Println("Preferred theme cleared.")
		} else {
			fmt.Printf("Preferred theme set to %s.\n", id)
		}
		return nil
	}

	theme, err := svc.ResolveTheme(ctx, svc.Snapshot(), *guild, "")
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", theme.Name, theme.ID)
	return nil
}

func runHistory(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 10, "Number of entries")
	fs.Parse(args)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if db == nil {
		return fmt.Errorf("reload history needs a database driver")
	}
	defer db.Close()

	records, err := db.RecentReloads(ctx, *limit)
	if err != nil {
		return err
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  v%-4d %-9s", r.RecordedAt.Local().Format(time.DateTime), r.Version, r.Outcome)
		if r.Outcome == database.ReloadPublished {
			line += fmt.Sprintf(" %d monsters, %d traps, %d items, %d themes", r.Monsters, r.Traps, r.Items, r.Themes)
		} else {
			line += " " + r.Detail
		}
		fmt.Println(line)
	}
	return nil
}

func runGuilds(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("guilds", flag.ExitOnError)
	themeID := fs.String("theme", "", "Theme id (required)")
	fs.Parse(args)

	if *themeID == "" {
		return fmt.Errorf("-theme is required")
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if db == nil {
		return fmt.Errorf("guild lookup needs a database driver")
	}
	defer db.Close()

	guilds, err := db.GuildsUsingTheme(ctx, content.NormalizeID(*themeID))
	if err != nil {
		return err
	}
	fmt.Printf("%d guilds prefer %s\n", len(guilds), content.NormalizeID(*themeID))
	for _, id := range guilds {
		fmt.Println("  " + id)
	}
	return nil
}

func runWatch(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Parse(args)

	svc, db, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	logger.Info("Content loaded, send SIGHUP to reload", "version", svc.Snapshot().Version())

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			return nil
		case <-hup:
			report, err := svc.Reload(ctx)
			if err != nil {
				// the previous snapshot keeps serving
				logger.Warning("Reload failed", "error", err)
				continue
			}
			printReport(report)
		}
	}
}

// runMigrateSessions copies every guild session from a SQLite file into the
// configured database.
func runMigrateSessions(ctx context.Context, cfg *config.EngineConfig, args []string) error {
	fs := flag.NewFlagSet("migrate-sessions", flag.ExitOnError)
	sqlitePath := fs.String("sqlite", "data/dungeonforge.db", "Path to the source SQLite database")
	dryRun := fs.Bool("dry-run", false, "Show what would be migrated without making changes")
	fs.Parse(args)

	if cfg.Database.Driver == "sqlite" && cfg.Database.SQLitePath == *sqlitePath {
		return fmt.Errorf("source and destination are the same database")
	}

	src, err := database.Open(*sqlitePath)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer src.Close()

	dst, err := openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open destination database: %w", err)
	}
	if dst == nil {
		return fmt.Errorf("migrate-sessions needs a database driver")
	}
	defer dst.Close()

	guilds, err := src.ListGuildSessions(ctx)
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Printf("DRY RUN: would migrate %d guild sessions\n", len(guilds))
	}

	migrated := 0
	for _, id := range guilds {
		g, err := src.LoadGuildSession(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			continue
		}
		if *dryRun {
			fmt.Printf("  %s: %d dungeons, theme %q\n", id, len(g.Dungeons), g.Theme)
			continue
		}
		if err := dst.SaveGuildSession(ctx, g); err != nil {
			return fmt.Errorf("guild %s: %w", id, err)
		}
		migrated++
	}

	if !*dryRun {
		logger.Always("Guild sessions migrated", "count", migrated, "from", *sqlitePath, "to", cfg.Database.Driver)
	}
	return nil
}

func printRun(run *generate.DungeonRun, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	fmt.Print(run.Outline())
	return nil
}

func printReport(report *dungeon.ReloadReport) {
	fmt.Printf("Published snapshot v%d at %s in %s (fingerprint %.12s)\n",
		report.Version, report.LoadedAt.Format(time.RFC3339), report.Duration.Round(time.Millisecond), report.Fingerprint)
	for _, kind := range kinds {
		fmt.Printf("  %-8s %d\n", kind, report.Counts[kind])
	}
}
