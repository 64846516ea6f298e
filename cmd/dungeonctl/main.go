// dungeonctl validates content, generates dungeons and manages guild
// sessions from the command line.
//
// Usage:
//
//	go run ./cmd/dungeonctl validate
//	go run ./cmd/dungeonctl generate -theme "Forgotten Catacombs" -seed 42 -rooms 6
//	go run ./cmd/dungeonctl -config data/engine.yaml prepare -guild 123 -name "Bone Pit"
//	go run ./cmd/dungeonctl watch
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lawnchairsociety/dungeonforge/internal/config"
	"github.com/lawnchairsociety/dungeonforge/internal/database"
	"github.com/lawnchairsociety/dungeonforge/internal/dungeon"
	"github.com/lawnchairsociety/dungeonforge/internal/logger"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, cfg *config.EngineConfig, args []string) error
}

var commands = []command{
	{"validate", "load every content root and report counts without publishing", runValidate},
	{"generate", "generate a dungeon and print its outline", runGenerate},
	{"reload", "load content through the service and record the outcome", runReload},
	{"prepare", "generate and store a dungeon for a guild", runPrepare},
	{"start", "replay a stored dungeon for a guild", runStart},
	{"list", "list a guild's stored dungeons", runList},
	{"theme", "show or set a guild's preferred theme", runTheme},
	{"history", "show recent reload outcomes", runHistory},
	{"guilds", "list guilds that prefer a theme", runGuilds},
	{"watch", "keep content loaded and reload on SIGHUP", runWatch},
	{"migrate-sessions", "copy guild sessions from a SQLite file into the configured database", runMigrateSessions},
}

func main() {
	configFile := flag.String("config", "data/engine.yaml", "Path to engine config YAML file")
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	flag.Usage = usage
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load engine config: %v", err)
	}

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(cfg.LoggingConfig)
	if err != nil {
		log.Printf("Failed to load logging config, using defaults: %v", err)
		logConfig = logger.DefaultConfig()
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := cmd.run(ctx, cfg, flag.Args()[1:])
		stop()
		if err != nil {
			logger.Error("Command failed", "command", name, "error", err)
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: dungeonctl [-config file] [-env file] <command> [flags]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-17s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

// openDatabase opens the session database named by cfg. An empty driver
// returns nil: sessions then live in memory only.
func openDatabase(cfg config.DatabaseConfig) (*database.Database, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		return database.Open(cfg.SQLitePath)
	default:
		return database.OpenWithConfig(database.Config{
			Driver:   cfg.Driver,
			Postgres: database.DefaultPostgresConfig(cfg.PostgresDSN),
		})
	}
}

// newService builds a service over the configured content roots and
// database, and loads content once.
func newService(ctx context.Context, cfg *config.EngineConfig) (*dungeon.Service, *database.Database, error) {
	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	opts := dungeon.Options{
		ContentDirs:  cfg.Content.Dirs,
		MaxRooms:     cfg.Generation.MaxRooms,
		DefaultRooms: cfg.Generation.DefaultRooms,
	}
	if db != nil {
		opts.Persister = db
		opts.History = db
	}

	svc := dungeon.NewService(opts)
	if _, err := svc.Reload(ctx); err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	return svc, db, nil
}
