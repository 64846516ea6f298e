// Package reload builds fresh registry snapshots from content directories
// and publishes them only when every record validates.
package reload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lawnchairsociety/dungeonforge/internal/compose"
	"github.com/lawnchairsociety/dungeonforge/internal/content"
	"github.com/lawnchairsociety/dungeonforge/internal/logger"
	"github.com/lawnchairsociety/dungeonforge/internal/registry"
)

// ReloadAbortedError wraps the first failure of an aborted reload. The
// snapshot that was current before the attempt is still being served.
type ReloadAbortedError struct {
	Err            error
	ServingVersion uint64
}

func (e *ReloadAbortedError) Error() string {
	return fmt.Sprintf("reload aborted, still serving v%d: %v", e.ServingVersion, e.Err)
}

func (e *ReloadAbortedError) Unwrap() error {
	return e.Err
}

// Coordinator serializes reloads against one store. Readers of the store
// never wait on it.
type Coordinator struct {
	mu       sync.Mutex
	store    *registry.Store
	composer *compose.Composer
	now      func() time.Time
}

// NewCoordinator creates a coordinator publishing into store. composer may
// be nil when no memoized compositions need invalidating.
func NewCoordinator(store *registry.Store, composer *compose.Composer) *Coordinator {
	return &Coordinator{store: store, composer: composer, now: time.Now}
}

// Reload reads every content root, validates all of it, and publishes the
// result as the next snapshot. On any failure nothing is published and a
// *ReloadAbortedError is returned.
func (c *Coordinator) Reload(ctx context.Context, dirs []string) (*registry.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	current := c.store.Current()
	log := logger.With("component", "reload", "serving", current.Version())

	next, err := Build(ctx, dirs, current.Version()+1, start)
	if err == nil {
		err = c.store.Publish(next)
	}
	if err != nil {
		log.Error("Content reload aborted", "error", err)
		return nil, &ReloadAbortedError{Err: err, ServingVersion: current.Version()}
	}

	if c.composer != nil {
		c.composer.Invalidate()
	}

	logger.Always("Content reload published",
		"version", next.Version(),
		"monsters", next.Count(content.KindMonster),
		"traps", next.Count(content.KindTrap),
		"items", next.Count(content.KindItem),
		"themes", next.Count(content.KindTheme),
		"fingerprint", next.Fingerprint()[:12],
		"duration", c.now().Sub(start))
	return next, nil
}

// loaded is a validated record with the location it came from.
type loaded struct {
	value any
	loc   content.Location
}

// Build reads and validates the content under dirs into a snapshot with the
// given version without publishing it. Entity kinds are read concurrently;
// themes are validated afterwards against the assembled entities.
func Build(ctx context.Context, dirs []string, version uint64, loadedAt time.Time) (*registry.Snapshot, error) {
	if len(dirs) == 0 {
		return nil, errors.New("no content directories given")
	}
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open content root: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("content root %s is not a directory", dir)
		}
	}

	results := make([][]loaded, len(content.EntityKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range content.EntityKinds {
		g.Go(func() error {
			recs, err := loadKind(gctx, dirs, kind, nil)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := registry.NewBuilder()
	for _, dir := range dirs {
		b.AddSource(dir)
	}
	for _, recs := range results {
		if err := addAll(b, recs); err != nil {
			return nil, err
		}
	}

	themes, err := loadKind(ctx, dirs, content.KindTheme, b)
	if err != nil {
		return nil, err
	}
	if err := addAll(b, themes); err != nil {
		return nil, err
	}

	return b.Build(version, loadedAt), nil
}

// loadKind decodes and validates every file of kind across dirs, in root
// order then file name order.
func loadKind(ctx context.Context, dirs []string, kind content.Kind, refs content.Resolver) ([]loaded, error) {
	var out []loaded
	for _, dir := range dirs {
		files, err := content.ListFiles(filepath.Join(dir, kind.Dir()))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", kind.Dir(), err)
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			records, err := content.DecodeFile(file)
			if err != nil {
				return nil, err
			}
			values, err := content.ValidateRecords(records, kind, refs)
			if err != nil {
				return nil, err
			}
			for i, v := range values {
				out = append(out, loaded{value: v, loc: records[i].Loc})
			}
		}
	}
	return out, nil
}

func addAll(b *registry.Builder, recs []loaded) error {
	for _, r := range recs {
		if err := b.Add(r.value, r.loc); err != nil {
			return err
		}
	}
	return nil
}
