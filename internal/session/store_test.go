package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memPersister is an in-memory Persister with failure injection.
type memPersister struct {
	mu      sync.Mutex
	data    map[string]GuildSession
	failOn  string
	loads   int
	deletes int
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string]GuildSession)}
}

func (p *memPersister) LoadGuildSession(ctx context.Context, guildID string) (*GuildSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	g, ok := p.data[guildID]
	if !ok {
		return nil, nil
	}
	c := g.Clone()
	return &c, nil
}

func (p *memPersister) SaveGuildSession(ctx context.Context, s *GuildSession) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn == s.GuildID {
		return errors.New("disk full")
	}
	p.data[s.GuildID] = s.Clone()
	return nil
}

func (p *memPersister) DeleteGuildSession(ctx context.Context, guildID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes++
	delete(p.data, guildID)
	return nil
}

func TestStore_UpdateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	if _, ok, err := s.Get(ctx, "guild-1"); ok || err != nil {
		t.Fatalf("Get() on new guild = %v, %v", ok, err)
	}

	got, err := s.Update(ctx, "guild-1", func(g *GuildSession) error {
		g.Theme = "forgotten_catacombs"
		g.Dungeons["crypt"] = StoredDungeon{Name: "crypt", Theme: "forgotten_catacombs", Seed: 42, Rooms: 5}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.GuildID != "guild-1" || got.UpdatedAt.IsZero() {
		t.Errorf("Update() = %+v", got)
	}

	g, ok, err := s.Get(ctx, "guild-1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if g.Theme != "forgotten_catacombs" || g.Dungeons["crypt"].Seed != 42 {
		t.Errorf("Get() = %+v", g)
	}

	// copies are independent of the committed state
	g.Dungeons["other"] = StoredDungeon{Name: "other"}
	g2, _, _ := s.Get(ctx, "guild-1")
	if _, leaked := g2.Dungeons["other"]; leaked {
		t.Error("mutating a Get() result changed the store")
	}
}

func TestStore_MutatorErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	s.Update(ctx, "g", func(g *GuildSession) error { g.Theme = "old"; return nil })

	boom := errors.New("boom")
	_, err := s.Update(ctx, "g", func(g *GuildSession) error {
		g.Theme = "new"
		g.Runs = 99
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	g, _, _ := s.Get(ctx, "g")
	if g.Theme != "old" || g.Runs != 0 {
		t.Errorf("state after failed mutator = %+v", g)
	}
}

func TestStore_PersisterFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	p := newMemPersister()
	s := NewStore(p)

	if _, err := s.Update(ctx, "g", func(g *GuildSession) error { g.Runs = 1; return nil }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	p.failOn = "g"
	if _, err := s.Update(ctx, "g", func(g *GuildSession) error { g.Runs = 2; return nil }); err == nil {
		t.Fatal("Update() should surface persister failure")
	}

	g, _, _ := s.Get(ctx, "g")
	if g.Runs != 1 {
		t.Errorf("Runs = %d, want 1 after failed save", g.Runs)
	}
}

func TestStore_LoadsFromPersister(t *testing.T) {
	ctx := context.Background()
	p := newMemPersister()
	p.data["g"] = GuildSession{GuildID: "g", Theme: "sunken_temple", Runs: 7}

	s := NewStore(p)
	g, ok, err := s.Get(ctx, "g")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if g.Theme != "sunken_temple" || g.Runs != 7 || g.Dungeons == nil {
		t.Errorf("Get() = %+v", g)
	}

	s.Get(ctx, "g")
	if p.loads != 1 {
		t.Errorf("persister loads = %d, want 1", p.loads)
	}

	if _, ok, _ := s.Get(ctx, "unknown"); ok {
		t.Error("Get(unknown) should report missing")
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	p := newMemPersister()
	s := NewStore(p)
	s.Update(ctx, "g", func(g *GuildSession) error { g.Theme = "x"; return nil })

	if err := s.Delete(ctx, "g"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "g"); ok {
		t.Error("session still present after Delete()")
	}
	if p.deletes != 1 || len(p.data) != 0 {
		t.Errorf("persister not cleared: deletes=%d data=%v", p.deletes, p.data)
	}
}

func TestStore_ConcurrentUpdatesNoLostWrite(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemPersister())

	const workers = 50
	const perWorker = 40

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.Update(ctx, "busy-guild", func(g *GuildSession) error {
					g.Runs++
					return nil
				}); err != nil {
					t.Errorf("Update() error = %v", err)
					return
				}
			}
		}()
	}

	// readers only ever see committed values
	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		last := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			g, _, err := s.Get(ctx, "busy-guild")
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			if g.Runs < last {
				t.Errorf("Runs went backwards: %d -> %d", last, g.Runs)
				return
			}
			last = g.Runs
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()

	g, _, _ := s.Get(ctx, "busy-guild")
	if g.Runs != workers*perWorker {
		t.Errorf("Runs = %d, want %d", g.Runs, workers*perWorker)
	}
}

func TestStore_GuildsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	release := make(chan struct{})
	entered := make(chan struct{})
	go s.Update(ctx, "slow", func(g *GuildSession) error {
		close(entered)
		<-release
		return nil
	})
	<-entered

	// another guild must not wait behind the slow update
	done := make(chan struct{})
	go func() {
		s.Update(ctx, "fast", func(g *GuildSession) error { g.Runs++; return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update of another guild blocked")
	}
	close(release)
}

func TestStore_ManyGuilds(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Update(ctx, id, func(g *GuildSession) error { g.Runs++; return nil })
		}(fmt.Sprintf("guild-%d", i))
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("Len() = %d, want 100", s.Len())
	}
}

func TestGuildSession_Clone(t *testing.T) {
	g := New("g")
	g.Dungeons["a"] = StoredDungeon{Name: "a"}
	g.LastRun = &RunSummary{Theme: "x"}

	c := g.Clone()
	c.Dungeons["b"] = StoredDungeon{Name: "b"}
	c.LastRun.Theme = "y"

	if len(g.Dungeons) != 1 || g.LastRun.Theme != "x" {
		t.Error("Clone() shares state with the original")
	}
	if names := c.DungeonNames(); len(names) != 2 || names[0] != "a" {
		t.Errorf("DungeonNames() = %v", names)
	}
	if !New("z").IsZero() || g.IsZero() {
		t.Error("IsZero() mismatch")
	}
}
