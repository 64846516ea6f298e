package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Persister stores sessions outside the process. LoadGuildSession returns
// (nil, nil) for a guild it has never seen.
type Persister interface {
	LoadGuildSession(ctx context.Context, guildID string) (*GuildSession, error)
	SaveGuildSession(ctx context.Context, s *GuildSession) error
	DeleteGuildSession(ctx context.Context, guildID string) error
}

const shardCount = 32

// shard owns a slice of the guild space. mu guards the maps only and is
// never held across a mutator or a persister call.
type shard struct {
	mu       sync.RWMutex
	sessions map[string]*GuildSession
	locks    map[string]*sync.Mutex
}

// Store serializes updates per guild. Guilds in different shards, and
// different guilds in the same shard, never wait on each other's updates.
type Store struct {
	shards    [shardCount]*shard
	persister Persister
	now       func() time.Time
}

// NewStore creates a store. persister may be nil for an in-memory store.
func NewStore(persister Persister) *Store {
	s := &Store{persister: persister, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{
			sessions: make(map[string]*GuildSession),
			locks:    make(map[string]*sync.Mutex),
		}
	}
	return s
}

func (s *Store) shardFor(guildID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(guildID))
	return s.shards[h.Sum32()%shardCount]
}

// guildLock returns the mutex serializing updates of guildID.
func (sh *shard) guildLock(guildID string) *sync.Mutex {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	l, ok := sh.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		sh.locks[guildID] = l
	}
	return l
}

func (sh *shard) committed(guildID string) (*GuildSession, bool) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	g, ok := sh.sessions[guildID]
	return g, ok
}

func (sh *shard) commit(g *GuildSession) {
	sh.mu.Lock()
	sh.sessions[g.GuildID] = g
	sh.mu.Unlock()
}

// Get returns a copy of the committed session. The bool is false when the
// guild has no state yet.
func (s *Store) Get(ctx context.Context, guildID string) (GuildSession, bool, error) {
	sh := s.shardFor(guildID)
	if g, ok := sh.committed(guildID); ok {
		return g.Clone(), true, nil
	}
	if s.persister == nil {
		return GuildSession{}, false, nil
	}

	lock := sh.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	g, err := s.load(ctx, sh, guildID)
	if err != nil {
		return GuildSession{}, false, err
	}
	if g == nil {
		return GuildSession{}, false, nil
	}
	return g.Clone(), true, nil
}

// load returns the committed session, consulting the persister on first
// use. The caller holds the guild lock.
func (s *Store) load(ctx context.Context, sh *shard, guildID string) (*GuildSession, error) {
	if g, ok := sh.committed(guildID); ok {
		return g, nil
	}
	if s.persister == nil {
		return nil, nil
	}
	g, err := s.persister.LoadGuildSession(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session for guild %s: %w", guildID, err)
	}
	if g == nil {
		return nil, nil
	}
	if g.Dungeons == nil {
		g.Dungeons = make(map[string]StoredDungeon)
	}
	sh.commit(g)
	return g, nil
}

// Update applies fn to a copy of the guild's session. The copy becomes the
// committed state only if fn and the persister both succeed; otherwise the
// previous state stays in place and the error is returned. Updates of the
// same guild are applied one at a time.
func (s *Store) Update(ctx context.Context, guildID string, fn func(*GuildSession) error) (GuildSession, error) {
	sh := s.shardFor(guildID)
	lock := sh.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	cur, err := s.load(ctx, sh, guildID)
	if err != nil {
		return GuildSession{}, err
	}
	next := New(guildID)
	if cur != nil {
		next = cur.Clone()
	}

	if err := fn(&next); err != nil {
		return GuildSession{}, err
	}
	next.GuildID = guildID
	next.UpdatedAt = s.now().UTC()

	if s.persister != nil {
		if err := s.persister.SaveGuildSession(ctx, &next); err != nil {
			return GuildSession{}, fmt.Errorf("failed to save session for guild %s: %w", guildID, err)
		}
	}

	committed := next.Clone()
	sh.commit(&committed)
	return next, nil
}

// Delete forgets all state of a guild.
func (s *Store) Delete(ctx context.Context, guildID string) error {
	sh := s.shardFor(guildID)
	lock := sh.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	if s.persister != nil {
		if err := s.persister.DeleteGuildSession(ctx, guildID); err != nil {
			return fmt.Errorf("failed to delete session for guild %s: %w", guildID, err)
		}
	}

	sh.mu.Lock()
	delete(sh.sessions, guildID)
	sh.mu.Unlock()
	return nil
}

// Len returns the number of sessions held in memory.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
