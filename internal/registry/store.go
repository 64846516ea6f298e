package registry

import (
	"fmt"
	"sync/atomic"
)

// Store publishes the current snapshot. Reads are a single atomic load;
// publishing is a single compare-and-swap.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store whose current snapshot is Empty().
func NewStore() *Store {
	s := &Store{}
	s.current.Store(Empty())
	return s
}

// Current returns the published snapshot. Callers keep the returned pointer
// for the whole request instead of calling Current again.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Publish makes next the current snapshot. The version of next must be
// strictly greater than the current version.
func (s *Store) Publish(next *Snapshot) error {
	if next == nil {
		return fmt.Errorf("registry: cannot publish nil snapshot")
	}
	for {
		cur := s.current.Load()
		if next.version <= cur.version {
			return fmt.Errorf("registry: snapshot v%d is not newer than current v%d", next.version, cur.version)
		}
		if s.current.CompareAndSwap(cur, next) {
			return nil
		}
	}
}
