package race

import (
	"sync"

	"github.com/mfortuna/raceodds/internal/telemetry"
)

// Store is a thread-safe map of all live race trackers, keyed by
// session ID.
//
// The RWMutex protects the map itself. It does not protect tracker
// contents; each Tracker serializes its own mutations through its
// inbox goroutine.
type Store struct {
	mu    sync.RWMutex
	races map[string]*Tracker
}

func NewStore() *Store {
	return &Store{
		races: make(map[string]*Tracker),
	}
}

func (s *Store) Put(t *Tracker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.races[t.SessionID()] = t
	telemetry.Metrics.ActiveRaces.Set(int64(len(s.races)))
}

func (s *Store) Get(sessionID string) (*Tracker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.races[sessionID]
	return t, ok
}

// Delete removes a race from the store and shuts down its goroutine.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	t, ok := s.races[sessionID]
	delete(s.races, sessionID)
	telemetry.Metrics.ActiveRaces.Set(int64(len(s.races)))
	s.mu.Unlock()

	if ok {
		t.Close()
	}
}

// All returns a snapshot of the live trackers. Safe for iteration.
func (s *Store) All() []*Tracker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Tracker, 0, len(s.races))
	for _, t := range s.races {
		out = append(out, t)
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.races)
}
