package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

// sweepInterval bounds how often Create scans for expired entries.
const sweepInterval = time.Minute

type memoryEntry struct {
	sc      *session.Context
	expires time.Time
}

// MemoryStore keeps contexts in process. Values are cloned on the way in
// and out so callers never share state with the store. Entries expire after
// ttl without reads or writes, like the redis driver.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore accepts WithTTL and WithClock.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	s := &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      cfg.ttl,
		now:      cfg.now,
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, sc *session.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.sweep(now)
	if e, ok := s.sessions[sc.SessionID]; ok && now.Before(e.expires) {
		return fmt.Errorf("%w: session %s already exists", ErrVersionConflict, sc.SessionID)
	}

	sc.CreatedAt = now
	sc.UpdatedAt = now
	sc.Version = 1
	s.sessions[sc.SessionID] = memoryEntry{sc: sc.Clone(), expires: now.Add(s.ttl)}
	return nil
}

// Get slides the expiry forward.
func (s *MemoryStore) Get(_ context.Context, id string) (*session.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.expires = s.now().UTC().Add(s.ttl)
	s.sessions[id] = e
	return e.sc.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, sc *session.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.live(sc.SessionID)
	if !ok {
		return ErrNotFound
	}
	if stored.sc.Version != sc.Version {
		return ErrVersionConflict
	}

	now := s.now().UTC()
	sc.Version++
	sc.UpdatedAt = now
	s.sessions[sc.SessionID] = memoryEntry{sc: sc.Clone(), expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]memoryEntry)
	return nil
}

// live returns the entry for id, dropping it if it has expired. Callers hold mu.
func (s *MemoryStore) live(id string) (memoryEntry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().UTC().Before(e.expires) {
		delete(s.sessions, id)
		return memoryEntry{}, false
	}
	return e, true
}

// sweep drops expired entries at most once per sweepInterval. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for id, e := range s.sessions {
		if !now.Before(e.expires) {
			delete(s.sessions, id)
		}
	}
}
