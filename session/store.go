// Package session keeps multi-turn conversation transcripts in memory.
//
// Information Hiding:
// - Eviction policy (idle TTL + capacity) internalized
// - Per-session locking invisible to callers; snapshots are copies
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soham-vohra/git-history-agent/model"
)

// ErrNotFound reports a session that does not exist or has been evicted.
// Evicted and never-existed sessions are indistinguishable to callers.
var ErrNotFound = errors.New("session not found")

// Defaults mirror the store's intended single-process scale.
const (
	DefaultTTL         = time.Hour
	DefaultMaxSessions = 1000
)

// Turn is one message in a conversation transcript.
type Turn struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Subject   *model.BlockRef `json:"subject,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Session is a read-only snapshot of one conversation.
type Session struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	LastTouched time.Time       `json:"last_touched"`
	Subject     *model.BlockRef `json:"subject,omitempty"`
	Turns       []Turn          `json:"turns"`
}

// Stats summarizes the store's occupancy.
type Stats struct {
	TotalSessions  int           `json:"total_sessions"`
	ActiveSessions int           `json:"active_sessions"`
	MaxSessions    int           `json:"max_sessions"`
	TTL            time.Duration `json:"ttl"`
}

// entry is the mutable state behind one session. The entry mutex
// serializes appends per session so different sessions do not contend.
type entry struct {
	mu          sync.Mutex
	id          string
	createdAt   time.Time
	lastTouched time.Time
	subject     *model.BlockRef
	turns       []Turn
}

// Store is an in-memory session store with idle-TTL expiry and a capacity
// bound. All state is lost on process exit.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	ttl         time.Duration
	maxSessions int
	now         func() time.Time
}

// NewStore creates a session store. Non-positive ttl or maxSessions fall
// back to the defaults.
func NewStore(ttl time.Duration, maxSessions int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Store{
		sessions:    make(map[string]*entry),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// WithClock overrides the store's clock. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create registers a new session, evicting expired and oldest sessions if
// the store is at capacity, and returns its id.
func (s *Store) Create(subject *model.BlockRef) string {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		s.evictLocked()
	}

	s.sessions[id] = &entry{
		id:          id,
		createdAt:   now,
		lastTouched: now,
		subject:     subject,
	}
	return id
}

// Append adds turns to a session's transcript in order. Appends to the
// same session are serialized; appends to different sessions proceed in
// parallel.
func (s *Store) Append(id string, turns ...Turn) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	now := s.now()

	e.mu.Lock()
	if s.expired(e, now) {
		e.mu.Unlock()
		s.remove(id)
		return ErrNotFound
	}

	for _, turn := range turns {
		if turn.Timestamp.IsZero() {
			turn.Timestamp = now
		}
		if turn.Subject != nil {
			e.subject = turn.Subject
		}
		e.turns = append(e.turns, turn)
	}
	e.lastTouched = now
	e.mu.Unlock()
	return nil
}

// Get returns a snapshot of the session's transcript and refreshes its
// idle timer. Expired sessions are removed and reported as not found.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}

	now := s.now()

	e.mu.Lock()
	if s.expired(e, now) {
		e.mu.Unlock()
		s.remove(id)
		return Session{}, ErrNotFound
	}
	e.lastTouched = now
	snap := e.snapshot()
	e.mu.Unlock()

	return snap, nil
}

// Delete removes a session. Returns false when the session does not
// exist; deleting twice is safe.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List returns snapshots of all live sessions, newest first. Expired
// sessions are removed along the way.
func (s *Store) List() []Session {
	now := s.now()

	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	live := make([]Session, 0, len(entries))
	var dead []string
	for _, e := range entries {
		e.mu.Lock()
		if s.expired(e, now) {
			dead = append(dead, e.id)
			e.mu.Unlock()
			continue
		}
		live = append(live, e.snapshot())
		e.mu.Unlock()
	}
	for _, id := range dead {
		s.remove(id)
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].LastTouched.After(live[j].LastTouched)
	})
	return live
}

// Stats reports the store's occupancy without mutating it.
func (s *Store) Stats() Stats {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	active := 0
	for _, e := range s.sessions {
		e.mu.Lock()
		if !s.expired(e, now) {
			active++
		}
		e.mu.Unlock()
	}
	return Stats{
		TotalSessions:  len(s.sessions),
		ActiveSessions: active,
		MaxSessions:    s.maxSessions,
		TTL:            s.ttl,
	}
}

// CleanupExpired removes every expired session and returns the count.
func (s *Store) CleanupExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		dead := s.expired(e, now)
		e.mu.Unlock()
		if dead {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// expired reports whether the entry's idle timer has lapsed. Caller holds
// the entry mutex.
func (s *Store) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastTouched) > s.ttl
}

// remove deletes one session from the map.
func (s *Store) remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// evictLocked frees room for one more session: expired sessions first,
// then the oldest by last touch. Caller holds the store write lock.
func (s *Store) evictLocked() {
	now := s.now()

	for id, e := range s.sessions {
		e.mu.Lock()
		dead := s.expired(e, now)
		e.mu.Unlock()
		if dead {
			delete(s.sessions, id)
		}
	}

	// Compare copied timestamps only; an entry's lastTouched may be
	// written by a concurrent Append the moment its mutex is released.
	for len(s.sessions) >= s.maxSessions {
		var oldestID string
		var oldestTouch time.Time
		for id, e := range s.sessions {
			e.mu.Lock()
			touched := e.lastTouched
			e.mu.Unlock()
			if oldestID == "" || touched.Before(oldestTouch) {
				oldestID = id
				oldestTouch = touched
			}
		}
		if oldestID == "" {
			return
		}
		delete(s.sessions, oldestID)
	}
}

// snapshot copies the entry's state. Caller holds the entry mutex.
func (e *entry) snapshot() Session {
	turns := make([]Turn, len(e.turns))
	copy(turns, e.turns)
	return Session{
		ID:          e.id,
		CreatedAt:   e.createdAt,
		LastTouched: e.lastTouched,
		Subject:     e.subject,
		Turns:       turns,
	}
}
