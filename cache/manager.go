// Package cache manages provider-side context caches keyed by subject.
//
// Information Hiding:
// - Fingerprinting scheme internalized
// - Per-fingerprint mutual exclusion hidden; callers never see a
//   duplicate remote cache created for the same prefix
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/soham-vohra/git-history-agent/llm"
	"github.com/soham-vohra/git-history-agent/model"
)

// DefaultTTL matches the provider-side cache lifetime requested on create.
const DefaultTTL = time.Hour

// Stats summarizes cache manager activity.
type Stats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Expired int `json:"expired"`
}

// entry tracks one provider-side cache. The entry mutex serializes
// creation per fingerprint; concurrent callers for the same prefix wait
// for one create instead of racing.
type entry struct {
	mu         sync.Mutex
	subjectKey string
	handle     string
	createdAt  time.Time
}

// Manager maps subject fingerprints to provider cache handles. Local
// expiry mirrors the TTL requested from the provider so a handle is never
// used past its server-side lifetime.
type Manager struct {
	provider llm.CacheCapable
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	hits    int
	misses  int
	expired int
}

// NewManager creates a cache manager backed by a cache-capable provider.
// A non-positive ttl falls back to the default.
func NewManager(provider llm.CacheCapable, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

// WithClock overrides the manager's clock. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Fingerprint derives the cache key for a subject and its prefix text.
// Any change to the subject or the prefix yields a new fingerprint, so a
// stale cache can never serve a different block.
func Fingerprint(subject model.BlockRef, prefixContent string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s/%s@%s:%s#%d-%d\n",
		subject.RepoOwner, subject.RepoName, subject.Ref,
		subject.Path, subject.StartLine, subject.EndLine)
	h.Write([]byte(prefixContent))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCreate returns the provider cache handle for the subject's prefix,
// creating it on first use or after expiry. The second return reports
// whether a new provider cache was created.
func (m *Manager) GetOrCreate(ctx context.Context, subject model.BlockRef, prefix llm.CachePrefix) (string, bool, error) {
	fp := Fingerprint(subject, prefix.Content)

	for {
		m.mu.Lock()
		e, ok := m.entries[fp]
		if !ok {
			e = &entry{subjectKey: subject.String()}
			m.entries[fp] = e
		}
		m.mu.Unlock()

		e.mu.Lock()
		if !m.tracks(fp, e) {
			// Invalidated while waiting for the entry lock; start over
			// with a fresh entry.
			e.mu.Unlock()
			continue
		}
		handle, created, err := m.fillLocked(ctx, fp, e, prefix)
		e.mu.Unlock()
		return handle, created, err
	}
}

// fillLocked returns the entry's live handle or creates a fresh provider
// cache for it. Caller holds the entry mutex and the entry is tracked on
// entry; a handle created after Invalidate unmapped the entry mid-call is
// deleted rather than leaked.
func (m *Manager) fillLocked(ctx context.Context, fp string, e *entry, prefix llm.CachePrefix) (string, bool, error) {
	now := m.now()
	if e.handle != "" {
		if now.Sub(e.createdAt) < m.ttl {
			m.count(func() { m.hits++ })
			return e.handle, false, nil
		}
		// Expired locally; the provider copy is on its way out too.
		m.count(func() { m.expired++ })
		m.deleteRemote(ctx, e.handle)
		e.handle = ""
	}

	if prefix.TTL <= 0 {
		prefix.TTL = m.ttl
	}
	handle, err := m.provider.CreateCache(ctx, prefix)
	if err != nil {
		return "", false, fmt.Errorf("create context cache: %w", err)
	}

	if !m.tracks(fp, e) {
		// Invalidate ran while the provider call was in flight. The entry
		// is gone from the map, so storing the handle would strand a
		// remote cache nobody can reach again.
		m.deleteRemote(ctx, handle)
		return "", false, fmt.Errorf("context cache for %s invalidated during creation", e.subjectKey)
	}

	e.handle = handle
	e.createdAt = now
	m.count(func() { m.misses++ })
	return handle, true, nil
}

// tracks reports whether the fingerprint still maps to this entry.
func (m *Manager) tracks(fp string, e *entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[fp] == e
}

// Invalidate drops every cache entry for the subject and deletes the
// provider-side caches best-effort. Returns the number of entries dropped.
func (m *Manager) Invalidate(ctx context.Context, subject model.BlockRef) int {
	key := subject.String()

	m.mu.Lock()
	var victims []*entry
	for fp, e := range m.entries {
		if e.subjectKey == key {
			victims = append(victims, e)
			delete(m.entries, fp)
		}
	}
	m.mu.Unlock()

	for _, e := range victims {
		e.mu.Lock()
		if e.handle != "" {
			m.deleteRemote(ctx, e.handle)
		}
		e.mu.Unlock()
	}
	return len(victims)
}

// Stats reports manager activity counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Entries: len(m.entries),
		Hits:    m.hits,
		Misses:  m.misses,
		Expired: m.expired,
	}
}

// count runs a counter mutation under the manager lock.
func (m *Manager) count(fn func()) {
	m.mu.Lock()
	fn()
	m.mu.Unlock()
}

// deleteRemote removes a provider-side cache, ignoring failures; the
// provider expires its copy on its own schedule anyway.
func (m *Manager) deleteRemote(ctx context.Context, handle string) {
	_ = m.provider.DeleteCache(ctx, handle)
}
