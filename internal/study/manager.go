package study

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	ownerID  string
	session  *Session
	lastUsed time.Time
}

// Manager holds the server-side sittings, keyed by an opaque session id.
// The mutex guards the map only; each Session is driven by a single
// client at a time and needs no internal locking.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates an empty session manager
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*entry)}
}

// Put registers a sitting for ownerID and returns its session id.
func (m *Manager) Put(ownerID string, s *Session) string {
	id := uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = &entry{ownerID: ownerID, session: s, lastUsed: time.Now()}
	m.mu.Unlock()

	return id
}

// Get returns the sitting for id if ownerID owns it. A wrong owner looks
// identical to a missing session.
func (m *Manager) Get(id, ownerID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.ownerID != ownerID {
		return nil, false
	}
	e.lastUsed = time.Now()
	return e.session, true
}

// Remove disposes the sitting for id if ownerID owns it.
func (m *Manager) Remove(id, ownerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.ownerID != ownerID {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Prune drops sittings idle for longer than maxAge and reports how many
// were removed.
func (m *Manager) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
