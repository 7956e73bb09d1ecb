package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is the in-memory registry of live attempts, keyed by attempt id.
// Each attempt is owned by the user who started it; anonymous attempts are
// claimed by whoever holds the attempt id.
type Manager struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	sess  *Session
	owner string // empty for anonymous attempts
}

// NewManager creates an empty attempt registry.
func NewManager() *Manager {
	return &Manager{entries: make(map[uuid.UUID]*entry)}
}

// Put registers a live attempt for the given owner.
func (m *Manager) Put(owner string, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sess.AttemptID()] = &entry{sess: sess, owner: owner}
}

// Get returns the attempt if it exists and belongs to owner.
func (m *Manager) Get(id uuid.UUID, owner string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || e.owner != owner {
		return nil, false
	}
	return e.sess, true
}

// Remove releases the attempt's clock and drops it from the registry.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	m.mu.Unlock()
	if ok {
		e.sess.Close()
	}
}

// SubmittedBefore returns the ids of attempts finalized before cutoff.
// Unsubmitted attempts are never returned.
func (m *Manager) SubmittedBefore(cutoff time.Time) []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []uuid.UUID
	for id, e := range m.entries {
		if at, ok := e.sess.SubmittedAt(); ok && at.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len reports the number of live attempts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
