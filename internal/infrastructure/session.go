package infrastructure

import (
	"sync"
	"time"
)

// ContactSession serializes automation steps for one contact. Two messages
// from the same phone must not walk the graph concurrently.
type ContactSession struct {
	Key          string
	IsProcessing bool
	LastInbound  time.Time
	mu           sync.Mutex
}

// SessionManager tracks per-contact sessions across all tenants.
type SessionManager struct {
	sessions map[string]*ContactSession
	mu       sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*ContactSession),
	}
}

// GetOrCreateSession returns the session for a schema+phone pair.
func (sm *SessionManager) GetOrCreateSession(schema, phone string) *ContactSession {
	key := schema + "/" + phone
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[key]
	if !exists {
		session = &ContactSession{Key: key}
		sm.sessions[key] = session
	}
	return session
}

// TryAcquire claims the session for processing. Returns false when another
// step is still running for this contact.
func (cs *ContactSession) TryAcquire() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.IsProcessing {
		return false
	}
	cs.IsProcessing = true
	cs.LastInbound = time.Now()
	return true
}

// Release marks the session idle again.
func (cs *ContactSession) Release() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.IsProcessing = false
}

// Cleanup drops sessions idle longer than maxIdle.
func (sm *SessionManager) Cleanup(maxIdle time.Duration) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for key, s := range sm.sessions {
		s.mu.Lock()
		stale := !s.IsProcessing && now.Sub(s.LastInbound) > maxIdle
		s.mu.Unlock()
		if stale {
			delete(sm.sessions, key)
		}
	}
}
