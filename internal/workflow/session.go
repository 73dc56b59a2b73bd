package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps one machine per workflow session in memory. Sessions
// are ephemeral by design; idle ones are reset (releasing their previews)
// and dropped.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*session
}

type session struct {
	machine  *Machine
	lastSeen time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Create registers a fresh machine and returns its session id.
func (s *SessionStore) Create() (string, *Machine) {
	id := uuid.NewString()
	m := NewMachine()
	s.mu.Lock()
	s.sessions[id] = &session{machine: m, lastSeen: s.now()}
	s.mu.Unlock()
	return id, m
}

// Get returns the machine for a session and refreshes its idle timer.
func (s *SessionStore) Get(id string) (*Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.machine, true
}

// Remove resets and drops a session.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if ok {
		sess.machine.Reset()
	}
}

// Sweep evicts sessions idle beyond the TTL. Evicted machines are reset so
// their preview resources are released.
func (s *SessionStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)
	var evicted []*session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			evicted = append(evicted, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, sess := range evicted {
		sess.machine.Reset()
	}
	return len(evicted)
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
