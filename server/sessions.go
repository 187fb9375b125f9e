package server

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/chazu/tessera/vm"
)

// Session is a persistent evaluation workspace. Definitions made by one
// Evaluate call stay visible to later calls in the same session.
type Session struct {
	ID   string
	Name string

	worker *Worker
	out    *bytes.Buffer
}

// takeOutput returns and clears what the session printed since the last
// call. Must be called on the session's worker goroutine.
func (s *Session) takeOutput() string {
	text := s.out.String()
	s.out.Reset()
	return text
}

// InterpreterFactory builds a fresh interpreter whose print output goes to
// the given buffer.
type InterpreterFactory func(out *bytes.Buffer) *vm.Interpreter

// SessionStore manages evaluation sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nextID   atomic.Uint64
	factory  InterpreterFactory
}

// NewSessionStore creates a session store that builds each session's
// interpreter with factory.
func NewSessionStore(factory InterpreterFactory) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Create creates a new session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	id := fmt.Sprintf("s-%d", s.nextID.Add(1))
	out := &bytes.Buffer{}
	session := &Session{
		ID:     id,
		Name:   name,
		worker: NewWorker(s.factory(out)),
		out:    out,
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	log.Debugf("created session %s", id)
	return session
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Destroy removes a session and stops its worker. It reports whether the
// session existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.worker.Stop()
		log.Debugf("destroyed session %s", id)
	}
	return ok
}

// IDs returns the IDs of all live sessions, sorted.
func (s *SessionStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close destroys every session.
func (s *SessionStore) Close() {
	for _, id := range s.IDs() {
		s.Destroy(id)
	}
}
