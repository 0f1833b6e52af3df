// Package session binds the externally owned credential to the
// connection supervisor.
package session

import "sync"

// Store is the process-wide session: the current auth token or absence
// thereof. Single-writer discipline: only the Binding mutates it.
type Store struct {
	mu    sync.RWMutex
	token string
}

func NewStore() *Store {
	return &Store{}
}

// Token returns the current token, empty when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is present.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

func (s *Store) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}
