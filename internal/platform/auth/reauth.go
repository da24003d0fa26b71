package auth

import (
	"sync"
	"time"
)

// ReauthStore remembers which accounts re-entered their password recently.
// A grant is consumed by the first destructive operation that checks it.
type ReauthStore struct {
	mu     sync.Mutex
	window time.Duration
	grants map[int64]time.Time
	now    func() time.Time
}

// NewReauthStore creates a store whose grants last window (5 minutes when zero).
func NewReauthStore(window time.Duration) *ReauthStore {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &ReauthStore{window: window, grants: make(map[int64]time.Time), now: time.Now}
}

// Grant records a successful password check for userID.
func (s *ReauthStore) Grant(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[userID] = s.now().Add(s.window)
}

// Valid reports whether userID holds an unexpired grant without using it.
func (s *ReauthStore) Valid(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.grants[userID]
	return ok && s.now().Before(exp)
}

// Consume reports whether userID holds an unexpired grant and removes it.
func (s *ReauthStore) Consume(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.grants[userID]
	if !ok {
		return false
	}
	delete(s.grants, userID)
	return s.now().Before(exp)
}

// Sweep drops expired grants and returns how many were removed.
func (s *ReauthStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, exp := range s.grants {
		if !now.Before(exp) {
			delete(s.grants, id)
			n++
		}
	}
	return n
}
