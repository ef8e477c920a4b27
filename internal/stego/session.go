package stego

import "sync"

// Session caches the most recently observed /api/user profile so that quota
// and stats decisions can consult authentication state without a network
// round trip per operation.
type Session struct {
	mu      sync.RWMutex
	profile *UserProfile
}

// NewSession returns a session with no known profile; it reports anonymous
// until Update is called with a logged-in profile.
func NewSession() *Session {
	return &Session{}
}

// Update replaces the cached profile.
func (s *Session) Update(p *UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// Clear drops the cached profile, returning the session to anonymous.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
}

// Authenticated reports whether the last observed profile was logged in.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil && s.profile.LoggedIn
}

// Profile returns the cached profile, or nil when anonymous.
func (s *Session) Profile() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}
