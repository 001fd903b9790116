package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a host credential stays valid.
const DefaultSessionTTL = 24 * time.Hour

// TokenStore issues and validates opaque host session tokens. Tokens live in
// process memory with an expiry stamp; a periodic sweep drops the expired
// ones so the map stays small.
type TokenStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.Mutex
	expiry map[string]time.Time
}

// NewTokenStore builds a store with the given TTL (0 means DefaultSessionTTL).
func NewTokenStore(ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenStore{
		ttl:    ttl,
		clock:  time.Now,
		expiry: make(map[string]time.Time),
	}
}

// Create issues a fresh token.
func (s *TokenStore) Create() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.expiry[token] = s.clock().Add(s.ttl)
	s.mu.Unlock()
	return token
}

// IsAuthenticated reports whether the credential is a live token. Expired
// tokens are removed on sight.
func (s *TokenStore) IsAuthenticated(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.expiry[token]
	if !ok {
		return false
	}
	if s.clock().After(deadline) {
		delete(s.expiry, token)
		return false
	}
	return true
}

// Sweep drops expired tokens and returns how many were removed.
func (s *TokenStore) Sweep() int {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, deadline := range s.expiry {
		if now.After(deadline) {
			delete(s.expiry, token)
			removed++
		}
	}
	return removed
}
