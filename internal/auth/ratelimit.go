package auth

import (
	"sync"
	"time"
)

// Rate limit windows mirror the deployment they were tuned for: login
// attempts get a long window, socket actions a short one.
const (
	LoginWindow      = 15 * time.Minute
	LoginMaxAttempts = 5

	SocketWindow     = time.Minute
	PlayerJoinMax    = 10
	HostActionMax    = 5
	HostGetStateMax  = 30
	CleanupInterval  = 5 * time.Minute
)

type limitEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter tracks attempt counts per key over fixed windows. Keys combine
// an action prefix with a caller identifier (usually the remote address), so
// the same store covers every throttled action.
type RateLimiter struct {
	clock func() time.Time

	mu       sync.Mutex
	attempts map[string]limitEntry
}

// NewRateLimiter builds an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		clock:    time.Now,
		attempts: make(map[string]limitEntry),
	}
}

// Allow records an attempt under key and reports whether it fits within
// maxAttempts per window.
func (l *RateLimiter) Allow(key string, window time.Duration, maxAttempts int) bool {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.attempts[key]
	if !ok || !now.Before(entry.resetAt) {
		l.attempts[key] = limitEntry{count: 1, resetAt: now.Add(window)}
		return true
	}
	entry.count++
	l.attempts[key] = entry
	return entry.count <= maxAttempts
}

// AllowLogin throttles credential attempts for an address.
func (l *RateLimiter) AllowLogin(addr string) bool {
	return l.Allow("login:"+addr, LoginWindow, LoginMaxAttempts)
}

// AllowPlayerJoin throttles player join attempts for an address.
func (l *RateLimiter) AllowPlayerJoin(addr string) bool {
	return l.Allow("player:join:"+addr, SocketWindow, PlayerJoinMax)
}

// AllowHostCreate throttles room creation for an address.
func (l *RateLimiter) AllowHostCreate(addr string) bool {
	return l.Allow("host:create:"+addr, SocketWindow, HostActionMax)
}

// AllowHostJoin throttles host room-join attempts for an address.
func (l *RateLimiter) AllowHostJoin(addr string) bool {
	return l.Allow("host:join:"+addr, SocketWindow, HostActionMax)
}

// AllowHostGetState throttles state polling for an address.
func (l *RateLimiter) AllowHostGetState(addr string) bool {
	return l.Allow("host:get_state:"+addr, SocketWindow, HostGetStateMax)
}

// Sweep drops windows that have fully elapsed and returns how many were
// removed. Entries are short-lived, so an infrequent pass keeps the map flat.
func (l *RateLimiter) Sweep() int {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, entry := range l.attempts {
		if !now.Before(entry.resetAt) {
			delete(l.attempts, key)
			removed++
		}
	}
	return removed
}
