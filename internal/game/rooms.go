package game

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

// Room code alphabet avoids characters that read ambiguously on a projector
// (no I/O/0/1).
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	minRoomCodeLen     = 4
	maxRoomCodeLen     = 12
	defaultRoomCodeLen = 6
)

// Registry owns every live room's state. Each entry carries its own lock so
// events for different rooms never contend; all reads and read-modify-writes
// for one room are serialized through that entry.
type Registry struct {
	codeLen int
	clock   func() time.Time

	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	mu        sync.Mutex
	state     domain.GameState
	touchedAt time.Time
}

// NewRegistry builds a registry generating codes of the given length, clamped
// to 4..12 (0 means the default of 6).
func NewRegistry(codeLen int) *Registry {
	if codeLen == 0 {
		codeLen = defaultRoomCodeLen
	}
	if codeLen < minRoomCodeLen {
		codeLen = minRoomCodeLen
	}
	if codeLen > maxRoomCodeLen {
		codeLen = maxRoomCodeLen
	}
	return &Registry{
		codeLen: codeLen,
		clock:   time.Now,
		rooms:   make(map[string]*room),
	}
}

// Create initializes a lobby for the given quiz under a fresh room code and
// returns the code with the initial state.
func (r *Registry) Create(quiz domain.Quiz, quizRef, hostConnID string) (string, domain.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.newCodeLocked()
	state := domain.NewGameState(code, quiz, quizRef, hostConnID)
	r.rooms[code] = &room{state: state, touchedAt: r.clock()}
	return code, state
}

// newCodeLocked draws codes until one misses the live room map. Collisions
// are vanishingly rare at any supported length, but codes are short enough to
// type so the check stays.
func (r *Registry) newCodeLocked() string {
	for {
		code := randomCode(r.codeLen)
		if _, taken := r.rooms[code]; !taken {
			return code
		}
	}
}

func randomCode(n int) string {
	buf := make([]byte, n)
	alphabetLen := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		buf[i] = roomCodeAlphabet[idx.Int64()]
	}
	return string(buf)
}

// Get returns a copy of the room's current state.
func (r *Registry) Get(roomID string) (domain.GameState, bool) {
	r.mu.RLock()
	entry, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return domain.GameState{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state, true
}

// Set replaces the room's state wholesale.
func (r *Registry) Set(roomID string, state domain.GameState) {
	r.mu.RLock()
	entry, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	entry.state = state
	entry.touchedAt = r.clock()
	entry.mu.Unlock()
}

// Exists reports whether a room code is live.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Update runs fn under the room's lock, atomically replacing the state with
// fn's result. The read-compute-store sequence for one room can never
// interleave with another event for that room.
func (r *Registry) Update(roomID string, fn func(domain.GameState) domain.GameState) (domain.GameState, bool) {
	r.mu.RLock()
	entry, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return domain.GameState{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.state = fn(entry.state)
	entry.touchedAt = r.clock()
	return entry.state, true
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Sweep drops rooms that ended and rooms idle longer than maxIdle, returning
// how many were removed. Untouched rooms would otherwise accumulate for the
// life of the process.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for code, entry := range r.rooms {
		entry.mu.Lock()
		ended := entry.state.Type == domain.StateEnd
		idle := now.Sub(entry.touchedAt) > maxIdle
		entry.mu.Unlock()
		if ended || idle {
			delete(r.rooms, code)
			removed++
		}
	}
	return removed
}
