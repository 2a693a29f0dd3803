package events

import (
	"sync"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// DefaultLockTTL bounds how long one character can hold an NPC event before
// the lock self-expires.
const DefaultLockTTL = 5 * time.Minute

type npcHold struct {
	charName string
	takenAt  time.Time
}

// NPCLock serializes NPC event shopping: only one character visits a given
// event NPC at a time. Re-entrant for the holder; holds expire after the TTL
// so a crashed routine cannot wedge the event.
type NPCLock struct {
	mu    sync.Mutex
	clock shared.Clock
	ttl   time.Duration
	holds map[string]npcHold
}

// NewNPCLock creates a lock table with the default TTL
func NewNPCLock(clock shared.Clock) *NPCLock {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &NPCLock{
		clock: clock,
		ttl:   DefaultLockTTL,
		holds: make(map[string]npcHold),
	}
}

// SetTTL overrides the hold expiry, for tests
func (l *NPCLock) SetTTL(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl = ttl
}

// TryAcquire takes the lock for eventCode. Returns true when the character
// now holds it, including when it already did.
func (l *NPCLock) TryAcquire(eventCode, charName string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	hold, ok := l.holds[eventCode]
	if ok && hold.charName != charName && l.clock.Now().Sub(hold.takenAt) < l.ttl {
		return false
	}
	l.holds[eventCode] = npcHold{charName: charName, takenAt: l.clock.Now()}
	return true
}

// Release drops the lock if the character holds it
func (l *NPCLock) Release(eventCode, charName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hold, ok := l.holds[eventCode]; ok && hold.charName == charName {
		delete(l.holds, eventCode)
	}
}

// ReleaseAllFor drops every lock held by the character
func (l *NPCLock) ReleaseAllFor(charName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for code, hold := range l.holds {
		if hold.charName == charName {
			delete(l.holds, code)
		}
	}
}

// Holder returns the character currently holding the lock, "" when free
func (l *NPCLock) Holder(eventCode string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	hold, ok := l.holds[eventCode]
	if !ok || l.clock.Now().Sub(hold.takenAt) >= l.ttl {
		return ""
	}
	return hold.charName
}
