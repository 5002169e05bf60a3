package services

import (
	"sync"
	"time"

	"github.com/yungbote/navrelay/internal/domain/navigation"
)

// ActivityTracker remembers the last update each device produced. It only
// feeds TTL accounting and debugging; nothing is broadcast from here.
type ActivityTracker struct {
	mu      sync.RWMutex
	clients map[string]navigation.ClientActivity
}

func NewActivityTracker() *ActivityTracker {
	return &ActivityTracker{clients: make(map[string]navigation.ClientActivity)}
}

func (t *ActivityTracker) Touch(clientID, tenant, remID string, strength navigation.Strength, now time.Time) {
	t.mu.Lock()
	t.clients[clientID] = navigation.ClientActivity{
		ClientID:     clientID,
		UserID:       tenant,
		LastSeenAt:   now,
		LastRemID:    remID,
		LastStrength: strength,
	}
	t.mu.Unlock()
}

// SweepExpired drops records whose lastSeenAt is more than ttl before now.
func (t *ActivityTracker) SweepExpired(now time.Time, ttl time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, act := range t.clients {
		if now.Sub(act.LastSeenAt) > ttl {
			delete(t.clients, id)
			removed++
		}
	}
	return removed
}

func (t *ActivityTracker) Get(clientID string) (navigation.ClientActivity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	act, ok := t.clients[clientID]
	return act, ok
}

func (t *ActivityTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.clients)
}
