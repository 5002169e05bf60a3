package services

import (
	"sync"
	"time"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

// StateStore is the only writer of per-tenant navigation state. Every read
// returns a copy.
type StateStore struct {
	mu      sync.RWMutex
	log     *logger.Logger
	metrics *observability.Metrics
	states  map[string]navigation.TenantState
	touched map[string]time.Time
}

func NewStateStore(log *logger.Logger, metrics *observability.Metrics) *StateStore {
	return &StateStore{
		log:     log.With("component", "StateStore"),
		metrics: metrics,
		states:  make(map[string]navigation.TenantState),
		touched: make(map[string]time.Time),
	}
}

// Get returns the tenant's state, or the empty state if it has none.
func (s *StateStore) Get(tenant string) navigation.TenantState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[tenant]
	if !ok {
		return navigation.EmptyState()
	}
	return st.Clone()
}

// Apply overwrites the tenant's state. Last write wins; updatedAt never moves
// backwards even if the clock does.
func (s *StateStore) Apply(tenant, remID string, strength navigation.Strength, sourceClientID string, now time.Time) navigation.TenantState {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := now
	if prev, ok := s.states[tenant]; ok && prev.UpdatedAt != nil && prev.UpdatedAt.After(stamp) {
		stamp = *prev.UpdatedAt
	}
	st := navigation.NewState(remID, strength, sourceClientID, stamp)
	s.states[tenant] = st
	s.touched[tenant] = now
	return st.Clone()
}

// Expire clears the tenant and forgets when it was last touched.
func (s *StateStore) Expire(tenant, reason string) {
	s.mu.Lock()
	_, had := s.states[tenant]
	delete(s.states, tenant)
	delete(s.touched, tenant)
	s.mu.Unlock()

	s.metrics.TenantsCleared.Inc()
	s.log.Info("tenant state cleared", "user_id", tenant, "reason", reason, "had_state", had)
}

// Stale lists tenants last touched more than ttl before now.
func (s *StateStore) Stale(now time.Time, ttl time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for tenant, at := range s.touched {
		if now.Sub(at) > ttl {
			out = append(out, tenant)
		}
	}
	return out
}

func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
