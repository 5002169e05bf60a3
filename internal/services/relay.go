package services

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
	"github.com/yungbote/navrelay/internal/realtime/bus"
)

// DefaultTenant is the implicit tenant of a single-tenant relay.
const DefaultTenant = "default"

const busPublishTimeout = 2 * time.Second

// Broadcaster fans a populated state out to the tenant's live sockets and
// returns how many were reached.
type Broadcaster interface {
	Broadcast(tenant string, state navigation.TenantState) int
}

type RelayConfig struct {
	MultiTenant bool
	// Bus is optional; when set, accepted updates are shared with peers.
	Bus bus.Bus
}

// RelayService owns the state store and the activity tracker and is the only
// path through which updates reach them.
type RelayService struct {
	// mu orders apply+broadcast+peer publish so a tenant's sockets and peer
	// relays see updates in the order they were accepted.
	mu sync.Mutex

	log         *logger.Logger
	clk         clock.Clock
	metrics     *observability.Metrics
	store       *StateStore
	tracker     *ActivityTracker
	hub         Broadcaster
	bus         bus.Bus
	multiTenant bool
}

func NewRelayService(log *logger.Logger, clk clock.Clock, metrics *observability.Metrics, hub Broadcaster, cfg RelayConfig) *RelayService {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = observability.New(clk)
	}
	r := &RelayService{
		log:         log.With("component", "RelayService"),
		clk:         clk,
		metrics:     metrics,
		store:       NewStateStore(log, metrics),
		tracker:     NewActivityTracker(),
		hub:         hub,
		bus:         cfg.Bus,
		multiTenant: cfg.MultiTenant,
	}
	metrics.TenantsTracked.Bind(func() int64 { return int64(r.store.Len()) })
	metrics.ClientsTracked.Bind(func() int64 { return int64(r.tracker.Len()) })
	return r
}

func (r *RelayService) MultiTenant() bool { return r.multiTenant }

// Tenant maps a request's userId to the tenant it addresses.
func (r *RelayService) Tenant(userID string) string {
	if !r.multiTenant {
		return DefaultTenant
	}
	return userID
}

// State returns a copy of the tenant's current state.
func (r *RelayService) State(tenant string) navigation.TenantState {
	r.metrics.StateReads.Inc()
	return r.store.Get(tenant)
}

// Publish applies a validated update, records device activity, broadcasts
// the new state and shares it with peer relays, all under r.mu.
func (r *RelayService) Publish(ctx context.Context, u navigation.Update) navigation.TenantState {
	tenant := r.Tenant(u.UserID)

	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.applyLocked(tenant, u.RemID, u.Strength, u.SourceClientID, r.clk.Now())
	r.metrics.UpdatesAccepted.Inc()

	if r.bus != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busPublishTimeout)
		defer cancel()
		err := r.bus.Publish(pubCtx, bus.Envelope{
			UserID:         tenant,
			RemID:          u.RemID,
			Strength:       u.Strength,
			SourceClientID: u.SourceClientID,
			UpdatedAt:      *st.UpdatedAt,
		})
		if err != nil {
			r.metrics.BusErrors.Inc()
			r.log.Warn("peer publish failed", "user_id", tenant, "error", err)
		} else {
			r.metrics.BusPublished.Inc()
		}
	}
	return st
}

// ApplyRemote applies an update accepted by a peer relay. It is stamped with
// the local clock so TTL accounting never depends on a peer's clock, and it
// is never re-published.
func (r *RelayService) ApplyRemote(env bus.Envelope) {
	tenant := r.Tenant(env.UserID)
	r.mu.Lock()
	r.applyLocked(tenant, env.RemID, env.Strength, env.SourceClientID, r.clk.Now())
	r.mu.Unlock()
	r.metrics.BusReceived.Inc()
}

// StartForwarding subscribes to peer updates when a bus is configured.
func (r *RelayService) StartForwarding(ctx context.Context) error {
	if r.bus == nil {
		return nil
	}
	return r.bus.StartForwarder(ctx, r.ApplyRemote)
}

// applyLocked must be called with r.mu held.
func (r *RelayService) applyLocked(tenant, remID string, strength navigation.Strength, sourceClientID string, now time.Time) navigation.TenantState {
	st := r.store.Apply(tenant, remID, strength, sourceClientID, now)
	r.tracker.Touch(sourceClientID, tenant, remID, strength, now)
	if r.hub != nil {
		n := r.hub.Broadcast(tenant, st.Clone())
		r.log.Debug("update applied", "user_id", tenant, "client_id", sourceClientID, "strength", strength, "recipients", n)
	}
	return st
}

// ExpireIdle clears every tenant and device record idle for longer than ttl.
// It runs under the publish lock so an update can't land between the
// staleness check and the clear.
func (r *RelayService) ExpireIdle(now time.Time, ttl time.Duration, reason string) (tenants, clients int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients = r.tracker.SweepExpired(now, ttl)
	r.metrics.ClientsExpired.Add(int64(clients))
	for _, tenant := range r.store.Stale(now, ttl) {
		r.store.Expire(tenant, reason)
		tenants++
	}
	return tenants, clients
}
