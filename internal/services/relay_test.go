package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
	"github.com/yungbote/navrelay/internal/realtime/bus"
)

type broadcastCall struct {
	tenant string
	state  navigation.TenantState
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeBroadcaster) Broadcast(tenant string, state navigation.TenantState) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{tenant: tenant, state: state})
	return 1
}

type fakeBus struct {
	mu        sync.Mutex
	published []bus.Envelope
	err       error
	onMsg     func(bus.Envelope)
}

func (f *fakeBus) Publish(_ context.Context, env bus.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, env)
	return nil
}

func (f *fakeBus) StartForwarder(_ context.Context, onMsg func(bus.Envelope)) error {
	f.onMsg = onMsg
	return nil
}

func (f *fakeBus) Close() error { return nil }

type relayFixture struct {
	relay   *RelayService
	clk     *clock.Mock
	metrics *observability.Metrics
	hub     *fakeBroadcaster
	bus     *fakeBus
}

func newRelayFixture(t *testing.T, multiTenant bool, withBus bool) *relayFixture {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	m := observability.New(clk)
	hub := &fakeBroadcaster{}
	cfg := RelayConfig{MultiTenant: multiTenant}
	var fb *fakeBus
	if withBus {
		fb = &fakeBus{}
		cfg.Bus = fb
	}
	return &relayFixture{
		relay:   NewRelayService(logger.NewNop(), clk, m, hub, cfg),
		clk:     clk,
		metrics: m,
		hub:     hub,
		bus:     fb,
	}
}

func update(userID, remID string, strength navigation.Strength, src string) navigation.Update {
	return navigation.Update{UserID: userID, RemID: remID, Strength: strength, SourceClientID: src}
}

func TestRelayPublishLastWriterWins(t *testing.T) {
	f := newRelayFixture(t, true, false)
	ctx := context.Background()

	f.relay.Publish(ctx, update("u1", "abc123", navigation.StrengthWeak, "dev1"))
	f.clk.Add(time.Second)
	st := f.relay.Publish(ctx, update("u1", "xyz789", navigation.StrengthStrong, "dev2"))

	require.Equal(t, "xyz789", *st.RemID)
	require.Equal(t, "dev2", *st.SourceClientID)

	got := f.relay.State("u1")
	require.Equal(t, "xyz789", *got.RemID)
	require.Equal(t, navigation.StrengthStrong, *got.Strength)
	require.True(t, got.UpdatedAt.Equal(f.clk.Now()))

	require.Len(t, f.hub.calls, 2)
	require.Equal(t, "u1", f.hub.calls[1].tenant)
	require.Equal(t, "xyz789", *f.hub.calls[1].state.RemID)

	require.Equal(t, int64(2), f.metrics.UpdatesAccepted.Value())
	require.Equal(t, int64(1), f.metrics.StateReads.Value())
}

func TestRelayTenantsAreIsolated(t *testing.T) {
	f := newRelayFixture(t, true, false)
	f.relay.Publish(context.Background(), update("alice", "a1", navigation.StrengthWeak, "dev1"))

	require.True(t, f.relay.State("bob").Empty())
	require.Equal(t, "a1", *f.relay.State("alice").RemID)
}

func TestRelaySingleTenantMapsToDefault(t *testing.T) {
	f := newRelayFixture(t, false, false)
	require.False(t, f.relay.MultiTenant())
	require.Equal(t, DefaultTenant, f.relay.Tenant("whoever"))
	require.Equal(t, DefaultTenant, f.relay.Tenant(""))

	f.relay.Publish(context.Background(), update("", "abc", navigation.StrengthWeak, "dev1"))
	require.Equal(t, "abc", *f.relay.State(DefaultTenant).RemID)
	require.Equal(t, DefaultTenant, f.hub.calls[0].tenant)
}

func TestRelayRecordsDeviceActivity(t *testing.T) {
	f := newRelayFixture(t, true, false)
	f.relay.Publish(context.Background(), update("u1", "abc", navigation.StrengthStrong, "dev1"))

	act, ok := f.relay.tracker.Get("dev1")
	require.True(t, ok)
	require.Equal(t, "u1", act.UserID)
	require.Equal(t, "abc", act.LastRemID)
	require.Equal(t, navigation.StrengthStrong, act.LastStrength)
}

func TestRelayExpireIdle(t *testing.T) {
	f := newRelayFixture(t, true, false)
	ctx := context.Background()
	ttl := time.Hour

	f.relay.Publish(ctx, update("old", "a", navigation.StrengthWeak, "devOld"))
	f.clk.Add(45 * time.Minute)
	f.relay.Publish(ctx, update("fresh", "b", navigation.StrengthWeak, "devFresh"))
	f.clk.Add(30 * time.Minute)

	tenants, clients := f.relay.ExpireIdle(f.clk.Now(), ttl, "ttl_expired")
	require.Equal(t, 1, tenants)
	require.Equal(t, 1, clients)

	require.True(t, f.relay.State("old").Empty())
	require.False(t, f.relay.State("fresh").Empty())
	_, ok := f.relay.tracker.Get("devOld")
	require.False(t, ok)

	require.Equal(t, int64(1), f.metrics.TenantsCleared.Value())
	require.Equal(t, int64(1), f.metrics.ClientsExpired.Value())

	snap := f.metrics.Snapshot()
	require.Equal(t, int64(1), snap.Gauges["tenants_tracked"])
	require.Equal(t, int64(1), snap.Gauges["clients_tracked"])
}

func TestRelayPublishSharesWithPeers(t *testing.T) {
	f := newRelayFixture(t, true, true)
	f.relay.Publish(context.Background(), update("u1", "abc", navigation.StrengthWeak, "dev1"))

	require.Len(t, f.bus.published, 1)
	env := f.bus.published[0]
	require.Equal(t, "u1", env.UserID)
	require.Equal(t, "abc", env.RemID)
	require.Equal(t, "dev1", env.SourceClientID)
	require.True(t, env.UpdatedAt.Equal(f.clk.Now()))
	require.Equal(t, int64(1), f.metrics.BusPublished.Value())
}

func TestRelayPeersSeeUpdatesInAcceptedOrder(t *testing.T) {
	f := newRelayFixture(t, true, true)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.relay.Publish(ctx, update("u1", fmt.Sprintf("rem%d", i), navigation.StrengthWeak, "dev1"))
		}(i)
	}
	wg.Wait()

	require.Len(t, f.hub.calls, 50)
	require.Len(t, f.bus.published, 50)
	for i := range f.hub.calls {
		require.Equal(t, *f.hub.calls[i].state.RemID, f.bus.published[i].RemID, "position %d", i)
	}
	require.Equal(t, f.bus.published[49].RemID, *f.relay.State("u1").RemID)
}

func TestRelayPublishSurvivesBusError(t *testing.T) {
	f := newRelayFixture(t, true, true)
	f.bus.err = errors.New("redis down")

	st := f.relay.Publish(context.Background(), update("u1", "abc", navigation.StrengthWeak, "dev1"))

	require.Equal(t, "abc", *st.RemID)
	require.Equal(t, int64(1), f.metrics.BusErrors.Value())
	require.Equal(t, int64(0), f.metrics.BusPublished.Value())
	require.Equal(t, int64(1), f.metrics.UpdatesAccepted.Value())
}

func TestRelayApplyRemote(t *testing.T) {
	f := newRelayFixture(t, true, true)
	require.NoError(t, f.relay.StartForwarding(context.Background()))
	require.NotNil(t, f.bus.onMsg)

	f.bus.onMsg(bus.Envelope{
		Origin:         "peer",
		UserID:         "u1",
		RemID:          "remote1",
		Strength:       navigation.StrengthStrong,
		SourceClientID: "devPeer",
		UpdatedAt:      time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	st := f.relay.State("u1")
	require.Equal(t, "remote1", *st.RemID)
	require.True(t, st.UpdatedAt.Equal(f.clk.Now()))
	require.Len(t, f.hub.calls, 1)
	require.Empty(t, f.bus.published)
	require.Equal(t, int64(1), f.metrics.BusReceived.Value())
}

func TestRelayStartForwardingWithoutBus(t *testing.T) {
	f := newRelayFixture(t, true, false)
	require.NoError(t, f.relay.StartForwarding(context.Background()))
}
