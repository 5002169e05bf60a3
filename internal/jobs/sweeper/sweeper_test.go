package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

type expireCall struct {
	now    time.Time
	ttl    time.Duration
	reason string
}

type fakeExpirer struct {
	mu      sync.Mutex
	calls   []expireCall
	tenants int
	clients int
}

func (f *fakeExpirer) ExpireIdle(now time.Time, ttl time.Duration, reason string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, expireCall{now: now, ttl: ttl, reason: reason})
	return f.tenants, f.clients
}

func (f *fakeExpirer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSweepReportsAndCounts(t *testing.T) {
	clk := clock.NewMock()
	m := observability.New(clk)
	target := &fakeExpirer{tenants: 2, clients: 3}
	s := New(logger.NewNop(), clk, m, target, Config{TTL: time.Hour})

	res := s.Sweep("state_read")

	require.Equal(t, "state_read", res.Trigger)
	require.Equal(t, 2, res.TenantsExpired)
	require.Equal(t, 3, res.ClientsExpired)
	require.Equal(t, int64(1), m.GCSweeps.Value())

	require.Len(t, target.calls, 1)
	require.Equal(t, time.Hour, target.calls[0].ttl)
	require.Equal(t, ReasonTTLExpired, target.calls[0].reason)
	require.True(t, target.calls[0].now.Equal(clk.Now()))
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(logger.NewNop(), clock.NewMock(), nil, &fakeExpirer{}, Config{})
	require.Equal(t, defaultTTL, s.ttl)
	require.Equal(t, defaultInterval, s.interval)
}

func TestRunSweepsOnEveryTick(t *testing.T) {
	clk := clock.NewMock()
	target := &fakeExpirer{}
	s := New(logger.NewNop(), clk, observability.New(clk), target, Config{Interval: time.Minute, TTL: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Wait for the ticker to be armed before moving the clock.
	time.Sleep(20 * time.Millisecond)
	clk.Add(time.Minute)
	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, 5*time.Millisecond)
	clk.Add(time.Minute)
	require.Eventually(t, func() bool { return target.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
