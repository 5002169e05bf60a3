package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/navrelay/internal/domain/navigation"
)

func TestActivityTrackerTouchOverwrites(t *testing.T) {
	tr := NewActivityTracker()
	t0 := time.Unix(100, 0)

	tr.Touch("dev1", "u1", "a", navigation.StrengthWeak, t0)
	tr.Touch("dev1", "u1", "b", navigation.StrengthStrong, t0.Add(time.Second))

	act, ok := tr.Get("dev1")
	require.True(t, ok)
	require.Equal(t, "b", act.LastRemID)
	require.Equal(t, navigation.StrengthStrong, act.LastStrength)
	require.Equal(t, "u1", act.UserID)
	require.True(t, act.LastSeenAt.Equal(t0.Add(time.Second)))
	require.Equal(t, 1, tr.Len())
}

func TestActivityTrackerSweepExpired(t *testing.T) {
	tr := NewActivityTracker()
	base := time.Unix(0, 0)
	tr.Touch("old1", "u1", "a", navigation.StrengthWeak, base)
	tr.Touch("old2", "u2", "a", navigation.StrengthWeak, base.Add(time.Minute))
	tr.Touch("fresh", "u1", "a", navigation.StrengthWeak, base.Add(2*time.Hour))

	removed := tr.SweepExpired(base.Add(2*time.Hour+30*time.Minute), 2*time.Hour)

	require.Equal(t, 2, removed)
	_, ok := tr.Get("old1")
	require.False(t, ok)
	_, ok = tr.Get("fresh")
	require.True(t, ok)
	require.Equal(t, 0, tr.SweepExpired(base.Add(2*time.Hour+30*time.Minute), 2*time.Hour))
}
