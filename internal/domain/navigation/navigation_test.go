package navigation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmptyStateMarshalsNulls(t *testing.T) {
	raw, err := json.Marshal(EmptyState())
	require.NoError(t, err)
	require.JSONEq(t, `{"remId":null,"strength":null,"updatedAt":null,"sourceClientId":null}`, string(raw))
}

func TestPopulatedStateMarshalsMillisUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2024, 5, 1, 12, 0, 0, 123_456_789, loc)
	raw, err := json.Marshal(NewState("abc123", StrengthStrong, "dev1", at))
	require.NoError(t, err)
	require.JSONEq(t, `{"remId":"abc123","strength":"strong","updatedAt":"2024-05-01T10:00:00.123Z","sourceClientId":"dev1"}`, string(raw))
}

func TestStatePredicatesAndClone(t *testing.T) {
	st := NewState("a", StrengthWeak, "d", time.Unix(0, 0))
	require.True(t, st.Populated())
	require.False(t, st.Empty())
	require.True(t, EmptyState().Empty())

	partial := TenantState{RemID: st.RemID}
	require.False(t, partial.Populated())
	require.False(t, partial.Empty())

	cp := st.Clone()
	*cp.RemID = "changed"
	require.Equal(t, "a", *st.RemID)
	require.True(t, EmptyState().Clone().Empty())
}

func TestStrengthValid(t *testing.T) {
	require.True(t, StrengthStrong.Valid())
	require.True(t, StrengthWeak.Valid())
	require.False(t, Strength("Strong").Valid())
	require.False(t, Strength("").Valid())
}
