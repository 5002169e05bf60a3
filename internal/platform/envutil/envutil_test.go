package envutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPositiveInt(t *testing.T) {
	const name = "NAVRELAY_TEST_POSITIVE"
	cases := []struct {
		raw       string
		want      int
		discarded bool
	}{
		{"", 10, false},
		{"25", 25, false},
		{" 7 ", 7, false},
		{"0", 10, true},
		{"-3", 10, true},
		{"abc", 10, true},
	}
	for _, tc := range cases {
		t.Setenv(name, tc.raw)
		got, discarded := PositiveInt(name, 10)
		require.Equal(t, tc.want, got, tc.raw)
		require.Equal(t, tc.discarded, discarded, tc.raw)
	}
}

func TestList(t *testing.T) {
	const name = "NAVRELAY_TEST_LIST"
	t.Setenv(name, "")
	require.Equal(t, []string{"*"}, List(name, []string{"*"}))

	t.Setenv(name, " a , ,b,")
	require.Equal(t, []string{"a", "b"}, List(name, nil))

	t.Setenv(name, " , ")
	require.Equal(t, []string{"x"}, List(name, []string{"x"}))
}

func TestBoolStringFloat(t *testing.T) {
	t.Setenv("NAVRELAY_TEST_BOOL", "on")
	require.True(t, Bool("NAVRELAY_TEST_BOOL", false))
	t.Setenv("NAVRELAY_TEST_BOOL", "maybe")
	require.True(t, Bool("NAVRELAY_TEST_BOOL", true))

	t.Setenv("NAVRELAY_TEST_STRING", "  value ")
	require.Equal(t, "value", String("NAVRELAY_TEST_STRING", "def"))

	t.Setenv("NAVRELAY_TEST_FLOAT", "0.25")
	require.Equal(t, 0.25, Float("NAVRELAY_TEST_FLOAT", 1))
	t.Setenv("NAVRELAY_TEST_FLOAT", "lots")
	require.Equal(t, 1.0, Float("NAVRELAY_TEST_FLOAT", 1))
}
