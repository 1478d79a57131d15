package invoices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidateTransitionGraph pins property P4: validate_transition(a, b)
// returns nil iff b is reachable from a by the graph in spec data model §3.
func TestValidateTransitionGraph(t *testing.T) {
	t.Parallel()

	states := []State{Unpaid, Accepted, Paid, Cancelled}

	legal := map[[2]State]bool{
		{Unpaid, Accepted}:     true,
		{Unpaid, Cancelled}:    true,
		{Accepted, Paid}:       true,
		{Accepted, Cancelled}:  true,
		{Paid, Paid}:           true,
		{Cancelled, Cancelled}: true,
	}

	for _, from := range states {
		for _, to := range states {
			err := ValidateTransition(from, to)
			if legal[[2]State{from, to}] {
				require.NoErrorf(t, err, "%s -> %s should be legal", from, to)
			} else {
				require.Errorf(t, err, "%s -> %s should be illegal", from, to)
			}
		}
	}
}

func TestIsFinal(t *testing.T) {
	t.Parallel()

	require.False(t, Unpaid.IsFinal())
	require.False(t, Accepted.IsFinal())
	require.True(t, Paid.IsFinal())
	require.True(t, Cancelled.IsFinal())
}

func TestParseStateRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []State{Unpaid, Accepted, Paid, Cancelled} {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	_, err := ParseState("bogus")
	require.ErrorIs(t, err, ErrUnknownState)
}
