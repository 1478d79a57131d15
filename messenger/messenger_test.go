package messenger

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
)

func newFastTicker() ticker.Ticker {
	return ticker.New(5 * time.Millisecond)
}

func TestRespondDeliversDecision(t *testing.T) {
	t.Parallel()

	m := New(clock.NewDefaultClock())
	m.Start()
	defer m.Stop()

	id := ID([]byte("hello"))
	reply := m.Received(id)

	m.Respond(id, Decision{Resolve: true, Payload: []byte("ack")})

	select {
	case d := <-reply:
		require.True(t, d.Resolve)
		require.Equal(t, []byte("ack"), d.Payload)
	case <-time.After(time.Second):
		t.Fatal("reply never delivered")
	}
}

func TestRespondToUnknownIDIsNoop(t *testing.T) {
	t.Parallel()

	m := New(clock.NewDefaultClock())
	m.Start()
	defer m.Stop()

	require.NotPanics(t, func() {
		m.Respond(ID([]byte("never-registered")), Decision{Continue: true})
	})
}

func TestSweepTimesOutUnansweredMessage(t *testing.T) {
	t.Parallel()

	testClock := clock.NewTestClock(time.Now())
	m := &Messenger{
		clock:       testClock,
		pending:     make(map[MessageID]*pendingMessage),
		sweepTicker: newFastTicker(),
		quit:        make(chan struct{}),
	}
	m.Start()
	defer m.Stop()

	id := ID([]byte("abandoned"))
	reply := m.Received(id)

	testClock.SetTime(time.Now().Add(time.Hour))

	select {
	case d := <-reply:
		require.True(t, d.Continue)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never fired")
	}
}
