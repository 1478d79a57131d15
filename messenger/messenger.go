// Package messenger implements spec component §4.5: a rendezvous bus
// correlating the host daemon's onion-message hook calls with RPC
// subscriber replies.
package messenger

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"
)

// sweepInterval is the Messenger's timeout sweep period (spec.md §4.5).
const sweepInterval = 5 * time.Second

// timeout is how long an unanswered message waits before the sweep
// auto-replies Continue.
const timeout = 30 * time.Second

// Decision is what a subscriber replies with, or what the sweep produces
// for a message nobody answered in time.
type Decision struct {
	Continue bool
	Resolve  bool
	Payload  []byte
}

// MessageID is a stable hash of message contents, used as the rendezvous
// key.
type MessageID [32]byte

// ID computes the MessageID for a message payload.
func ID(payload []byte) MessageID {
	return sha256.Sum256(payload)
}

// Message is one arrived onion message, fanned out to RPC subscribers via
// Publish/Subscribe so the OnionMessages RPC stream can forward it and
// collect a Decision through Respond.
type Message struct {
	ID      MessageID
	Payload []byte
}

type pendingMessage struct {
	acceptedAt time.Time
	reply      chan Decision
}

// Messenger is the concrete rendezvous bus.
type Messenger struct {
	clock clock.Clock

	mu      sync.Mutex
	pending map[MessageID]*pendingMessage

	sweepTicker ticker.Ticker
	quit        chan struct{}
	wg          sync.WaitGroup

	broadcast *queue.ConcurrentQueue
}

// New constructs a Messenger.
func New(clk clock.Clock) *Messenger {
	return &Messenger{
		clock:       clk,
		pending:     make(map[MessageID]*pendingMessage),
		sweepTicker: ticker.New(sweepInterval),
		quit:        make(chan struct{}),
		broadcast:   queue.NewConcurrentQueue(20),
	}
}

// Start launches the timeout sweep loop.
func (m *Messenger) Start() {
	m.sweepTicker.Resume()
	if m.broadcast != nil {
		m.broadcast.Start()
	}

	m.wg.Add(1)
	go m.sweepLoop()
}

// Stop tears down the sweep loop.
func (m *Messenger) Stop() {
	close(m.quit)
	m.wg.Wait()
	m.sweepTicker.Stop()
	if m.broadcast != nil {
		m.broadcast.Stop()
	}
}

// Publish fans out an arrived message to Subscribe callers. A Messenger
// constructed without New (no broadcast queue) no-ops, matching the test
// fixtures that only exercise Received/Respond.
func (m *Messenger) Publish(msg Message) {
	if m.broadcast == nil {
		return
	}

	select {
	case m.broadcast.ChanIn() <- msg:
	case <-m.quit:
	}
}

// Subscribe returns the broadcast feed of arrived messages, for the
// OnionMessages RPC stream to forward to its caller.
func (m *Messenger) Subscribe() <-chan interface{} {
	return m.broadcast.ChanOut()
}

// Received registers a newly arrived onion message and returns the
// receive end of its oneshot rendezvous.
func (m *Messenger) Received(id MessageID) <-chan Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &pendingMessage{
		acceptedAt: m.clock.Now(),
		reply:      make(chan Decision, 1),
	}
	m.pending[id] = p

	return p.reply
}

// Respond delivers a subscriber's decision for id, if still pending.
// Responding to an unknown or already-resolved id is a no-op.
func (m *Messenger) Respond(id MessageID, decision Decision) {
	m.mu.Lock()
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	p.reply <- decision
}

func (m *Messenger) sweepLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.sweepTicker.Ticks():
			m.sweepExpired()
		case <-m.quit:
			return
		}
	}
}

func (m *Messenger) sweepExpired() {
	now := m.clock.Now()

	m.mu.Lock()
	var expired []*pendingMessage
	for id, p := range m.pending {
		if now.Sub(p.acceptedAt) >= timeout {
			expired = append(expired, p)
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, p := range expired {
		p.reply <- Decision{Continue: true}
	}
}
