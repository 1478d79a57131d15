// Package settler implements the per-payment-hash rendezvous of spec
// component §4.3: it holds suspended HTLC resolutions, aggregates MPP
// parts, runs the MPP timeout sweep, and drives the invoice/HTLC state
// machine against the store (a settle in one store transaction, a cancel as
// separate invoice and HTLC updates).
package settler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/invoices"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"
)

// FailCode is the wire failure code taxonomy of spec.md §4.2.
type FailCode uint16

const (
	// FailIncorrectPaymentDetails covers replay/state/secret/overpayment
	// rejections.
	FailIncorrectPaymentDetails FailCode = 0x400F

	// FailFinalIncorrectCltvExpiry is returned when the HTLC's CLTV
	// delta is shorter than the invoice requires.
	FailFinalIncorrectCltvExpiry FailCode = 0x4012

	// FailMppTimeout is returned when an MPP part times out while its
	// invoice is still collecting parts.
	FailMppTimeout FailCode = 0x0017
)

// Resolution is what a parked HTLC's resolver eventually receives.
type Resolution struct {
	// Settled is true iff the HTLC should be resolved with Preimage;
	// otherwise it should be failed with Code.
	Settled  bool
	Preimage lntypes.Preimage
	Code     FailCode
}

// StateUpdate is broadcast to state_updates subscribers on every invoice
// state transition the Settler drives.
type StateUpdate struct {
	PaymentHash   lntypes.Hash
	InvoiceString string
	NewState      invoices.State
}

// pendingHTLC is one parked HTLC awaiting resolution.
type pendingHTLC struct {
	scid               string
	channelID          uint64
	cltvExpiryAbsolute uint32
	acceptedAt         time.Time
	resolver           chan Resolution
}

// Settler is the concrete implementation of spec component §4.3.
type Settler struct {
	store      invoices.Store
	clock      clock.Clock
	mppTimeout time.Duration

	mu      sync.Mutex
	pending map[lntypes.Hash][]*pendingHTLC

	updates *queue.ConcurrentQueue

	sweepTicker ticker.Ticker
	quit        chan struct{}
	wg          sync.WaitGroup
}

// New constructs a Settler. mppTimeout is the MPP-part abandonment window
// (spec.md §4.3); sweepInterval is the MPP-timeout loop's tick period
// (15s per spec.md §4.3, injectable for tests).
func New(store invoices.Store, clk clock.Clock, mppTimeout,
	sweepInterval time.Duration) *Settler {

	s := &Settler{
		store:       store,
		clock:       clk,
		mppTimeout:  mppTimeout,
		pending:     make(map[lntypes.Hash][]*pendingHTLC),
		updates:     queue.NewConcurrentQueue(20),
		sweepTicker: ticker.New(sweepInterval),
		quit:        make(chan struct{}),
	}

	s.updates.Start()

	return s
}

// Updates returns the broadcast channel of state updates. Grounded on
// breez-lightninglib's invoiceregistry.go use of queue.ConcurrentQueue to
// fan out invoice events to subscribers without blocking the settler's own
// goroutine.
func (s *Settler) Updates() <-chan interface{} {
	return s.updates.ChanOut()
}

// Start launches the MPP timeout sweep loop.
func (s *Settler) Start() {
	s.sweepTicker.Resume()

	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop tears down the sweep loop and the update queue.
func (s *Settler) Stop() {
	close(s.quit)
	s.wg.Wait()
	s.sweepTicker.Stop()
	s.updates.Stop()
}

func (s *Settler) broadcast(hash lntypes.Hash, invoiceString string, state invoices.State) {
	update := StateUpdate{PaymentHash: hash, InvoiceString: invoiceString, NewState: state}

	select {
	case s.updates.ChanIn() <- update:
	case <-s.quit:
	}
}

// AddHTLC appends a new parked HTLC and returns the receive end of its
// one-shot rendezvous (spec.md §4.3 add_htlc).
func (s *Settler) AddHTLC(hash lntypes.Hash, scid string, channelID uint64,
	cltvExpiryAbsolute uint32) <-chan Resolution {

	s.mu.Lock()
	defer s.mu.Unlock()

	p := &pendingHTLC{
		scid:               scid,
		channelID:          channelID,
		cltvExpiryAbsolute: cltvExpiryAbsolute,
		acceptedAt:         s.clock.Now(),
		resolver:           make(chan Resolution, 1),
	}
	s.pending[hash] = append(s.pending[hash], p)

	return p.resolver
}

// SetAccepted persists Unpaid->Accepted and broadcasts the transition
// (spec.md §4.3 set_accepted).
func (s *Settler) SetAccepted(ctx context.Context, invoiceID int64,
	hash lntypes.Hash, invoiceString string) error {

	err := s.store.SetInvoiceState(ctx, invoiceID, invoices.Unpaid, invoices.Accepted)
	if err != nil {
		return fmt.Errorf("set invoice accepted: %w", err)
	}

	s.broadcast(hash, invoiceString, invoices.Accepted)

	return nil
}

// Settle is the idempotent settle operation of spec.md §4.3. Settling an
// already-Paid invoice is a success no-op (error taxonomy §7); otherwise,
// with no parked HTLCs for hash, it returns invoices.ErrNoPendingHTLCs.
func (s *Settler) Settle(ctx context.Context, hash lntypes.Hash,
	preimage lntypes.Preimage) error {

	inv, err := s.store.GetByPaymentHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("lookup invoice: %w", err)
	}

	if inv.State == invoices.Paid {
		return nil
	}

	s.mu.Lock()
	parked := len(s.pending[hash]) > 0
	s.mu.Unlock()
	if !parked {
		return invoices.ErrNoPendingHTLCs
	}

	if err := s.store.SetInvoiceSettled(ctx, hash, preimage); err != nil {
		return fmt.Errorf("settle invoice: %w", err)
	}

	s.drain(hash, Resolution{Settled: true, Preimage: preimage})
	s.broadcast(hash, inv.InvoiceString, invoices.Paid)

	return nil
}

// Cancel drains the pending list with an IncorrectPaymentDetails failure
// and drives the invoice (and its non-final HTLCs) to Cancelled. An empty
// pending list is allowed; cancelling an already-terminal invoice is a
// success no-op (spec.md §9 open question (b)).
func (s *Settler) Cancel(ctx context.Context, hash lntypes.Hash) error {
	inv, err := s.store.GetByPaymentHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("lookup invoice: %w", err)
	}

	s.drain(hash, Resolution{Settled: false, Code: FailIncorrectPaymentDetails})

	if inv.State.IsFinal() {
		return nil
	}

	if err := s.store.SetInvoiceState(ctx, inv.ID, inv.State, invoices.Cancelled); err != nil {
		return fmt.Errorf("cancel invoice: %w", err)
	}

	if err := s.store.SetHTLCStatesByInvoice(ctx, inv.ID, invoices.Accepted, invoices.Cancelled); err != nil {
		return fmt.Errorf("cancel htlcs: %w", err)
	}

	s.broadcast(hash, inv.InvoiceString, invoices.Cancelled)

	return nil
}

// GetExpiries returns, for each parked invoice, the minimum absolute CLTV
// expiry across its parked HTLCs (spec.md §4.3 get_expiries).
func (s *Settler) GetExpiries() map[lntypes.Hash]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[lntypes.Hash]uint32, len(s.pending))
	for hash, htlcs := range s.pending {
		if len(htlcs) == 0 {
			continue
		}

		min := htlcs[0].cltvExpiryAbsolute
		for _, h := range htlcs[1:] {
			if h.cltvExpiryAbsolute < min {
				min = h.cltvExpiryAbsolute
			}
		}
		result[hash] = min
	}

	return result
}

// drain removes and resolves every pending HTLC for hash.
func (s *Settler) drain(hash lntypes.Hash, res Resolution) {
	s.mu.Lock()
	htlcs := s.pending[hash]
	delete(s.pending, hash)
	s.mu.Unlock()

	for _, h := range htlcs {
		h.resolver <- res
	}
}

func (s *Settler) sweepLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.sweepTicker.Ticks():
			s.sweepMPPTimeouts()
		case <-s.quit:
			return
		}
	}
}

// sweepMPPTimeouts implements spec.md §4.3's MPP timeout loop: parked
// HTLCs whose invoice is still collecting parts (not yet Accepted) are
// individually timed out after mppTimeout, releasing the channel slot
// without disturbing the rest of the set.
func (s *Settler) sweepMPPTimeouts() {
	now := s.clock.Now()
	ctx := context.Background()

	type candidate struct {
		hash lntypes.Hash
		htlc *pendingHTLC
	}

	// First pass: find HTLCs that have crossed mppTimeout purely from
	// the in-memory pending list, without touching the store. This
	// keeps a quiet sweep (nothing past the deadline) free of any DB
	// round-trip.
	s.mu.Lock()
	var candidates []candidate
	for hash, htlcs := range s.pending {
		for _, h := range htlcs {
			if now.Sub(h.acceptedAt) >= s.mppTimeout {
				candidates = append(candidates, candidate{hash: hash, htlc: h})
			}
		}
	}
	s.mu.Unlock()

	if len(candidates) == 0 {
		return
	}

	// Re-check invoice state immediately before acting, right next to
	// the lock that actually removes the HTLC from pending: an invoice
	// that has reached Accepted is a completed MPP set held
	// indefinitely for settle/cancel and must never be expired by this
	// sweep, however long its parts have been parked. Checking this
	// late rather than against a snapshot taken at the top of the sweep
	// keeps the window in which a concurrent admission can flip the
	// invoice to Accepted underneath us as small as possible.
	invByHash := make(map[lntypes.Hash]*invoices.Invoice, len(candidates))
	for _, c := range candidates {
		if _, ok := invByHash[c.hash]; ok {
			continue
		}
		if inv, err := s.store.GetByPaymentHash(ctx, c.hash); err == nil {
			invByHash[c.hash] = inv
		}
	}

	var toExpire []candidate

	s.mu.Lock()
	for _, c := range candidates {
		if inv, ok := invByHash[c.hash]; ok && inv.State == invoices.Accepted {
			continue
		}

		htlcs, ok := s.pending[c.hash]
		if !ok {
			continue
		}
		kept := htlcs[:0]
		for _, h := range htlcs {
			if h == c.htlc {
				continue
			}
			kept = append(kept, h)
		}
		if len(kept) == 0 {
			delete(s.pending, c.hash)
		} else {
			s.pending[c.hash] = kept
		}

		toExpire = append(toExpire, c)
	}
	s.mu.Unlock()

	for _, e := range toExpire {
		if inv, ok := invByHash[e.hash]; ok {
			for i := range inv.HTLCs {
				htlc := inv.HTLCs[i]
				if htlc.Scid == e.htlc.scid && htlc.ChannelID == e.htlc.channelID &&
					htlc.State == invoices.Accepted {

					_ = s.store.SetHTLCState(ctx, htlc.ID, invoices.Accepted, invoices.Cancelled)
					break
				}
			}
		}

		e.htlc.resolver <- Resolution{Settled: false, Code: FailMppTimeout}
	}
}
