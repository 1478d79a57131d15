// Package expiryguard implements spec component §4.4: on each new block,
// cancel invoices whose earliest parked HTLC expiry is within a
// configured safety deadline.
package expiryguard

import (
	"context"
	"sync"

	"github.com/lightninglabs/hold/internal/lntypes"
)

// Settler is the capability this package needs from settler.Settler,
// defined here rather than there so ExpiryGuard can be driven by a
// hand-written fake in tests (design note §9).
type Settler interface {
	GetExpiries() map[lntypes.Hash]uint32
	Cancel(ctx context.Context, hash lntypes.Hash) error
}

// Guard tracks the chain tip and cancels invoices that would otherwise
// expire before the plugin could settle them.
type Guard struct {
	settler  Settler
	deadline uint32

	mu         sync.Mutex
	bestHeight uint32
}

// New constructs a Guard. deadline is in blocks; 0 disables the guard
// entirely (spec.md §6 hold-expiry-deadline option).
func New(settler Settler, deadline uint32) *Guard {
	return &Guard{settler: settler, deadline: deadline}
}

// NotifyBlock advances best_height monotonically and cancels any invoice
// whose earliest parked HTLC expiry now falls within the deadline.
// Out-of-order or equal heights are ignored.
func (g *Guard) NotifyBlock(ctx context.Context, height uint32) {
	g.mu.Lock()
	if height <= g.bestHeight {
		g.mu.Unlock()
		return
	}
	g.bestHeight = height
	g.mu.Unlock()

	if g.deadline == 0 {
		return
	}

	for hash, expiry := range g.settler.GetExpiries() {
		if expiry < height {
			// Already past expiry; cancel regardless of margin.
			_ = g.settler.Cancel(ctx, hash)
			continue
		}
		if expiry-height <= g.deadline {
			_ = g.settler.Cancel(ctx, hash)
		}
	}
}

// BestHeight returns the most recently observed chain tip.
func (g *Guard) BestHeight() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.bestHeight
}
