// Package handler implements spec component §4.2: the per-HTLC decision
// pipeline that decides continue/fail/park for every incoming HTLC.
package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/lightninglabs/hold/codec"
	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
	"github.com/lightninglabs/hold/invoices"
	"github.com/lightninglabs/hold/settler"
)

// OutcomeKind is the handler's decision.
type OutcomeKind int

const (
	// Continue means the HTLC is not ours, or an internal error
	// occurred; the handler never fails upward to the host (spec error
	// handling design §7).
	Continue OutcomeKind = iota

	// Fail means the HTLC should be failed back with Code.
	Fail

	// Park means the HTLC was handed to the Settler; Resolver will
	// eventually deliver the terminal decision.
	Park
)

// Outcome is the handler's decision for one HTLC.
type Outcome struct {
	Kind     OutcomeKind
	Code     settler.FailCode
	Resolver <-chan settler.Resolution
}

// Onion is the subset of the onion payload the handler inspects.
type Onion struct {
	PaymentHash   lntypes.Hash
	PaymentSecret *lntypes.Hash
}

// Htlc is the incoming HTLC the host daemon reports.
type Htlc struct {
	Scid                 string
	ChannelID             uint64
	AmountMsat            lnwire.MilliSatoshi
	CltvExpiryRelative    uint32
	CltvExpiryAbsolute    uint32
}

// Settler is the capability the handler needs from settler.Settler,
// defined here next to its consumer so the handler can be driven by a
// hand-written fake in tests (design note §9).
type Settler interface {
	AddHTLC(hash lntypes.Hash, scid string, channelID uint64, cltvExpiryAbsolute uint32) <-chan settler.Resolution
	SetAccepted(ctx context.Context, invoiceID int64, hash lntypes.Hash, invoiceString string) error
}

// Handler is the concrete implementation of spec component §4.2.
type Handler struct {
	store   invoices.Store
	codec   codec.Codec
	settler Settler

	mu sync.Mutex
}

// New constructs a Handler.
func New(store invoices.Store, dec codec.Codec, s Settler) *Handler {
	return &Handler{store: store, codec: dec, settler: s}
}

// HandleHTLC runs the decision pipeline of spec.md §4.2 for one incoming
// HTLC, in order, terminating at the first non-continue step.
func (h *Handler) HandleHTLC(ctx context.Context, onion Onion, htlc Htlc) Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	outcome, err := h.handle(ctx, onion, htlc)
	if err != nil {
		// Internal errors degrade to Continue rather than failing
		// upward to the host (spec error handling design §7). err is
		// not logged or returned; the caller only sees Continue.
		return Outcome{Kind: Continue}
	}

	return outcome
}

func (h *Handler) handle(ctx context.Context, onion Onion, htlc Htlc) (Outcome, error) {
	// Step 1: look up invoice.
	inv, err := h.store.GetByPaymentHash(ctx, onion.PaymentHash)
	if errors.Is(err, invoices.ErrInvoiceNotFound) {
		return Outcome{Kind: Continue}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	// Step 2: replay check.
	for _, existing := range inv.HTLCs {
		if existing.Scid == htlc.Scid && existing.ChannelID == htlc.ChannelID {
			resolver := h.settler.AddHTLC(onion.PaymentHash, htlc.Scid, htlc.ChannelID, htlc.CltvExpiryAbsolute)

			return Outcome{Kind: Park, Resolver: resolver}, nil
		}
	}

	// Step 3: invoice must be Unpaid to admit a new HTLC.
	if inv.State != invoices.Unpaid {
		return h.rejectIncorrectDetails(ctx, inv, htlc)
	}

	// Step 4: decode the invoice and compare payment secrets.
	decoded, err := h.codec.Decode(inv.InvoiceString)
	if err != nil {
		return Outcome{}, err
	}
	if decoded.PaymentSecret != nil {
		if onion.PaymentSecret == nil || *onion.PaymentSecret != *decoded.PaymentSecret {
			return h.rejectIncorrectDetails(ctx, inv, htlc)
		}
	}

	// Step 5: CLTV check.
	minCltv := decoded.MinFinalCLTVDelta
	if inv.MinCltv != nil {
		minCltv = *inv.MinCltv
	}
	if htlc.CltvExpiryRelative < minCltv {
		return h.rejectFinalIncorrectCltvExpiry(ctx, inv, htlc)
	}

	// Step 6: overpayment guard.
	amountPaid := invoices.AmountPaidMsat(inv.HTLCs) + htlc.AmountMsat
	if uint64(amountPaid) > 2*uint64(decoded.AmountMsat) {
		return h.rejectIncorrectDetails(ctx, inv, htlc)
	}

	// Step 7: record the HTLC as Accepted, maybe transition the invoice.
	_, err = h.store.InsertHTLC(ctx, inv.ID, &invoices.HTLC{
		State:      invoices.Accepted,
		Scid:       htlc.Scid,
		ChannelID:  htlc.ChannelID,
		AmountMsat: htlc.AmountMsat,
	})
	if err != nil {
		return Outcome{}, err
	}

	if amountPaid >= decoded.AmountMsat {
		if err := h.settler.SetAccepted(ctx, inv.ID, inv.PaymentHash, inv.InvoiceString); err != nil {
			return Outcome{}, err
		}
	}

	// Step 8: park.
	resolver := h.settler.AddHTLC(onion.PaymentHash, htlc.Scid, htlc.ChannelID, htlc.CltvExpiryAbsolute)

	return Outcome{Kind: Park, Resolver: resolver}, nil
}

func (h *Handler) rejectIncorrectDetails(ctx context.Context, inv *invoices.Invoice, htlc Htlc) (Outcome, error) {
	return h.reject(ctx, inv, htlc, settler.FailIncorrectPaymentDetails)
}

func (h *Handler) rejectFinalIncorrectCltvExpiry(ctx context.Context, inv *invoices.Invoice, htlc Htlc) (Outcome, error) {
	return h.reject(ctx, inv, htlc, settler.FailFinalIncorrectCltvExpiry)
}

func (h *Handler) reject(ctx context.Context, inv *invoices.Invoice, htlc Htlc, code settler.FailCode) (Outcome, error) {
	_, err := h.store.InsertHTLC(ctx, inv.ID, &invoices.HTLC{
		State:      invoices.Cancelled,
		Scid:       htlc.Scid,
		ChannelID:  htlc.ChannelID,
		AmountMsat: htlc.AmountMsat,
	})
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Kind: Fail, Code: code}, nil
}
