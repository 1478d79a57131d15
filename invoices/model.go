package invoices

import (
	"time"

	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
)

// Invoice is the durable row described in spec data model §3.
type Invoice struct {
	// ID is the store-assigned monotone identifier.
	ID int64

	// PaymentHash uniquely identifies the invoice.
	PaymentHash lntypes.Hash

	// Preimage is set iff State == Paid (invariant I1).
	Preimage *lntypes.Preimage

	// InvoiceString is the serialized BOLT11/BOLT12 payment request.
	InvoiceString string

	// State is the current lifecycle state.
	State State

	// MinCltv optionally overrides the invoice's own min-final-CLTV.
	MinCltv *uint32

	// CreatedAt is when the invoice row was inserted.
	CreatedAt time.Time

	// SettledAt is stamped when State transitions to Paid; zero
	// otherwise.
	SettledAt time.Time

	// HTLCs holds the child HTLC rows, ordered by HTLC ID. Populated by
	// the store's Get* accessors; not necessarily present on rows
	// returned from write operations.
	HTLCs []HTLC
}

// HTLC is the child row described in spec data model §3. The pair
// (Scid, ChannelID) uniquely identifies a physical incoming HTLC under its
// parent invoice and is the replay-detection key (spec §4.2 step 2).
type HTLC struct {
	// ID is the store-assigned monotone identifier.
	ID int64

	// InvoiceID references the parent Invoice.
	InvoiceID int64

	// State is the current lifecycle state, always a subset of the
	// parent invoice's lifetime (invariant I2).
	State State

	// Scid is the short-channel-id of the incoming channel.
	Scid string

	// ChannelID is the htlc id within that channel.
	ChannelID uint64

	// AmountMsat is the amount carried by this HTLC.
	AmountMsat lnwire.MilliSatoshi

	// CreatedAt is when the HTLC row was inserted.
	CreatedAt time.Time
}

// AmountPaidMsat is the sum of AmountMsat over HTLCs in {Accepted, Paid}
// (invariant I3); the handler uses this when admitting new HTLCs.
func AmountPaidMsat(htlcs []HTLC) lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for _, h := range htlcs {
		if h.State == Accepted || h.State == Paid {
			total += h.AmountMsat
		}
	}

	return total
}

// ValidatePreimage checks invariant I1: sha256(preimage) == payment_hash.
func ValidatePreimage(hash lntypes.Hash, preimage lntypes.Preimage) error {
	if !preimage.Matches(hash) {
		return ErrPreimageMismatch
	}

	return nil
}
