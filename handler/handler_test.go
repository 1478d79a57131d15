package handler

import (
	"context"
	"testing"

	"github.com/lightninglabs/hold/codec"
	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
	"github.com/lightninglabs/hold/invoices"
	"github.com/lightninglabs/hold/settler"
	"github.com/stretchr/testify/require"
)

const invoiceStr = "lnbc-test-invoice"

func newTestHandler(t *testing.T, amountMsat lnwire.MilliSatoshi, minCltv uint32) (
	*Handler, *fakeStore, *fakeSettler, int64, lntypes.Hash) {

	t.Helper()

	store := newFakeStore()
	dec := newFakeCodec()
	stl := newFakeSettler()

	var hash lntypes.Hash
	hash[0] = 42

	dec.decoded[invoiceStr] = &codec.Decoded{
		PaymentHash:       hash,
		AmountMsat:        amountMsat,
		MinFinalCLTVDelta: minCltv,
	}

	id, err := store.Insert(context.Background(), &invoices.Invoice{
		PaymentHash:   hash,
		InvoiceString: invoiceStr,
		State:         invoices.Unpaid,
	})
	require.NoError(t, err)

	h := New(store, dec, stl)

	return h, store, stl, id, hash
}

// TestMPPMerge pins end-to-end scenario 2: two HTLCs that individually
// undershoot the invoice amount both park; once their sum reaches the
// invoice amount the second one triggers the Unpaid->Accepted transition.
func TestMPPMerge(t *testing.T) {
	t.Parallel()

	h, store, stl, invID, hash := newTestHandler(t, 1000, 0)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}

	out1 := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 600})
	require.Equal(t, Park, out1.Kind)

	inv, err := store.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, invoices.Unpaid, inv.State)
	require.Empty(t, stl.accepted)

	out2 := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x2", ChannelID: 2, AmountMsat: 400})
	require.Equal(t, Park, out2.Kind)

	require.Len(t, stl.accepted, 1)
	require.Equal(t, hash, stl.accepted[0])
	require.Equal(t, 2, stl.addHTLCCalls)

	_ = invID
}

// TestOverpaymentProtection pins end-to-end scenario 3: a first HTLC of
// 1500 msat against a 1000 msat invoice is admitted (within the 2x guard)
// and, since it covers the amount, triggers SetAccepted; a second HTLC
// bringing the total past 2x is rejected. The fake settler does not persist
// the transition, so the stored invoice stays Unpaid.
func TestOverpaymentProtection(t *testing.T) {
	t.Parallel()

	h, store, stl, _, hash := newTestHandler(t, 1000, 0)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}

	out1 := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 1500})
	require.Equal(t, Park, out1.Kind)

	out2 := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x2", ChannelID: 2, AmountMsat: 600})
	require.Equal(t, Fail, out2.Kind)
	require.Equal(t, settler.FailIncorrectPaymentDetails, out2.Code)

	inv, err := store.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, invoices.Unpaid, inv.State)
	require.Len(t, stl.accepted, 1)
}

// TestRejectedHTLCRecordsIdentity pins spec.md §3/§4.2 step 2: the
// (scid, channel_id) pair that identifies a physical incoming HTLC must be
// recorded on a rejected row exactly as it is on an accepted one, so a
// resend of a previously-rejected HTLC is caught by replay detection
// instead of being reprocessed from scratch (property P2).
func TestRejectedHTLCRecordsIdentity(t *testing.T) {
	t.Parallel()

	h, store, _, _, hash := newTestHandler(t, 1000, 0)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}

	out := h.HandleHTLC(ctx, onion, Htlc{
		Scid: "1x1x1", ChannelID: 1, AmountMsat: 2001,
	})
	require.Equal(t, Fail, out.Kind)

	inv, err := store.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, inv.HTLCs, 1)

	rejected := inv.HTLCs[0]
	require.Equal(t, invoices.Cancelled, rejected.State)
	require.Equal(t, "1x1x1", rejected.Scid)
	require.Equal(t, uint64(1), rejected.ChannelID)
	require.Equal(t, lnwire.MilliSatoshi(2001), rejected.AmountMsat)

	// A resend of the identical physical HTLC must now hit the replay
	// check and be parked against the existing rendezvous, not be
	// reprocessed (and re-rejected) from scratch.
	out2 := h.HandleHTLC(ctx, onion, Htlc{
		Scid: "1x1x1", ChannelID: 1, AmountMsat: 2001,
	})
	require.Equal(t, Park, out2.Kind)

	inv, err = store.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, inv.HTLCs, 1, "replay of a rejected HTLC must not insert a duplicate row")
}

// TestOverpaymentExactlyTwiceSucceeds pins the boundary: exactly 2x the
// invoice amount is still admitted.
func TestOverpaymentExactlyTwiceSucceeds(t *testing.T) {
	t.Parallel()

	h, _, _, _, hash := newTestHandler(t, 1000, 0)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}

	out := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 2000})
	require.Equal(t, Park, out.Kind)
}

// TestOverpaymentOneMsatOverFails pins the other side of the boundary: one
// msat more than 2x is rejected.
func TestOverpaymentOneMsatOverFails(t *testing.T) {
	t.Parallel()

	h, _, _, _, hash := newTestHandler(t, 1000, 0)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}

	out := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 2001})
	require.Equal(t, Fail, out.Kind)
	require.Equal(t, settler.FailIncorrectPaymentDetails, out.Code)
}

// TestCltvBoundary pins the CLTV edge: a relative delta equal to the
// invoice's minimum is admitted (TestCltvOneLessFails covers one less).
func TestCltvBoundary(t *testing.T) {
	t.Parallel()

	h, _, _, _, hash := newTestHandler(t, 1000, 40)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}

	out := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 1000, CltvExpiryRelative: 40})
	require.Equal(t, Park, out.Kind)
}

func TestCltvOneLessFails(t *testing.T) {
	t.Parallel()

	h, _, _, _, hash := newTestHandler(t, 1000, 40)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}

	out := h.HandleHTLC(ctx, onion, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 1000, CltvExpiryRelative: 39})
	require.Equal(t, Fail, out.Kind)
	require.Equal(t, settler.FailFinalIncorrectCltvExpiry, out.Code)
}

// TestReplayReturnsFreshResolver pins end-to-end scenario 6: a re-delivered
// HTLC (same scid/channel id) after a restart gets a brand new resolver
// bound to the same payment hash, without inserting a duplicate HTLC row
// (property P2).
func TestReplayReturnsFreshResolver(t *testing.T) {
	t.Parallel()

	h, store, stl, _, hash := newTestHandler(t, 1000, 0)
	ctx := context.Background()
	onion := Onion{PaymentHash: hash}
	htlc := Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 1000}

	out1 := h.HandleHTLC(ctx, onion, htlc)
	require.Equal(t, Park, out1.Kind)
	require.Equal(t, 1, stl.addHTLCCalls)

	inv, err := store.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, inv.HTLCs, 1)

	// Re-delivery of the identical (scid, channel id) pair.
	out2 := h.HandleHTLC(ctx, onion, htlc)
	require.Equal(t, Park, out2.Kind)
	require.NotNil(t, out2.Resolver)
	require.Equal(t, 2, stl.addHTLCCalls)

	inv, err = store.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, inv.HTLCs, 1, "replay must not insert a duplicate HTLC row")
}

// TestUnknownPaymentHashContinues checks step 1: an HTLC for a payment hash
// this plugin never issued an invoice for is none of its business.
func TestUnknownPaymentHashContinues(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newTestHandler(t, 1000, 0)
	ctx := context.Background()

	var unknown lntypes.Hash
	unknown[0] = 99

	out := h.HandleHTLC(ctx, Onion{PaymentHash: unknown}, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 1000})
	require.Equal(t, Continue, out.Kind)
}

// TestPaymentSecretMismatchRejects checks step 4: a wrong payment secret is
// rejected even though the payment hash matches.
func TestPaymentSecretMismatchRejects(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	dec := newFakeCodec()
	stl := newFakeSettler()

	var hash, secret, wrongSecret lntypes.Hash
	hash[0] = 1
	secret[0] = 2
	wrongSecret[0] = 3

	dec.decoded[invoiceStr] = &codec.Decoded{
		PaymentHash:   hash,
		PaymentSecret: &secret,
		AmountMsat:    1000,
	}

	_, err := store.Insert(context.Background(), &invoices.Invoice{
		PaymentHash:   hash,
		InvoiceString: invoiceStr,
		State:         invoices.Unpaid,
	})
	require.NoError(t, err)

	h := New(store, dec, stl)
	ctx := context.Background()

	out := h.HandleHTLC(ctx, Onion{PaymentHash: hash, PaymentSecret: &wrongSecret},
		Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 1000})
	require.Equal(t, Fail, out.Kind)
	require.Equal(t, settler.FailIncorrectPaymentDetails, out.Code)
}

// TestNonUnpaidInvoiceRejectsNewHTLC checks step 3: an HTLC arriving for an
// invoice that already left Unpaid (e.g. Cancelled) is rejected outright,
// distinct from the replay path.
func TestNonUnpaidInvoiceRejectsNewHTLC(t *testing.T) {
	t.Parallel()

	h, store, _, invID, hash := newTestHandler(t, 1000, 0)
	ctx := context.Background()

	require.NoError(t, store.SetInvoiceState(ctx, invID, invoices.Unpaid, invoices.Cancelled))

	out := h.HandleHTLC(ctx, Onion{PaymentHash: hash}, Htlc{Scid: "1x1x1", ChannelID: 1, AmountMsat: 1000})
	require.Equal(t, Fail, out.Kind)
	require.Equal(t, settler.FailIncorrectPaymentDetails, out.Code)
}
