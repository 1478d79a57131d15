package store

import (
	"context"
	"testing"
	"time"

	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/invoices"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	s, err := Open(Config{
		Backend: BackendSQLite,
		DSN:     "file::memory:?cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func TestInsertAndGetByPaymentHash(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var hash lntypes.Hash
	hash[0] = 1

	id, err := s.Insert(ctx, &invoices.Invoice{
		PaymentHash:   hash,
		InvoiceString: "lnbc1...",
		State:         invoices.Unpaid,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = s.Insert(ctx, &invoices.Invoice{
		PaymentHash:   hash,
		InvoiceString: "lnbc1...",
		State:         invoices.Unpaid,
	})
	require.ErrorIs(t, err, invoices.ErrDuplicatePaymentHash)

	got, err := s.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, invoices.Unpaid, got.State)
	require.Empty(t, got.HTLCs)

	var other lntypes.Hash
	other[0] = 2
	_, err = s.GetByPaymentHash(ctx, other)
	require.ErrorIs(t, err, invoices.ErrInvoiceNotFound)
}

func TestSetInvoiceSettled(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var preimage lntypes.Preimage
	preimage[0] = 7
	hash := preimage.Hash()

	invID, err := s.Insert(ctx, &invoices.Invoice{
		PaymentHash:   hash,
		InvoiceString: "lnbc1...",
		State:         invoices.Unpaid,
	})
	require.NoError(t, err)

	err = s.SetInvoiceState(ctx, invID, invoices.Unpaid, invoices.Accepted)
	require.NoError(t, err)

	htlcID, err := s.InsertHTLC(ctx, invID, &invoices.HTLC{
		State:      invoices.Accepted,
		Scid:       "1x1x1",
		ChannelID:  5,
		AmountMsat: 1000,
	})
	require.NoError(t, err)
	require.NotZero(t, htlcID)

	require.NoError(t, s.SetInvoiceSettled(ctx, hash, preimage))

	got, err := s.GetByPaymentHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, invoices.Paid, got.State)
	require.NotNil(t, got.Preimage)
	require.Equal(t, preimage, *got.Preimage)
	require.Len(t, got.HTLCs, 1)
	require.Equal(t, invoices.Paid, got.HTLCs[0].State)

	// Re-applying settle is idempotent.
	require.NoError(t, s.SetInvoiceSettled(ctx, hash, preimage))
}

func TestCleanCancelled(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var hash lntypes.Hash
	hash[0] = 9

	invID, err := s.Insert(ctx, &invoices.Invoice{
		PaymentHash:   hash,
		InvoiceString: "lnbc1...",
		State:         invoices.Unpaid,
	})
	require.NoError(t, err)

	require.NoError(t, s.SetInvoiceState(ctx, invID, invoices.Unpaid, invoices.Cancelled))

	n, err := s.CleanCancelled(ctx, -time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = s.GetByPaymentHash(ctx, hash)
	require.ErrorIs(t, err, invoices.ErrInvoiceNotFound)
}
