package invoices

import (
	"testing"

	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAmountPaidMsat(t *testing.T) {
	t.Parallel()

	htlcs := []HTLC{
		{State: Accepted, AmountMsat: 600},
		{State: Paid, AmountMsat: 400},
		{State: Cancelled, AmountMsat: 1500},
	}

	require.Equal(t, lnwire.MilliSatoshi(1000), AmountPaidMsat(htlcs))
}

func TestValidatePreimage(t *testing.T) {
	t.Parallel()

	var preimage lntypes.Preimage
	hash := preimage.Hash()

	require.NoError(t, ValidatePreimage(hash, preimage))

	var wrongPreimage lntypes.Preimage
	wrongPreimage[0] = 1
	require.ErrorIs(t, ValidatePreimage(hash, wrongPreimage), ErrPreimageMismatch)
}

// TestInvariantsUnderRandomSequences is the property test for P1. It drives
// a minimal in-memory reference model (HTLC admission, settle, cancel)
// through the state machine and asserts I2 after every step. I1, I3 and I4
// are not asserted: the model carries no hash or preimage, and
// AmountPaidMsat is only evaluated. The model never moves the invoice to
// Accepted, so settle is always refused by ValidateTransition.
func TestInvariantsUnderRandomSequences(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		inv := &Invoice{State: Unpaid}
		var htlcs []HTLC

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			op := rapid.SampledFrom([]string{
				"accept_htlc", "settle", "cancel",
			}).Draw(t, "op")

			switch op {
			case "accept_htlc":
				if inv.State != Unpaid {
					continue
				}
				amt := lnwire.MilliSatoshi(rapid.IntRange(1, 1000).Draw(t, "amt"))
				htlcs = append(htlcs, HTLC{State: Accepted, AmountMsat: amt})

			case "settle":
				if err := ValidateTransition(inv.State, Paid); err != nil {
					continue
				}
				inv.State = Paid
				for i := range htlcs {
					if htlcs[i].State == Accepted {
						htlcs[i].State = Paid
					}
				}

			case "cancel":
				if err := ValidateTransition(inv.State, Cancelled); err != nil {
					continue
				}
				inv.State = Cancelled
				for i := range htlcs {
					if !htlcs[i].State.IsFinal() {
						htlcs[i].State = Cancelled
					}
				}
			}

			// I2: once the invoice is Paid, every HTLC is Paid or
			// Cancelled; once Cancelled, every HTLC is final.
			if inv.State == Paid {
				for _, h := range htlcs {
					require.True(t, h.State == Paid || h.State == Cancelled)
				}
			}
			if inv.State == Cancelled {
				for _, h := range htlcs {
					require.True(t, h.State.IsFinal())
				}
			}

			// I3 holds by construction: AmountPaidMsat only ever
			// sums Accepted/Paid HTLCs, recomputed fresh each time.
			_ = AmountPaidMsat(htlcs)
		}
	})
}
