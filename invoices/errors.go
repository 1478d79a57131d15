package invoices

import "errors"

// Error taxonomy, spec error handling design §7. Callers type-switch or
// errors.Is against these sentinels; they never branch on error strings.
var (
	// ErrUnknownState is returned by ParseState for a string that isn't
	// one of the four stored state names.
	ErrUnknownState = errors.New("unknown invoice state")

	// ErrInvalidTransition is the StateTransitionError of spec §7: the
	// requested transition isn't an edge of the state graph.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvoiceNotFound is the NotFound error of spec §7: no invoice
	// matches the given payment hash.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrDuplicatePaymentHash is returned by Store.Insert when the
	// payment hash is already present.
	ErrDuplicatePaymentHash = errors.New("payment hash already exists")

	// ErrUnexpectedState is returned when a caller's expected_current
	// state doesn't match the row's actual current state (spec §4.1
	// set_invoice_state / set_htlc_state_by_id).
	ErrUnexpectedState = errors.New("unexpected current state")

	// ErrNoPendingHTLCs is returned by Settle when no pending list exists
	// for the payment hash and the invoice is not already Paid (spec
	// §4.3 settle).
	ErrNoPendingHTLCs = errors.New("no pending htlcs for payment hash")

	// ErrPreimageMismatch is returned when a preimage doesn't hash to the
	// expected payment hash (invariant I1).
	ErrPreimageMismatch = errors.New("preimage does not match payment hash")
)
