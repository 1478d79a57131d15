package invoices

import "fmt"

// State is the lifecycle state of an Invoice or an HTLC. Both share the same
// enum and the same transition graph (spec data model §3): an HTLC's state
// is always a subset of its parent invoice's lifetime.
type State byte

const (
	// Unpaid is the initial state: no HTLC has been accepted against the
	// invoice yet, or accepted HTLCs don't yet cover the requested amount.
	Unpaid State = iota

	// Accepted means enough HTLCs have arrived to cover the invoice
	// amount, but the preimage has not been released.
	Accepted

	// Paid is a terminal state: the preimage has been released and every
	// Accepted HTLC has been settled.
	Paid

	// Cancelled is a terminal state: the invoice will never be paid.
	Cancelled
)

// String returns the short, storage-stable string form of the state. The
// store persists this string rather than the raw byte so the schema stays
// portable across backends (design note §9); business logic must never
// switch on the string form directly.
func (s State) String() string {
	switch s {
	case Unpaid:
		return "unpaid"
	case Accepted:
		return "accepted"
	case Paid:
		return "paid"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseState round-trips the stored string form back into a State.
func ParseState(s string) (State, error) {
	switch s {
	case "unpaid":
		return Unpaid, nil
	case "accepted":
		return Accepted, nil
	case "paid":
		return Paid, nil
	case "cancelled":
		return Cancelled, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
}

// IsFinal reports whether no further transition out of s is possible.
func (s State) IsFinal() bool {
	return s == Paid || s == Cancelled
}

// legalTransitions encodes the graph from spec data model §3. A state not
// present here, or a destination not in its set, is illegal - except that
// both terminal states permit a same-state re-apply as a no-op (I2 requires
// settle/cancel of an already-terminal invoice to be idempotent, not an
// error).
var legalTransitions = map[State]map[State]bool{
	Unpaid:    {Accepted: true, Cancelled: true},
	Accepted:  {Paid: true, Cancelled: true},
	Paid:      {Paid: true},
	Cancelled: {Cancelled: true},
}

// ValidateTransition returns nil if to is reachable from from by one edge of
// the graph above (property P4), and StateTransitionError otherwise.
func ValidateTransition(from, to State) error {
	if legalTransitions[from][to] {
		return nil
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
