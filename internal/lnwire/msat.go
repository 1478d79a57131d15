// Package lnwire re-homes the tiny slice of lnd's lnwire package this plugin
// actually needs: the millisatoshi amount type and its String form. Not
// importable from lnd directly for the same reason as internal/lntypes.
package lnwire

import "fmt"

// MilliSatoshi is a thousandth of a satoshi.
type MilliSatoshi uint64

// String returns the string representation of the amount, suffixed in
// milli-satoshis.
func (m MilliSatoshi) String() string {
	return fmt.Sprintf("%d mSAT", uint64(m))
}
