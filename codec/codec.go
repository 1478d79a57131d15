// Package codec decodes serialized Lightning invoices. The plugin only
// ever needs a handful of fields out of the invoice, so rather than pull in
// a full BOLT11 library this package walks the bech32 payload directly,
// following the tagged-field layout BOLT11 defines.
package codec

import (
	"errors"

	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
)

// ErrInvalidInvoice is InvoiceDecodeError of the error taxonomy (spec error
// handling design §7): the input is not a parseable BOLT11/BOLT12 string.
var ErrInvalidInvoice = errors.New("invalid invoice string")

// Decoded is the subset of invoice fields the handler and the inject path
// need.
type Decoded struct {
	PaymentHash      lntypes.Hash
	PaymentSecret    *lntypes.Hash
	AmountMsat       lnwire.MilliSatoshi
	MinFinalCLTVDelta uint32
	Description      string
}

// Codec decodes a serialized invoice string. Defined here, next to its one
// real implementation, so handler/settler tests can supply a hand-written
// fake without pulling in the bech32 decode path (design note §9, the
// capability-set idiom).
type Codec interface {
	Decode(invoiceStr string) (*Decoded, error)
}
