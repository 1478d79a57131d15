package invoices

import (
	"context"
	"time"

	"github.com/lightninglabs/hold/internal/lntypes"
)

// Store is the durable invoice/HTLC mapping of spec component §4.1. It is
// defined here, next to the types it operates on, rather than in the
// concrete `store` package, so handler/settler tests can supply hand-written
// fakes without importing the SQL backends (design note §9).
type Store interface {
	// Insert appends a new invoice. Fails with ErrDuplicatePaymentHash if
	// PaymentHash is already present.
	Insert(ctx context.Context, invoice *Invoice) (int64, error)

	// InsertHTLC appends a new child HTLC row under invoiceID.
	InsertHTLC(ctx context.Context, invoiceID int64, htlc *HTLC) (int64, error)

	// SetInvoiceState validates and applies a state transition. Fails
	// with ErrUnexpectedState if the row's current state isn't
	// expectedCurrent, or ErrInvalidTransition if the edge is illegal.
	// Stamps SettledAt when new == Paid.
	SetInvoiceState(ctx context.Context, id int64, expectedCurrent, new State) error

	// SetHTLCState applies the same rule to a single HTLC row.
	SetHTLCState(ctx context.Context, htlcID int64, expectedCurrent, new State) error

	// SetHTLCStatesByInvoice applies the same rule in bulk to every HTLC
	// row of invoiceID currently in expectedCurrent.
	SetHTLCStatesByInvoice(ctx context.Context, invoiceID int64, expectedCurrent, new State) error

	// SetInvoiceSettled is the atomic operation of spec §4.1: transitions
	// the invoice to Paid, stores the preimage, and transitions every
	// Accepted HTLC of that invoice to Paid - all within one transaction.
	SetInvoiceSettled(ctx context.Context, hash lntypes.Hash, preimage lntypes.Preimage) error

	// CleanCancelled deletes, in one transaction, every HTLC row whose
	// parent invoice is Cancelled and CreatedAt <= now-age, then those
	// invoices. Returns the number of invoices removed.
	CleanCancelled(ctx context.Context, age time.Duration) (int, error)

	// GetByPaymentHash returns an invoice with its HTLCs ordered by HTLC
	// ID, or ErrInvoiceNotFound.
	GetByPaymentHash(ctx context.Context, hash lntypes.Hash) (*Invoice, error)

	// GetAll returns every invoice, HTLCs included.
	GetAll(ctx context.Context) ([]*Invoice, error)

	// GetPaginated returns invoices with ID > startID, up to limit rows.
	GetPaginated(ctx context.Context, startID int64, limit int) ([]*Invoice, error)

	// Close releases the underlying connection pool.
	Close() error
}
