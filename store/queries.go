package store

import (
	"database/sql"
	"strings"

	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/invoices"
)

const (
	insertInvoiceQuery = `
INSERT INTO invoices (payment_hash, invoice_string, state, min_cltv, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

	insertHTLCQuery = `
INSERT INTO htlcs (invoice_id, state, scid, channel_id, amount_msat, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

	setInvoiceStateQuery = `
UPDATE invoices SET state = $1, settled_at = $2
WHERE id = $3 AND state = $4`

	setHTLCStateQuery = `
UPDATE htlcs SET state = $1
WHERE id = $2 AND state = $3`

	setHTLCStatesByInvoiceQuery = `
UPDATE htlcs SET state = $1
WHERE invoice_id = $2 AND state = $3`

	getInvoiceForUpdateQuery = `
SELECT id, state FROM invoices WHERE payment_hash = $1`

	settleInvoiceQuery = `
UPDATE invoices SET state = $1, preimage = $2, settled_at = $3
WHERE id = $4`

	deleteCancelledInvoicesQuery = `
DELETE FROM invoices WHERE state = $1 AND created_at <= $2`

	invoiceColumns = `id, payment_hash, preimage, invoice_string, state, min_cltv, created_at, settled_at`

	getInvoiceByHashQuery = `
SELECT ` + invoiceColumns + ` FROM invoices WHERE payment_hash = $1`

	getAllInvoicesQuery = `
SELECT ` + invoiceColumns + ` FROM invoices ORDER BY id`

	getPaginatedInvoicesQuery = `
SELECT ` + invoiceColumns + ` FROM invoices WHERE id > $1 ORDER BY id LIMIT $2`

	getHTLCsByInvoiceQuery = `
SELECT id, invoice_id, state, scid, channel_id, amount_msat, created_at
FROM htlcs WHERE invoice_id = $1 ORDER BY id`
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*invoices.Invoice, error) {
	var (
		inv         invoices.Invoice
		hashBytes   []byte
		preimage    []byte
		state       int16
		minCltv     sql.NullInt64
		settledAt   sql.NullTime
	)

	err := row.Scan(&inv.ID, &hashBytes, &preimage, &inv.InvoiceString,
		&state, &minCltv, &inv.CreatedAt, &settledAt)
	if err != nil {
		return nil, err
	}

	hash, err := lntypes.MakeHash(hashBytes)
	if err != nil {
		return nil, err
	}
	inv.PaymentHash = hash

	if len(preimage) > 0 {
		p, err := lntypes.MakePreimage(preimage)
		if err != nil {
			return nil, err
		}
		inv.Preimage = &p
	}

	inv.State, err = intToState(state)
	if err != nil {
		return nil, err
	}

	if minCltv.Valid {
		v := uint32(minCltv.Int64)
		inv.MinCltv = &v
	}
	if settledAt.Valid {
		inv.SettledAt = settledAt.Time
	}

	return &inv, nil
}

func scanInvoices(rows *sql.Rows) ([]*invoices.Invoice, error) {
	var result []*invoices.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}

	return result, rows.Err()
}

// isUniqueViolation reports whether err is a unique-constraint violation
// from either the sqlite or postgres driver. Both drivers are kept as
// plain errors (not imported error types) here so this file has no
// compile-time dependency on either driver package.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
