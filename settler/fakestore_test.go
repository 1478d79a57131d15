package settler

import (
	"context"
	"sync"
	"time"

	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/invoices"
)

// fakeStore is a minimal in-memory invoices.Store used to drive the
// settler under test without a real SQL backend (design note §9, capability
// sets driven by in-memory fakes).
type fakeStore struct {
	mu       sync.Mutex
	invoices map[int64]*invoices.Invoice
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{invoices: make(map[int64]*invoices.Invoice)}
}

func (f *fakeStore) Insert(_ context.Context, inv *invoices.Invoice) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.invoices {
		if existing.PaymentHash == inv.PaymentHash {
			return 0, invoices.ErrDuplicatePaymentHash
		}
	}

	f.nextID++
	cp := *inv
	cp.ID = f.nextID
	f.invoices[cp.ID] = &cp

	return cp.ID, nil
}

func (f *fakeStore) InsertHTLC(_ context.Context, invoiceID int64, htlc *invoices.HTLC) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	inv, ok := f.invoices[invoiceID]
	if !ok {
		return 0, invoices.ErrInvoiceNotFound
	}

	cp := *htlc
	cp.ID = int64(len(inv.HTLCs)) + 1
	cp.InvoiceID = invoiceID
	inv.HTLCs = append(inv.HTLCs, cp)

	return cp.ID, nil
}

func (f *fakeStore) SetInvoiceState(_ context.Context, id int64, expectedCurrent, new invoices.State) error {
	if err := invoices.ValidateTransition(expectedCurrent, new); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	inv, ok := f.invoices[id]
	if !ok {
		return invoices.ErrInvoiceNotFound
	}
	if inv.State != expectedCurrent {
		return invoices.ErrUnexpectedState
	}

	inv.State = new
	if new == invoices.Paid {
		inv.SettledAt = time.Now()
	}

	return nil
}

func (f *fakeStore) SetHTLCState(_ context.Context, htlcID int64, expectedCurrent, new invoices.State) error {
	if err := invoices.ValidateTransition(expectedCurrent, new); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, inv := range f.invoices {
		for i := range inv.HTLCs {
			if inv.HTLCs[i].ID == htlcID {
				if inv.HTLCs[i].State != expectedCurrent {
					return invoices.ErrUnexpectedState
				}
				inv.HTLCs[i].State = new

				return nil
			}
		}
	}

	return invoices.ErrInvoiceNotFound
}

func (f *fakeStore) SetHTLCStatesByInvoice(_ context.Context, invoiceID int64, expectedCurrent, new invoices.State) error {
	if err := invoices.ValidateTransition(expectedCurrent, new); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	inv, ok := f.invoices[invoiceID]
	if !ok {
		return invoices.ErrInvoiceNotFound
	}

	for i := range inv.HTLCs {
		if inv.HTLCs[i].State == expectedCurrent {
			inv.HTLCs[i].State = new
		}
	}

	return nil
}

func (f *fakeStore) SetInvoiceSettled(_ context.Context, hash lntypes.Hash, preimage lntypes.Preimage) error {
	if err := invoices.ValidatePreimage(hash, preimage); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, inv := range f.invoices {
		if inv.PaymentHash != hash {
			continue
		}

		if inv.State == invoices.Paid {
			return nil
		}
		if err := invoices.ValidateTransition(inv.State, invoices.Paid); err != nil {
			return err
		}

		p := preimage
		inv.State = invoices.Paid
		inv.Preimage = &p
		inv.SettledAt = time.Now()

		for i := range inv.HTLCs {
			if inv.HTLCs[i].State == invoices.Accepted {
				inv.HTLCs[i].State = invoices.Paid
			}
		}

		return nil
	}

	return invoices.ErrInvoiceNotFound
}

func (f *fakeStore) CleanCancelled(_ context.Context, age time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	cutoff := time.Now().Add(-age)
	for id, inv := range f.invoices {
		if inv.State == invoices.Cancelled && inv.CreatedAt.Before(cutoff) {
			delete(f.invoices, id)
			n++
		}
	}

	return n, nil
}

func (f *fakeStore) GetByPaymentHash(_ context.Context, hash lntypes.Hash) (*invoices.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, inv := range f.invoices {
		if inv.PaymentHash == hash {
			cp := *inv
			cp.HTLCs = append([]invoices.HTLC(nil), inv.HTLCs...)

			return &cp, nil
		}
	}

	return nil, invoices.ErrInvoiceNotFound
}

func (f *fakeStore) GetAll(_ context.Context) ([]*invoices.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*invoices.Invoice
	for _, inv := range f.invoices {
		cp := *inv
		result = append(result, &cp)
	}

	return result, nil
}

func (f *fakeStore) GetPaginated(_ context.Context, startID int64, limit int) ([]*invoices.Invoice, error) {
	all, _ := f.GetAll(context.Background())

	var result []*invoices.Invoice
	for _, inv := range all {
		if inv.ID > startID {
			result = append(result, inv)
			if len(result) >= limit {
				break
			}
		}
	}

	return result, nil
}

func (f *fakeStore) Close() error { return nil }

var _ invoices.Store = (*fakeStore)(nil)
