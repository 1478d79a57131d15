package rpcserver

import (
	"github.com/lightninglabs/hold/invoices"
	"github.com/lightninglabs/hold/rpcserver/holdrpc"
)

func invoiceToRPC(inv *invoices.Invoice) *holdrpc.Invoice {
	out := &holdrpc.Invoice{
		PaymentHash:   inv.PaymentHash[:],
		InvoiceString: inv.InvoiceString,
		State:         inv.State.String(),
		CreatedAt:     inv.CreatedAt.Unix(),
	}
	if inv.Preimage != nil {
		out.Preimage = inv.Preimage[:]
	}
	if inv.MinCltv != nil {
		out.MinCltv = *inv.MinCltv
	}
	if !inv.SettledAt.IsZero() {
		out.SettledAt = inv.SettledAt.Unix()
	}

	out.Htlcs = make([]*holdrpc.Htlc, len(inv.HTLCs))
	for i, h := range inv.HTLCs {
		out.Htlcs[i] = &holdrpc.Htlc{
			Scid:       h.Scid,
			ChannelId:  h.ChannelID,
			AmountMsat: uint64(h.AmountMsat),
			State:      h.State.String(),
			CreatedAt:  h.CreatedAt.Unix(),
		}
	}

	return out
}
