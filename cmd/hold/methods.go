package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lightninglabs/hold/encoder"
	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
	"github.com/lightninglabs/hold/invoices"
	"github.com/lightninglabs/hold/pluginrpc"
)

// registerMethods wires the six RPC methods of spec.md §6 onto the host
// daemon's own RPC surface, so `lightning-cli holdinvoice ...` works
// without the gRPC endpoint.
func registerMethods(plugin *pluginrpc.Plugin, aRef **app) {
	plugin.Method("holdinvoice", "payment_hash amount_msat [description]",
		"Create a new hold invoice", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			a := *aRef
			if a == nil {
				return nil, errors.New("plugin not initialized")
			}

			var p struct {
				PaymentHash string `json:"payment_hash"`
				AmountMsat  string `json:"amount_msat"`
				Description string `json:"description"`
				Expiry      int64  `json:"expiry"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("parse params: %w", err)
			}

			hash, err := parseHash(p.PaymentHash)
			if err != nil {
				return nil, fmt.Errorf("payment_hash: %w", err)
			}

			amount, err := parseAmount(p.AmountMsat)
			if err != nil {
				return nil, fmt.Errorf("amount_msat: %w", err)
			}

			var secret lntypes.Hash
			if _, err := rand.Read(secret[:]); err != nil {
				return nil, fmt.Errorf("generate payment secret: %w", err)
			}

			expiry := time.Hour
			if p.Expiry > 0 {
				expiry = time.Duration(p.Expiry) * time.Second
			}

			invoiceStr, err := a.encoder.Build(encoder.Params{
				PaymentHash:   hash,
				PaymentSecret: secret,
				AmountMsat:    amount,
				Description:   p.Description,
				Expiry:        expiry,
				CreatedAt:     time.Now(),
			})
			if err != nil {
				return nil, fmt.Errorf("build invoice: %w", err)
			}

			_, err = a.store.Insert(ctx, &invoices.Invoice{
				PaymentHash:   hash,
				InvoiceString: invoiceStr,
				State:         invoices.Unpaid,
			})
			if err != nil {
				return nil, err
			}

			return map[string]string{"bolt11": invoiceStr}, nil
		})

	plugin.Method("injectholdinvoice", "invoice [min_cltv]",
		"Inject an already-encoded hold invoice", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			a := *aRef
			if a == nil {
				return nil, errors.New("plugin not initialized")
			}

			var p struct {
				Invoice string `json:"invoice"`
				MinCltv *uint32 `json:"min_cltv"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("parse params: %w", err)
			}

			decoded, err := a.codec.Decode(p.Invoice)
			if err != nil {
				return nil, fmt.Errorf("decode invoice: %w", err)
			}

			inv := &invoices.Invoice{
				PaymentHash:   decoded.PaymentHash,
				InvoiceString: p.Invoice,
				State:         invoices.Unpaid,
				MinCltv:       p.MinCltv,
			}

			if _, err := a.store.Insert(ctx, inv); err != nil {
				return nil, err
			}

			return map[string]string{
				"payment_hash": hex.EncodeToString(decoded.PaymentHash[:]),
			}, nil
		})

	plugin.Method("settleholdinvoice", "preimage",
		"Settle a parked hold invoice", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			a := *aRef
			if a == nil {
				return nil, errors.New("plugin not initialized")
			}

			var p struct {
				Preimage string `json:"preimage"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("parse params: %w", err)
			}

			raw, err := hex.DecodeString(p.Preimage)
			if err != nil {
				return nil, fmt.Errorf("preimage: %w", err)
			}
			preimage, err := lntypes.MakePreimage(raw)
			if err != nil {
				return nil, fmt.Errorf("preimage: %w", err)
			}

			if err := a.settlerSvc.Settle(ctx, preimage.Hash(), preimage); err != nil {
				return nil, err
			}
			a.metrics.InvoiceSettled()

			return map[string]string{"status": "settled"}, nil
		})

	plugin.Method("cancelholdinvoice", "payment_hash",
		"Cancel a hold invoice", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			a := *aRef
			if a == nil {
				return nil, errors.New("plugin not initialized")
			}

			var p struct {
				PaymentHash string `json:"payment_hash"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("parse params: %w", err)
			}

			hash, err := parseHash(p.PaymentHash)
			if err != nil {
				return nil, fmt.Errorf("payment_hash: %w", err)
			}

			if err := a.settlerSvc.Cancel(ctx, hash); err != nil {
				return nil, err
			}
			a.metrics.InvoiceCancelled()

			return map[string]string{"status": "cancelled"}, nil
		})

	plugin.Method("listholdinvoices", "[payment_hash]",
		"List hold invoices", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			a := *aRef
			if a == nil {
				return nil, errors.New("plugin not initialized")
			}

			var p struct {
				PaymentHash string `json:"payment_hash"`
			}
			if len(params) > 0 {
				if err := json.Unmarshal(params, &p); err != nil {
					return nil, fmt.Errorf("parse params: %w", err)
				}
			}

			if p.PaymentHash != "" {
				hash, err := parseHash(p.PaymentHash)
				if err != nil {
					return nil, fmt.Errorf("payment_hash: %w", err)
				}

				inv, err := a.store.GetByPaymentHash(ctx, hash)
				if errors.Is(err, invoices.ErrInvoiceNotFound) {
					return map[string]interface{}{"invoices": []interface{}{}}, nil
				}
				if err != nil {
					return nil, err
				}

				return map[string]interface{}{
					"invoices": []interface{}{invoiceToMap(inv)},
				}, nil
			}

			all, err := a.store.GetAll(ctx)
			if err != nil {
				return nil, err
			}

			out := make([]interface{}, len(all))
			for i, inv := range all {
				out[i] = invoiceToMap(inv)
			}

			return map[string]interface{}{"invoices": out}, nil
		})

	plugin.Method("cleanholdinvoices", "[age_seconds]",
		"Remove cancelled invoices older than age_seconds", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			a := *aRef
			if a == nil {
				return nil, errors.New("plugin not initialized")
			}

			var p struct {
				AgeSeconds int64 `json:"age_seconds"`
			}
			if len(params) > 0 {
				if err := json.Unmarshal(params, &p); err != nil {
					return nil, fmt.Errorf("parse params: %w", err)
				}
			}

			n, err := a.store.CleanCancelled(ctx, time.Duration(p.AgeSeconds)*time.Second)
			if err != nil {
				return nil, err
			}

			return map[string]int{"num_removed": n}, nil
		})
}

func parseHash(s string) (lntypes.Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return lntypes.Hash{}, err
	}

	return lntypes.MakeHash(b)
}

func parseAmount(s string) (lnwire.MilliSatoshi, error) {
	var n uint64
	if _, err := fmt.Sscanf(s, "%dmsat", &n); err == nil {
		return lnwire.MilliSatoshi(n), nil
	}

	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}

	return lnwire.MilliSatoshi(n), nil
}

func invoiceToMap(inv *invoices.Invoice) map[string]interface{} {
	m := map[string]interface{}{
		"payment_hash": hex.EncodeToString(inv.PaymentHash[:]),
		"bolt11":       inv.InvoiceString,
		"state":        inv.State.String(),
	}
	if inv.Preimage != nil {
		m["preimage"] = hex.EncodeToString(inv.Preimage[:])
	}

	return m
}
