// Package rpcserver implements the gRPC service of spec.md §6
// (GetInfo/Invoice/Inject/List/Settle/Cancel/Clean/Track/TrackAll/
// OnionMessages), authenticated over mutual TLS via certsetup's
// bootstrapped certificates.
package rpcserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/lightninglabs/hold/build"
	"github.com/lightninglabs/hold/codec"
	"github.com/lightninglabs/hold/encoder"
	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
	"github.com/lightninglabs/hold/invoices"
	"github.com/lightninglabs/hold/messenger"
	"github.com/lightninglabs/hold/rpcserver/holdrpc"
	"github.com/lightninglabs/hold/settler"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Settler is the capability this package needs from settler.Settler,
// defined here next to its consumer per design note §9.
type Settler interface {
	Settle(ctx context.Context, hash lntypes.Hash, preimage lntypes.Preimage) error
	Cancel(ctx context.Context, hash lntypes.Hash) error
	Updates() <-chan interface{}
}

// HealthChecker reports the most recent store-health probe outcome.
type HealthChecker interface {
	Healthy() bool
}

// Server is the concrete HoldServer implementation.
type Server struct {
	store     invoices.Store
	settler   Settler
	enc       *encoder.Encoder
	codec     codec.Codec
	messenger *messenger.Messenger
	health    HealthChecker
	network   string
}

var _ holdrpc.HoldServer = (*Server)(nil)

// New constructs a Server.
func New(store invoices.Store, s Settler, enc *encoder.Encoder, dec codec.Codec,
	msgr *messenger.Messenger, health HealthChecker, network string) *Server {

	return &Server{
		store:     store,
		settler:   s,
		enc:       enc,
		codec:     dec,
		messenger: msgr,
		health:    health,
		network:   network,
	}
}

// GetInfo reports build/network/health info.
func (s *Server) GetInfo(ctx context.Context, _ *holdrpc.GetInfoRequest) (*holdrpc.GetInfoResponse, error) {
	healthy := true
	if s.health != nil {
		healthy = s.health.Healthy()
	}

	return &holdrpc.GetInfoResponse{
		Version: build.String(),
		Network: s.network,
		Healthy: healthy,
	}, nil
}

// Invoice creates a new hold invoice for payment_hash/amount, asking the
// Encoder to build and sign it (spec.md §6 "holdinvoice").
func (s *Server) Invoice(ctx context.Context, req *holdrpc.InvoiceRequest) (*holdrpc.InvoiceResponse, error) {
	hash, err := lntypes.MakeHash(req.PaymentHash)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "payment_hash: %v", err)
	}

	var secret lntypes.Hash
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, status.Errorf(codes.Internal, "generate payment secret: %v", err)
	}

	invoiceStr, err := s.enc.Build(encoder.Params{
		PaymentHash:   hash,
		PaymentSecret: secret,
		AmountMsat:    lnwire.MilliSatoshi(req.AmountMsat),
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build invoice: %v", err)
	}

	_, err = s.store.Insert(ctx, &invoices.Invoice{
		PaymentHash:   hash,
		InvoiceString: invoiceStr,
		State:         invoices.Unpaid,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &holdrpc.InvoiceResponse{InvoiceString: invoiceStr}, nil
}

// Inject stores a caller-supplied, already-encoded invoice (spec.md §6
// "injectholdinvoice"); minCltv optionally overrides the decoded
// min-final-CLTV.
func (s *Server) Inject(ctx context.Context, req *holdrpc.InjectRequest) (*holdrpc.InjectResponse, error) {
	decoded, err := s.codec.Decode(req.Invoice)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode invoice: %v", err)
	}

	inv := &invoices.Invoice{
		PaymentHash:   decoded.PaymentHash,
		InvoiceString: req.Invoice,
		State:         invoices.Unpaid,
	}
	if req.MinCltv > 0 {
		minCltv := req.MinCltv
		inv.MinCltv = &minCltv
	}

	if _, err := s.store.Insert(ctx, inv); err != nil {
		return nil, toStatus(err)
	}

	return &holdrpc.InjectResponse{PaymentHash: decoded.PaymentHash[:]}, nil
}

// List returns invoices matching payment_hash and/or invoice_string, or
// every invoice when both are empty.
func (s *Server) List(ctx context.Context, req *holdrpc.ListRequest) (*holdrpc.ListResponse, error) {
	if len(req.PaymentHash) > 0 {
		hash, err := lntypes.MakeHash(req.PaymentHash)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "payment_hash: %v", err)
		}

		inv, err := s.store.GetByPaymentHash(ctx, hash)
		if errors.Is(err, invoices.ErrInvoiceNotFound) {
			return &holdrpc.ListResponse{}, nil
		}
		if err != nil {
			return nil, toStatus(err)
		}

		return &holdrpc.ListResponse{Invoices: []*holdrpc.Invoice{invoiceToRPC(inv)}}, nil
	}

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &holdrpc.ListResponse{Invoices: make([]*holdrpc.Invoice, 0, len(all))}
	for _, inv := range all {
		if req.InvoiceString != "" && inv.InvoiceString != req.InvoiceString {
			continue
		}
		resp.Invoices = append(resp.Invoices, invoiceToRPC(inv))
	}

	return resp, nil
}

// Settle releases preimage against its computed payment hash. An unknown
// payment hash is NotFound (spec error handling design §7).
func (s *Server) Settle(ctx context.Context, req *holdrpc.SettleRequest) (*holdrpc.SettleResponse, error) {
	preimage, err := lntypes.MakePreimage(req.Preimage)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "preimage: %v", err)
	}

	hash := preimage.Hash()

	if _, err := s.store.GetByPaymentHash(ctx, hash); errors.Is(err, invoices.ErrInvoiceNotFound) {
		return nil, status.Errorf(codes.NotFound, "no invoice for payment hash %s", hash)
	}

	if err := s.settler.Settle(ctx, hash, preimage); err != nil {
		return nil, toStatus(err)
	}

	return &holdrpc.SettleResponse{}, nil
}

// Cancel fails back and cancels the invoice for payment_hash. Cancelling an
// already-terminal invoice is a success no-op (spec.md §9 open question (b)).
func (s *Server) Cancel(ctx context.Context, req *holdrpc.CancelRequest) (*holdrpc.CancelResponse, error) {
	hash, err := lntypes.MakeHash(req.PaymentHash)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "payment_hash: %v", err)
	}

	if err := s.settler.Cancel(ctx, hash); err != nil {
		return nil, toStatus(err)
	}

	return &holdrpc.CancelResponse{}, nil
}

// Clean removes Cancelled invoices (and their HTLCs) older than age_seconds.
func (s *Server) Clean(ctx context.Context, req *holdrpc.CleanRequest) (*holdrpc.CleanResponse, error) {
	n, err := s.store.CleanCancelled(ctx, time.Duration(req.AgeSeconds)*time.Second)
	if err != nil {
		return nil, toStatus(err)
	}

	return &holdrpc.CleanResponse{NumRemoved: int64(n)}, nil
}

// Track streams state updates for one payment hash until the caller
// disconnects.
func (s *Server) Track(req *holdrpc.TrackRequest, stream holdrpc.Hold_TrackServer) error {
	hash, err := lntypes.MakeHash(req.PaymentHash)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "payment_hash: %v", err)
	}

	updates := s.settler.Updates()
	for {
		select {
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			upd, ok := raw.(settler.StateUpdate)
			if !ok || upd.PaymentHash != hash {
				continue
			}
			err := stream.Send(&holdrpc.TrackUpdate{
				InvoiceString: upd.InvoiceString,
				State:         upd.NewState.String(),
			})
			if err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// TrackAll streams state updates for a set of payment hashes (or every
// payment hash, if the set is empty) until the caller disconnects.
func (s *Server) TrackAll(req *holdrpc.TrackAllRequest, stream holdrpc.Hold_TrackAllServer) error {
	watch := make(map[lntypes.Hash]bool, len(req.PaymentHashes))
	for _, raw := range req.PaymentHashes {
		hash, err := lntypes.MakeHash(raw)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "payment_hashes: %v", err)
		}
		watch[hash] = true
	}

	updates := s.settler.Updates()
	for {
		select {
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			upd, ok := raw.(settler.StateUpdate)
			if !ok {
				continue
			}
			if len(watch) > 0 && !watch[upd.PaymentHash] {
				continue
			}
			err := stream.Send(&holdrpc.TrackAllUpdate{
				PaymentHash:   upd.PaymentHash[:],
				InvoiceString: upd.InvoiceString,
				State:         upd.NewState.String(),
			})
			if err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// OnionMessages forwards arrived onion messages to the subscriber and
// relays its decisions back into the Messenger rendezvous (spec.md §4.5).
func (s *Server) OnionMessages(stream holdrpc.Hold_OnionMessagesServer) error {
	incoming := s.messenger.Subscribe()

	errCh := make(chan error, 1)
	go func() {
		for {
			dec, err := stream.Recv()
			if err != nil {
				errCh <- err
				return
			}

			var id messenger.MessageID
			copy(id[:], dec.MessageId)

			s.messenger.Respond(id, messenger.Decision{Resolve: dec.Resolve, Continue: !dec.Resolve})
		}
	}()

	for {
		select {
		case raw, ok := <-incoming:
			if !ok {
				return nil
			}
			msg, ok := raw.(messenger.Message)
			if !ok {
				continue
			}
			err := stream.Send(&holdrpc.OnionMessage{
				MessageId: msg.ID[:],
				Payload:   msg.Payload,
			})
			if err != nil {
				return err
			}
		case err := <-errCh:
			return err
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, invoices.ErrInvoiceNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, invoices.ErrInvalidTransition),
		errors.Is(err, invoices.ErrUnexpectedState):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("internal error: %v", err))
	}
}
