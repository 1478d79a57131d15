// Package holdrpc defines the wire messages of spec.md §6's gRPC endpoint,
// matching holdrpc.proto in this directory. Hand-written rather than
// protoc-generated since this workspace never invokes external codegen
// (see DESIGN.md, SPEC_FULL.md §6): each type carries the same protobuf
// struct tags protoc-gen-go would emit, and the legacy Reset/String/
// ProtoMessage trio google.golang.org/protobuf's compatibility shim uses to
// marshal types that predate the reflective ProtoReflect() API.
package holdrpc

import "fmt"

type Htlc struct {
	Scid       string `protobuf:"bytes,1,opt,name=scid,proto3" json:"scid,omitempty"`
	ChannelId  uint64 `protobuf:"varint,2,opt,name=channel_id,json=channelId,proto3" json:"channel_id,omitempty"`
	AmountMsat uint64 `protobuf:"varint,3,opt,name=amount_msat,json=amountMsat,proto3" json:"amount_msat,omitempty"`
	State      string `protobuf:"bytes,4,opt,name=state,proto3" json:"state,omitempty"`
	CreatedAt  int64  `protobuf:"varint,5,opt,name=created_at,json=createdAt,proto3" json:"created_at,omitempty"`
}

func (m *Htlc) Reset()         { *m = Htlc{} }
func (m *Htlc) String() string { return fmt.Sprintf("%+v", *m) }
func (*Htlc) ProtoMessage()    {}

type Invoice struct {
	PaymentHash   []byte `protobuf:"bytes,1,opt,name=payment_hash,json=paymentHash,proto3" json:"payment_hash,omitempty"`
	InvoiceString string `protobuf:"bytes,2,opt,name=invoice_string,json=invoiceString,proto3" json:"invoice_string,omitempty"`
	State         string `protobuf:"bytes,3,opt,name=state,proto3" json:"state,omitempty"`
	Preimage      []byte `protobuf:"bytes,4,opt,name=preimage,proto3" json:"preimage,omitempty"`
	MinCltv       uint32 `protobuf:"varint,5,opt,name=min_cltv,json=minCltv,proto3" json:"min_cltv,omitempty"`
	CreatedAt     int64  `protobuf:"varint,6,opt,name=created_at,json=createdAt,proto3" json:"created_at,omitempty"`
	SettledAt     int64  `protobuf:"varint,7,opt,name=settled_at,json=settledAt,proto3" json:"settled_at,omitempty"`
	Htlcs         []*Htlc `protobuf:"bytes,8,rep,name=htlcs,proto3" json:"htlcs,omitempty"`
}

func (m *Invoice) Reset()         { *m = Invoice{} }
func (m *Invoice) String() string { return fmt.Sprintf("%+v", *m) }
func (*Invoice) ProtoMessage()    {}

type GetInfoRequest struct{}

func (m *GetInfoRequest) Reset()         { *m = GetInfoRequest{} }
func (m *GetInfoRequest) String() string { return "GetInfoRequest{}" }
func (*GetInfoRequest) ProtoMessage()    {}

type GetInfoResponse struct {
	Version string `protobuf:"bytes,1,opt,name=version,proto3" json:"version,omitempty"`
	Network string `protobuf:"bytes,2,opt,name=network,proto3" json:"network,omitempty"`
	Healthy bool   `protobuf:"varint,3,opt,name=healthy,proto3" json:"healthy,omitempty"`
}

func (m *GetInfoResponse) Reset()         { *m = GetInfoResponse{} }
func (m *GetInfoResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*GetInfoResponse) ProtoMessage()    {}

type InvoiceRequest struct {
	PaymentHash []byte `protobuf:"bytes,1,opt,name=payment_hash,json=paymentHash,proto3" json:"payment_hash,omitempty"`
	AmountMsat  uint64 `protobuf:"varint,2,opt,name=amount_msat,json=amountMsat,proto3" json:"amount_msat,omitempty"`
}

func (m *InvoiceRequest) Reset()         { *m = InvoiceRequest{} }
func (m *InvoiceRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*InvoiceRequest) ProtoMessage()    {}

type InvoiceResponse struct {
	InvoiceString string `protobuf:"bytes,1,opt,name=invoice_string,json=invoiceString,proto3" json:"invoice_string,omitempty"`
}

func (m *InvoiceResponse) Reset()         { *m = InvoiceResponse{} }
func (m *InvoiceResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*InvoiceResponse) ProtoMessage()    {}

type InjectRequest struct {
	Invoice string `protobuf:"bytes,1,opt,name=invoice,proto3" json:"invoice,omitempty"`
	MinCltv uint32 `protobuf:"varint,2,opt,name=min_cltv,json=minCltv,proto3" json:"min_cltv,omitempty"`
}

func (m *InjectRequest) Reset()         { *m = InjectRequest{} }
func (m *InjectRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*InjectRequest) ProtoMessage()    {}

type InjectResponse struct {
	PaymentHash []byte `protobuf:"bytes,1,opt,name=payment_hash,json=paymentHash,proto3" json:"payment_hash,omitempty"`
}

func (m *InjectResponse) Reset()         { *m = InjectResponse{} }
func (m *InjectResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*InjectResponse) ProtoMessage()    {}

type ListRequest struct {
	PaymentHash   []byte `protobuf:"bytes,1,opt,name=payment_hash,json=paymentHash,proto3" json:"payment_hash,omitempty"`
	InvoiceString string `protobuf:"bytes,2,opt,name=invoice_string,json=invoiceString,proto3" json:"invoice_string,omitempty"`
}

func (m *ListRequest) Reset()         { *m = ListRequest{} }
func (m *ListRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*ListRequest) ProtoMessage()    {}

type ListResponse struct {
	Invoices []*Invoice `protobuf:"bytes,1,rep,name=invoices,proto3" json:"invoices,omitempty"`
}

func (m *ListResponse) Reset()         { *m = ListResponse{} }
func (m *ListResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*ListResponse) ProtoMessage()    {}

type SettleRequest struct {
	Preimage []byte `protobuf:"bytes,1,opt,name=preimage,proto3" json:"preimage,omitempty"`
}

func (m *SettleRequest) Reset()         { *m = SettleRequest{} }
func (m *SettleRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*SettleRequest) ProtoMessage()    {}

type SettleResponse struct{}

func (m *SettleResponse) Reset()         { *m = SettleResponse{} }
func (m *SettleResponse) String() string { return "SettleResponse{}" }
func (*SettleResponse) ProtoMessage()    {}

type CancelRequest struct {
	PaymentHash []byte `protobuf:"bytes,1,opt,name=payment_hash,json=paymentHash,proto3" json:"payment_hash,omitempty"`
}

func (m *CancelRequest) Reset()         { *m = CancelRequest{} }
func (m *CancelRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*CancelRequest) ProtoMessage()    {}

type CancelResponse struct{}

func (m *CancelResponse) Reset()         { *m = CancelResponse{} }
func (m *CancelResponse) String() string { return "CancelResponse{}" }
func (*CancelResponse) ProtoMessage()    {}

type CleanRequest struct {
	AgeSeconds int64 `protobuf:"varint,1,opt,name=age_seconds,json=ageSeconds,proto3" json:"age_seconds,omitempty"`
}

func (m *CleanRequest) Reset()         { *m = CleanRequest{} }
func (m *CleanRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*CleanRequest) ProtoMessage()    {}

type CleanResponse struct {
	NumRemoved int64 `protobuf:"varint,1,opt,name=num_removed,json=numRemoved,proto3" json:"num_removed,omitempty"`
}

func (m *CleanResponse) Reset()         { *m = CleanResponse{} }
func (m *CleanResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*CleanResponse) ProtoMessage()    {}

type TrackRequest struct {
	PaymentHash []byte `protobuf:"bytes,1,opt,name=payment_hash,json=paymentHash,proto3" json:"payment_hash,omitempty"`
}

func (m *TrackRequest) Reset()         { *m = TrackRequest{} }
func (m *TrackRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*TrackRequest) ProtoMessage()    {}

type TrackUpdate struct {
	InvoiceString string `protobuf:"bytes,1,opt,name=invoice_string,json=invoiceString,proto3" json:"invoice_string,omitempty"`
	State         string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
}

func (m *TrackUpdate) Reset()         { *m = TrackUpdate{} }
func (m *TrackUpdate) String() string { return fmt.Sprintf("%+v", *m) }
func (*TrackUpdate) ProtoMessage()    {}

type TrackAllRequest struct {
	PaymentHashes [][]byte `protobuf:"bytes,1,rep,name=payment_hashes,json=paymentHashes,proto3" json:"payment_hashes,omitempty"`
}

func (m *TrackAllRequest) Reset()         { *m = TrackAllRequest{} }
func (m *TrackAllRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*TrackAllRequest) ProtoMessage()    {}

type TrackAllUpdate struct {
	PaymentHash   []byte `protobuf:"bytes,1,opt,name=payment_hash,json=paymentHash,proto3" json:"payment_hash,omitempty"`
	InvoiceString string `protobuf:"bytes,2,opt,name=invoice_string,json=invoiceString,proto3" json:"invoice_string,omitempty"`
	State         string `protobuf:"bytes,3,opt,name=state,proto3" json:"state,omitempty"`
}

func (m *TrackAllUpdate) Reset()         { *m = TrackAllUpdate{} }
func (m *TrackAllUpdate) String() string { return fmt.Sprintf("%+v", *m) }
func (*TrackAllUpdate) ProtoMessage()    {}

type OnionMessage struct {
	MessageId []byte `protobuf:"bytes,1,opt,name=message_id,json=messageId,proto3" json:"message_id,omitempty"`
	Payload   []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (m *OnionMessage) Reset()         { *m = OnionMessage{} }
func (m *OnionMessage) String() string { return fmt.Sprintf("%+v", *m) }
func (*OnionMessage) ProtoMessage()    {}

type OnionMessageDecision struct {
	MessageId []byte `protobuf:"bytes,1,opt,name=message_id,json=messageId,proto3" json:"message_id,omitempty"`
	Resolve   bool   `protobuf:"varint,2,opt,name=resolve,proto3" json:"resolve,omitempty"`
}

func (m *OnionMessageDecision) Reset()         { *m = OnionMessageDecision{} }
func (m *OnionMessageDecision) String() string { return fmt.Sprintf("%+v", *m) }
func (*OnionMessageDecision) ProtoMessage()    {}
