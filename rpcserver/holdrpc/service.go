package holdrpc

import (
	"context"

	"google.golang.org/grpc"
)

// HoldServer is the server-side interface the Hold service of
// holdrpc.proto requires; rpcserver.Server implements it.
type HoldServer interface {
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	Invoice(context.Context, *InvoiceRequest) (*InvoiceResponse, error)
	Inject(context.Context, *InjectRequest) (*InjectResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Settle(context.Context, *SettleRequest) (*SettleResponse, error)
	Cancel(context.Context, *CancelRequest) (*CancelResponse, error)
	Clean(context.Context, *CleanRequest) (*CleanResponse, error)
	Track(*TrackRequest, Hold_TrackServer) error
	TrackAll(*TrackAllRequest, Hold_TrackAllServer) error
	OnionMessages(Hold_OnionMessagesServer) error
}

// Hold_TrackServer is the server-side stream handle for the Track rpc.
type Hold_TrackServer interface {
	Send(*TrackUpdate) error
	grpc.ServerStream
}

type holdTrackServer struct{ grpc.ServerStream }

func (s *holdTrackServer) Send(m *TrackUpdate) error {
	return s.ServerStream.SendMsg(m)
}

// Hold_TrackAllServer is the server-side stream handle for the TrackAll rpc.
type Hold_TrackAllServer interface {
	Send(*TrackAllUpdate) error
	grpc.ServerStream
}

type holdTrackAllServer struct{ grpc.ServerStream }

func (s *holdTrackAllServer) Send(m *TrackAllUpdate) error {
	return s.ServerStream.SendMsg(m)
}

// Hold_OnionMessagesServer is the bidirectional stream handle for the
// OnionMessages rpc.
type Hold_OnionMessagesServer interface {
	Send(*OnionMessage) error
	Recv() (*OnionMessageDecision, error)
	grpc.ServerStream
}

type holdOnionMessagesServer struct{ grpc.ServerStream }

func (s *holdOnionMessagesServer) Send(m *OnionMessage) error {
	return s.ServerStream.SendMsg(m)
}

func (s *holdOnionMessagesServer) Recv() (*OnionMessageDecision, error) {
	m := new(OnionMessageDecision)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}

	return m, nil
}

func handlerGetInfo(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HoldServer).GetInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holdrpc.Hold/GetInfo"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HoldServer).GetInfo(ctx, req.(*GetInfoRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func handlerInvoice(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InvoiceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HoldServer).Invoice(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holdrpc.Hold/Invoice"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HoldServer).Invoice(ctx, req.(*InvoiceRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func handlerInject(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InjectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HoldServer).Inject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holdrpc.Hold/Inject"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HoldServer).Inject(ctx, req.(*InjectRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func handlerList(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HoldServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holdrpc.Hold/List"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HoldServer).List(ctx, req.(*ListRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func handlerSettle(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SettleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HoldServer).Settle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holdrpc.Hold/Settle"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HoldServer).Settle(ctx, req.(*SettleRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func handlerCancel(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HoldServer).Cancel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holdrpc.Hold/Cancel"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HoldServer).Cancel(ctx, req.(*CancelRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func handlerClean(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CleanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HoldServer).Clean(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holdrpc.Hold/Clean"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HoldServer).Clean(ctx, req.(*CleanRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func streamTrack(srv interface{}, stream grpc.ServerStream) error {
	m := new(TrackRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}

	return srv.(HoldServer).Track(m, &holdTrackServer{stream})
}

func streamTrackAll(srv interface{}, stream grpc.ServerStream) error {
	m := new(TrackAllRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}

	return srv.(HoldServer).TrackAll(m, &holdTrackAllServer{stream})
}

func streamOnionMessages(srv interface{}, stream grpc.ServerStream) error {
	return srv.(HoldServer).OnionMessages(&holdOnionMessagesServer{stream})
}

// ServiceDesc is the hand-written grpc.ServiceDesc SPEC_FULL.md §6 calls
// for, standing in for what protoc-gen-go-grpc would otherwise generate
// from holdrpc.proto.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "holdrpc.Hold",
	HandlerType: (*HoldServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetInfo", Handler: handlerGetInfo},
		{MethodName: "Invoice", Handler: handlerInvoice},
		{MethodName: "Inject", Handler: handlerInject},
		{MethodName: "List", Handler: handlerList},
		{MethodName: "Settle", Handler: handlerSettle},
		{MethodName: "Cancel", Handler: handlerCancel},
		{MethodName: "Clean", Handler: handlerClean},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Track", Handler: streamTrack, ServerStreams: true},
		{StreamName: "TrackAll", Handler: streamTrackAll, ServerStreams: true},
		{
			StreamName:    "OnionMessages",
			Handler:       streamOnionMessages,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "holdrpc.proto",
}

// RegisterHoldServer registers srv against s.
func RegisterHoldServer(s grpc.ServiceRegistrar, srv HoldServer) {
	s.RegisterService(&ServiceDesc, srv)
}
