// Package controlapi describes the operator control surface shared by the
// server and fleetctl. Messages are protobuf well-known types, so the
// service is declared by hand instead of generated from a .proto file:
//
//	service fleetsync.v1.Control {
//	  rpc ForceReconcile(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc PlaylistStatus(google.protobuf.Int64Value) returns (google.protobuf.Struct);
//	  rpc ProbeDevice(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	  rpc ProbeAll(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc DesiredContent(google.protobuf.StringValue) returns (google.protobuf.ListValue);
//	}
package controlapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "fleetsync.v1.Control"

const (
	ForceReconcileMethod = "/" + ServiceName + "/ForceReconcile"
	PlaylistStatusMethod = "/" + ServiceName + "/PlaylistStatus"
	ProbeDeviceMethod    = "/" + ServiceName + "/ProbeDevice"
	ProbeAllMethod       = "/" + ServiceName + "/ProbeAll"
	DesiredContentMethod = "/" + ServiceName + "/DesiredContent"
)

// ControlServer is the server API for the Control service.
type ControlServer interface {
	ForceReconcile(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	PlaylistStatus(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ProbeDevice(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ProbeAll(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	DesiredContent(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	fullMethod string,
	newReq func() *Req,
	call func(ControlServer, context.Context, *Req) (Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ControlServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newInt64() *wrapperspb.Int64Value   { return new(wrapperspb.Int64Value) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }

// ServiceDesc is the grpc.ServiceDesc for the Control service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ForceReconcile",
			Handler: unaryHandler(ForceReconcileMethod, newEmpty,
				func(s ControlServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
					return s.ForceReconcile(ctx, in)
				}),
		},
		{
			MethodName: "PlaylistStatus",
			Handler: unaryHandler(PlaylistStatusMethod, newInt64,
				func(s ControlServer, ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
					return s.PlaylistStatus(ctx, in)
				}),
		},
		{
			MethodName: "ProbeDevice",
			Handler: unaryHandler(ProbeDeviceMethod, newString,
				func(s ControlServer, ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
					return s.ProbeDevice(ctx, in)
				}),
		},
		{
			MethodName: "ProbeAll",
			Handler: unaryHandler(ProbeAllMethod, newEmpty,
				func(s ControlServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
					return s.ProbeAll(ctx, in)
				}),
		},
		{
			MethodName: "DesiredContent",
			Handler: unaryHandler(DesiredContentMethod, newString,
				func(s ControlServer, ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
					return s.DesiredContent(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleetsync/v1/control.proto",
}
