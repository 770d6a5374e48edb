// Package rpc exposes the postparam codec as the gRPC service
// postparam.v1.Codec. Messages are google.protobuf.StringValue so no generated
// code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "postparam.v1.Codec"

// Full method names.
const (
	MethodEncode          = "/" + ServiceName + "/Encode"
	MethodDecode          = "/" + ServiceName + "/Decode"
	MethodEncodePostParam = "/" + ServiceName + "/EncodePostParam"
	MethodDecodePostParam = "/" + ServiceName + "/DecodePostParam"
)

// CodecServer is the server API for the Codec service.
type CodecServer interface {
	Encode(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Decode(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	EncodePostParam(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	DecodePostParam(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

type unaryMethod func(CodecServer, context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.StringValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CodecServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CodecServer), ctx, req.(*wrapperspb.StringValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var codecServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodecServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Encode",
			Handler:    unaryHandler(MethodEncode, CodecServer.Encode),
		},
		{
			MethodName: "Decode",
			Handler:    unaryHandler(MethodDecode, CodecServer.Decode),
		},
		{
			MethodName: "EncodePostParam",
			Handler:    unaryHandler(MethodEncodePostParam, CodecServer.EncodePostParam),
		},
		{
			MethodName: "DecodePostParam",
			Handler:    unaryHandler(MethodDecodePostParam, CodecServer.DecodePostParam),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "postparam/v1/codec.proto",
}

// RegisterCodecServer registers srv with s.
func RegisterCodecServer(s grpc.ServiceRegistrar, srv CodecServer) {
	s.RegisterService(&codecServiceDesc, srv)
}
