// Package gatewayrpc declares the companion.gateway.v1.Gateway gRPC service
// by hand. Every method takes and returns a google.protobuf.Struct, so the
// service runs on the stock proto codec without generated stubs.
//
//	Ping        {}                                   -> {status}
//	Fetch       {entity, filter{id, parent_id}}      -> {records[]}
//	Upsert      {entity, records[]}                  -> {}
//	Delete      {entity, id}                         -> {}
//	SignBlob    {path, method, content_type, ttl_s}  -> {url}
//	RemoveBlob  {path}                               -> {}
package gatewayrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "companion.gateway.v1.Gateway"

const (
	MethodPing       = "Ping"
	MethodFetch      = "Fetch"
	MethodUpsert     = "Upsert"
	MethodDelete     = "Delete"
	MethodSignBlob   = "SignBlob"
	MethodRemoveBlob = "RemoveBlob"
)

// FullMethod returns the "/service/method" path used on the wire and in
// interceptors.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// GatewayServer is implemented by the backend.
type GatewayServer interface {
	Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Fetch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Upsert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	SignBlob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RemoveBlob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type serverCall func(GatewayServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call serverCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GatewayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GatewayServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodPing, Handler: unary(MethodPing, GatewayServer.Ping)},
		{MethodName: MethodFetch, Handler: unary(MethodFetch, GatewayServer.Fetch)},
		{MethodName: MethodUpsert, Handler: unary(MethodUpsert, GatewayServer.Upsert)},
		{MethodName: MethodDelete, Handler: unary(MethodDelete, GatewayServer.Delete)},
		{MethodName: MethodSignBlob, Handler: unary(MethodSignBlob, GatewayServer.SignBlob)},
		{MethodName: MethodRemoveBlob, Handler: unary(MethodRemoveBlob, GatewayServer.RemoveBlob)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "companion/gateway/v1/gateway.proto",
}

func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GatewayClient invokes the service over any grpc.ClientConnInterface.
type GatewayClient struct {
	cc grpc.ClientConnInterface
}

func NewGatewayClient(cc grpc.ClientConnInterface) *GatewayClient {
	return &GatewayClient{cc: cc}
}

func (c *GatewayClient) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GatewayClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodPing, in, opts...)
}

func (c *GatewayClient) Fetch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodFetch, in, opts...)
}

func (c *GatewayClient) Upsert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodUpsert, in, opts...)
}

func (c *GatewayClient) Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodDelete, in, opts...)
}

func (c *GatewayClient) SignBlob(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodSignBlob, in, opts...)
}

func (c *GatewayClient) RemoveBlob(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodRemoveBlob, in, opts...)
}
