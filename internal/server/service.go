package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "darknet.duel.v1.DuelService"

// DuelServer is the server API for the duel service. Requests and responses
// are structpb.Struct messages keyed by snake_case field names.
type DuelServer interface {
	CreateMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	JoinMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ApplyMove(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type duelCall func(srv DuelServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call duelCall) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DuelServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DuelServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DuelServiceDesc describes the duel service for grpc.Server.RegisterService.
var DuelServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DuelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateMatch", Handler: unaryHandler("CreateMatch", DuelServer.CreateMatch)},
		{MethodName: "JoinMatch", Handler: unaryHandler("JoinMatch", DuelServer.JoinMatch)},
		{MethodName: "ApplyMove", Handler: unaryHandler("ApplyMove", DuelServer.ApplyMove)},
		{MethodName: "GetState", Handler: unaryHandler("GetState", DuelServer.GetState)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "darknet/duel/v1/duel.proto",
}

// RegisterDuelServer registers srv on s.
func RegisterDuelServer(s grpc.ServiceRegistrar, srv DuelServer) {
	s.RegisterService(&DuelServiceDesc, srv)
}

// DuelClient calls the duel service.
type DuelClient struct {
	cc grpc.ClientConnInterface
}

// NewDuelClient creates a client over cc.
func NewDuelClient(cc grpc.ClientConnInterface) *DuelClient {
	return &DuelClient{cc: cc}
}

func (c *DuelClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DuelClient) CreateMatch(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateMatch", req, opts...)
}

func (c *DuelClient) JoinMatch(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "JoinMatch", req, opts...)
}

func (c *DuelClient) ApplyMove(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ApplyMove", req, opts...)
}

func (c *DuelClient) GetState(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetState", req, opts...)
}
