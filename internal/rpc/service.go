package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "cfgseed.v1.ProvisioningService"

// Full method names.
const (
	MethodCreateAccount            = "/" + ServiceName + "/CreateAccount"
	MethodGetAccount               = "/" + ServiceName + "/GetAccount"
	MethodInitializeDefaultConfigs = "/" + ServiceName + "/InitializeDefaultConfigs"
	MethodListConfigs              = "/" + ServiceName + "/ListConfigs"
	MethodGetEvents                = "/" + ServiceName + "/GetEvents"
	MethodGetPolicy                = "/" + ServiceName + "/GetPolicy"
)

// ProvisioningServer is the server API for the provisioning service.
type ProvisioningServer interface {
	CreateAccount(context.Context, *CreateAccountRequest) (*CreateAccountResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error)
	InitializeDefaultConfigs(context.Context, *InitializeDefaultConfigsRequest) (*emptypb.Empty, error)
	ListConfigs(context.Context, *ListConfigsRequest) (*ListConfigsResponse, error)
	GetEvents(context.Context, *GetEventsRequest) (*GetEventsResponse, error)
	GetPolicy(context.Context, *emptypb.Empty) (*GetPolicyResponse, error)
}

// RegisterProvisioningServer registers srv on s.
func RegisterProvisioningServer(s grpc.ServiceRegistrar, srv ProvisioningServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodDesc.Handler.
func unaryHandler[Req any, Resp any](method string, call func(ProvisioningServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProvisioningServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProvisioningServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the provisioning service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProvisioningServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateAccount", Handler: unaryHandler(MethodCreateAccount, ProvisioningServer.CreateAccount)},
		{MethodName: "GetAccount", Handler: unaryHandler(MethodGetAccount, ProvisioningServer.GetAccount)},
		{MethodName: "InitializeDefaultConfigs", Handler: unaryHandler(MethodInitializeDefaultConfigs, ProvisioningServer.InitializeDefaultConfigs)},
		{MethodName: "ListConfigs", Handler: unaryHandler(MethodListConfigs, ProvisioningServer.ListConfigs)},
		{MethodName: "GetEvents", Handler: unaryHandler(MethodGetEvents, ProvisioningServer.GetEvents)},
		{MethodName: "GetPolicy", Handler: unaryHandler(MethodGetPolicy, ProvisioningServer.GetPolicy)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cfgseed/v1/provisioning",
}

// ProvisioningClient calls the provisioning service over a client connection.
type ProvisioningClient struct {
	cc grpc.ClientConnInterface
}

// NewProvisioningClient returns a client for the service on cc.
func NewProvisioningClient(cc grpc.ClientConnInterface) *ProvisioningClient {
	return &ProvisioningClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ProvisioningClient) CreateAccount(ctx context.Context, in *CreateAccountRequest, opts ...grpc.CallOption) (*CreateAccountResponse, error) {
	return invoke[CreateAccountResponse](ctx, c.cc, MethodCreateAccount, in, opts)
}

func (c *ProvisioningClient) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error) {
	return invoke[GetAccountResponse](ctx, c.cc, MethodGetAccount, in, opts)
}

func (c *ProvisioningClient) InitializeDefaultConfigs(ctx context.Context, in *InitializeDefaultConfigsRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodInitializeDefaultConfigs, in, opts)
}

func (c *ProvisioningClient) ListConfigs(ctx context.Context, in *ListConfigsRequest, opts ...grpc.CallOption) (*ListConfigsResponse, error) {
	return invoke[ListConfigsResponse](ctx, c.cc, MethodListConfigs, in, opts)
}

func (c *ProvisioningClient) GetEvents(ctx context.Context, in *GetEventsRequest, opts ...grpc.CallOption) (*GetEventsResponse, error) {
	return invoke[GetEventsResponse](ctx, c.cc, MethodGetEvents, in, opts)
}

func (c *ProvisioningClient) GetPolicy(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*GetPolicyResponse, error) {
	return invoke[GetPolicyResponse](ctx, c.cc, MethodGetPolicy, in, opts)
}
