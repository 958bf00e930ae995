package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/alfredjeanlab/cfgseed/internal/rpc"
)

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the provisioning service, the health service and reflection, and returns
// the server ready to serve.
func NewGRPCServer(srv *Server, authToken string) *grpc.Server {
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(srv.logger),
			LoggingInterceptor(srv.logger),
			AuthInterceptor(authToken),
		),
	)

	rpc.RegisterProvisioningServer(g, srv)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(g, hs)

	reflection.Register(g)

	return g
}

// CreateAccount creates an account and seeds its default configs.
func (s *Server) CreateAccount(ctx context.Context, req *rpc.CreateAccountRequest) (*rpc.CreateAccountResponse, error) {
	acct, res, err := s.createAccount(ctx, createAccountInput{
		Username:     req.Username,
		SuperAdmin:   req.SuperAdmin,
		SkipDefaults: req.SkipDefaults,
		Actor:        req.Actor,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	resp := &rpc.CreateAccountResponse{Account: rpc.AccountToProto(acct)}
	if res != nil {
		resp.Copied = int32(res.Copied)
	}
	return resp, nil
}

// GetAccount retrieves a single account by ID.
func (s *Server) GetAccount(ctx context.Context, req *rpc.GetAccountRequest) (*rpc.GetAccountResponse, error) {
	acct, err := s.getAccount(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.GetAccountResponse{Account: rpc.AccountToProto(acct)}, nil
}

// InitializeDefaultConfigs seeds default configs for an existing account.
func (s *Server) InitializeDefaultConfigs(ctx context.Context, req *rpc.InitializeDefaultConfigsRequest) (*emptypb.Empty, error) {
	if err := s.initializeDefaultConfigs(ctx, req.AccountID); err != nil {
		return nil, grpcError(err)
	}
	return &emptypb.Empty{}, nil
}

// ListConfigs returns an account's model configs with sensitive settings blanked.
func (s *Server) ListConfigs(ctx context.Context, req *rpc.ListConfigsRequest) (*rpc.ListConfigsResponse, error) {
	configs, err := s.listConfigs(ctx, req.AccountID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := &rpc.ListConfigsResponse{Configs: make([]*rpc.ModelConfig, 0, len(configs))}
	for _, c := range configs {
		pc, err := rpc.ConfigToProto(c)
		if err != nil {
			return nil, grpcError(err)
		}
		resp.Configs = append(resp.Configs, pc)
	}
	return resp, nil
}

// GetEvents returns all persisted events for an account.
func (s *Server) GetEvents(ctx context.Context, req *rpc.GetEventsRequest) (*rpc.GetEventsResponse, error) {
	evts, err := s.getEvents(ctx, req.AccountID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := &rpc.GetEventsResponse{Events: make([]*rpc.Event, 0, len(evts))}
	for _, e := range evts {
		pe, err := rpc.EventToProto(e)
		if err != nil {
			return nil, grpcError(err)
		}
		resp.Events = append(resp.Events, pe)
	}
	return resp, nil
}

// GetPolicy returns the provisioning policy in effect.
func (s *Server) GetPolicy(_ context.Context, _ *emptypb.Empty) (*rpc.GetPolicyResponse, error) {
	return &rpc.GetPolicyResponse{Policy: s.policy.Current()}, nil
}
