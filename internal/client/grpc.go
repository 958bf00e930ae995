package client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/rpc"
)

// GRPCClient implements Client using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client *rpc.ProvisioningClient
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a bearer token on every call.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if token != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(bearerToken(token)))
	}
	conn, err := grpc.NewClient(addr, append(dialOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewProvisioningClient(conn),
	}, nil
}

// bearerToken attaches an authorization header to each RPC.
type bearerToken string

func (t bearerToken) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(t)}, nil
}

// RequireTransportSecurity is false so the token can be used over the
// plaintext connection the CLI dials.
func (bearerToken) RequireTransportSecurity() bool { return false }

// Close closes the underlying connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error) {
	resp, err := c.client.CreateAccount(ctx, &rpc.CreateAccountRequest{
		Username:     req.Username,
		SuperAdmin:   req.SuperAdmin,
		SkipDefaults: req.SkipDefaults,
		Actor:        req.Actor,
	})
	if err != nil {
		return nil, err
	}
	return &CreateAccountResponse{Account: rpc.AccountFromProto(resp.Account), Copied: int(resp.Copied)}, nil
}

func (c *GRPCClient) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	resp, err := c.client.GetAccount(ctx, &rpc.GetAccountRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return rpc.AccountFromProto(resp.Account), nil
}

func (c *GRPCClient) InitializeDefaultConfigs(ctx context.Context, accountID string) error {
	_, err := c.client.InitializeDefaultConfigs(ctx, &rpc.InitializeDefaultConfigsRequest{AccountID: accountID})
	return err
}

func (c *GRPCClient) ListConfigs(ctx context.Context, accountID string) ([]*model.ModelConfig, error) {
	resp, err := c.client.ListConfigs(ctx, &rpc.ListConfigsRequest{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	configs := make([]*model.ModelConfig, 0, len(resp.Configs))
	for _, pc := range resp.Configs {
		c, err := rpc.ConfigFromProto(pc)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, nil
}

func (c *GRPCClient) GetEvents(ctx context.Context, accountID string) ([]*model.Event, error) {
	resp, err := c.client.GetEvents(ctx, &rpc.GetEventsRequest{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	evts := make([]*model.Event, 0, len(resp.Events))
	for _, pe := range resp.Events {
		e, err := rpc.EventFromProto(pe)
		if err != nil {
			return nil, err
		}
		evts = append(evts, e)
	}
	return evts, nil
}

func (c *GRPCClient) GetPolicy(ctx context.Context) (*policy.Policy, error) {
	resp, err := c.client.GetPolicy(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Policy, nil
}

// Health reports the serving status of the provisioning service.
func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return "", err
	}
	if resp.Status == healthpb.HealthCheckResponse_SERVING {
		return "ok", nil
	}
	return strings.ToLower(resp.Status.String()), nil
}
