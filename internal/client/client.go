// Package client provides a transport-agnostic interface for the cfgseed
// service with HTTP/JSON and gRPC implementations.
package client

import (
	"context"

	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
)

// Client is the interface that all cfgseed CLI commands use to communicate
// with the server. It is implemented by HTTPClient (default) and GRPCClient.
type Client interface {
	// Accounts
	CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// Default configs
	InitializeDefaultConfigs(ctx context.Context, accountID string) error
	ListConfigs(ctx context.Context, accountID string) ([]*model.ModelConfig, error)

	// Events
	GetEvents(ctx context.Context, accountID string) ([]*model.Event, error)

	// Policy
	GetPolicy(ctx context.Context) (*policy.Policy, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateAccountRequest holds parameters for creating an account.
type CreateAccountRequest struct {
	Username     string `json:"username"`
	SuperAdmin   bool   `json:"super_admin,omitempty"`
	SkipDefaults bool   `json:"skip_defaults,omitempty"`
	Actor        string `json:"actor,omitempty"`
}

// CreateAccountResponse is the created account plus the number of default
// configs seeded for it.
type CreateAccountResponse struct {
	Account *model.Account `json:"account"`
	Copied  int            `json:"copied"`
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*GRPCClient)(nil)
)
