// Package server exposes account provisioning over HTTP/JSON and gRPC.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/cfgseed/internal/events"
	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/provision"
	"github.com/alfredjeanlab/cfgseed/internal/rpc"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// Server implements rpc.ProvisioningServer and the HTTP API on top of a store.
type Server struct {
	store       store.Store
	provisioner *provision.Provisioner
	policy      policy.Source
	publisher   events.Publisher
	logger      *slog.Logger
}

var _ rpc.ProvisioningServer = (*Server)(nil)

// New returns a Server. A nil publisher disables event publishing.
func New(s store.Store, prov *provision.Provisioner, src policy.Source, pub events.Publisher, logger *slog.Logger) *Server {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Server{
		store:       s,
		provisioner: prov,
		policy:      src,
		publisher:   pub,
		logger:      logger,
	}
}

// recordAndPublish persists an event to the store and publishes it to NATS.
// Both operations are best-effort; failures are logged but do not block the caller.
func (s *Server) recordAndPublish(ctx context.Context, topic, accountID, actor string, event any) {
	ev, err := model.NewEvent(topic, accountID, actor, event)
	if err != nil {
		s.logger.Warn("failed to encode event", "topic", topic, "account_id", accountID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to record event", "topic", topic, "account_id", accountID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "account_id", accountID, "error", err)
	}
}

// PolicyReloaded publishes a policy change. It is the policy watcher's
// reload callback.
func (s *Server) PolicyReloaded(p *policy.Policy) {
	if err := s.publisher.Publish(context.Background(), events.TopicPolicyReloaded, events.PolicyReloaded{Version: p.Version}); err != nil {
		s.logger.Warn("failed to publish event", "topic", events.TopicPolicyReloaded, "error", err)
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// errNotFound reports a missing account.
var errNotFound = errors.New("account not found")

// classify maps a service error onto a gRPC code and a client-facing message.
func classify(err error) (codes.Code, string) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		return codes.InvalidArgument, ie.Error()
	case errors.Is(err, provision.ErrMissingAccountID):
		return codes.InvalidArgument, err.Error()
	case errors.Is(err, errNotFound), errors.Is(err, sql.ErrNoRows):
		return codes.NotFound, errNotFound.Error()
	case errors.Is(err, store.ErrConflict):
		return codes.AlreadyExists, err.Error()
	default:
		return codes.Internal, err.Error()
	}
}

// grpcError converts a service error to a gRPC status error.
func grpcError(err error) error {
	code, msg := classify(err)
	return status.Error(code, msg)
}
