package events

import (
	"context"
	"log/slog"
)

// NoopPublisher drops events. It stands in when no NATS URL is configured;
// with a Logger set, each dropped event is logged at debug level.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (n *NoopPublisher) Publish(_ context.Context, topic string, event any) error {
	if n.Logger != nil {
		n.Logger.Debug("event not published, no bus configured",
			"topic", topic, "account_id", accountOf(event))
	}
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
