package events

import "context"

// NoopPublisher drops every notification. Used when no NATS URL is
// configured; the store stays fully functional without a bus.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error { return nil }
