package firehose

import (
	"context"

	"github.com/campfire-tv/backend/internal/domain"
)

// Producer publishes persisted chat messages to downstream consumers
// (analytics, VOD chat replay). It is strictly best-effort and strictly
// after the durable write: the relay never blocks a send on it and never
// surfaces its failures to the sender.
type Producer interface {
	Produce(ctx context.Context, msg *domain.Message) error
	Close() error
}

// NoopProducer is used when Kafka is disabled.
type NoopProducer struct{}

func (NoopProducer) Produce(ctx context.Context, msg *domain.Message) error { return nil }
func (NoopProducer) Close() error                                           { return nil }
