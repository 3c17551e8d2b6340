package presence

import "context"

// Registry publishes per-channel viewer counts so the REST layer (and any
// other process) can read how many sessions are in a channel's chat without
// touching the relay's in-memory room state.
type Registry interface {
	// Publish records the current viewer count for a channel. A count of
	// zero removes the entry.
	Publish(ctx context.Context, channelID string, viewers int) error

	// Viewers returns the last published viewer count, zero if none.
	Viewers(ctx context.Context, channelID string) (int, error)

	// StartHeartbeat keeps published entries alive by refreshing their
	// TTL until StopHeartbeat is called. Entries from a crashed process
	// expire on their own.
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()

	Close() error
}

// NoopRegistry is used when Redis is disabled; viewer counts read as zero.
type NoopRegistry struct{}

func (NoopRegistry) Publish(ctx context.Context, channelID string, viewers int) error { return nil }
func (NoopRegistry) Viewers(ctx context.Context, channelID string) (int, error)       { return 0, nil }
func (NoopRegistry) StartHeartbeat(ctx context.Context) error                         { return nil }
func (NoopRegistry) StopHeartbeat()                                                   {}
func (NoopRegistry) Close() error                                                     { return nil }
