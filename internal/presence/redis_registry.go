package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campfire-tv/backend/internal/config"
	"github.com/campfire-tv/backend/pkg/log"
)

// RedisRegistry stores viewer counts in Redis under TTL keys refreshed by a
// heartbeat, so counts from a dead relay process disappear on their own.
type RedisRegistry struct {
	client            *redis.Client
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration

	managed map[string]int // channel id -> last published count
	mu      sync.RWMutex
	cancel  context.CancelFunc
}

func NewRedisRegistry(cfg config.RedisConfig) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRegistry{
		client:            client,
		prefix:            cfg.PresencePrefix,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
		managed:           make(map[string]int),
	}, nil
}

func (r *RedisRegistry) keyFor(channelID string) string {
	return fmt.Sprintf("%s:channel:%s", r.prefix, channelID)
}

func (r *RedisRegistry) Publish(ctx context.Context, channelID string, viewers int) error {
	r.mu.Lock()
	if viewers <= 0 {
		delete(r.managed, channelID)
	} else {
		r.managed[channelID] = viewers
	}
	r.mu.Unlock()

	if viewers <= 0 {
		return r.client.Del(ctx, r.keyFor(channelID)).Err()
	}
	return r.client.Set(ctx, r.keyFor(channelID), viewers, r.keyTTL).Err()
}

func (r *RedisRegistry) Viewers(ctx context.Context, channelID string) (int, error) {
	val, err := r.client.Get(ctx, r.keyFor(channelID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read viewer count: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("malformed viewer count %q: %w", val, err)
	}
	return n, nil
}

func (r *RedisRegistry) StartHeartbeat(ctx context.Context) error {
	hbCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go func() {
		ticker := time.NewTicker(r.heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				r.refresh(hbCtx)
			}
		}
	}()

	return nil
}

func (r *RedisRegistry) refresh(ctx context.Context) {
	r.mu.RLock()
	snapshot := make(map[string]int, len(r.managed))
	for ch, n := range r.managed {
		snapshot[ch] = n
	}
	r.mu.RUnlock()

	for ch, n := range snapshot {
		if err := r.client.Set(ctx, r.keyFor(ch), n, r.keyTTL).Err(); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldChannelID, ch).Msg("presence heartbeat refresh failed")
		}
	}
}

func (r *RedisRegistry) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
