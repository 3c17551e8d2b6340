package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campfire-tv/backend/internal/config"
	"github.com/campfire-tv/backend/internal/repository"
	"github.com/campfire-tv/backend/pkg/log"
)

// Poller periodically asks the media server which stream keys are currently
// ingesting and reconciles channel live flags against that set. The media
// server is the source of truth; the database is a cache of it.
type Poller struct {
	channels repository.ChannelRepository
	client   *http.Client
	url      string
	interval time.Duration
}

// streamsResponse mirrors the media server's status endpoint: the keys of
// the live object are the stream keys currently ingesting.
type streamsResponse struct {
	Live map[string]json.RawMessage `json:"live"`
}

func New(channels repository.ChannelRepository, cfg config.PollerConfig) *Poller {
	return &Poller{
		channels: channels,
		client:   &http.Client{Timeout: cfg.Timeout},
		url:      cfg.StreamsURL,
		interval: cfg.Interval,
	}
}

// Run polls until the context is cancelled. The first poll happens
// immediately so channels are not stuck stale for a full interval after
// startup. A failed poll leaves the previous flags in place.
func (p *Poller) Run(ctx context.Context) {
	l := log.Ctx(ctx)
	l.Info().Str("url", p.url).Dur("interval", p.interval).Msg("stream status poller started")

	if err := p.PollOnce(ctx); err != nil {
		l.Warn().Err(err).Msg("stream status poll failed")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("stream status poller stopped")
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				l.Warn().Err(err).Msg("stream status poll failed")
			}
		}
	}
}

// PollOnce fetches the live set and syncs channel flags.
func (p *Poller) PollOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build streams request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("streams request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("streams endpoint returned %d", resp.StatusCode)
	}

	var body streamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("malformed streams response: %w", err)
	}

	liveKeys := make([]string, 0, len(body.Live))
	for key := range body.Live {
		liveKeys = append(liveKeys, key)
	}

	if err := p.channels.SyncLiveStatus(ctx, liveKeys); err != nil {
		return fmt.Errorf("failed to sync live status: %w", err)
	}

	l := log.Ctx(ctx)
	l.Debug().Int("live_streams", len(liveKeys)).Msg("live status synced")
	return nil
}
