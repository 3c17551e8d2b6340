package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// No config file in the test working directory: defaults apply.
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5514, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Chat.HistoryLimit)
	assert.Equal(t, 15*time.Second, cfg.Poller.Interval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, int64(4096), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STREAMS_URL", "http://media:8000/api/streams")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "http://media:8000/api/streams", cfg.Poller.StreamsURL)
}
