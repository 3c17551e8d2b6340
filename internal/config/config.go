package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/campfire-tv/backend/pkg/config"
	"github.com/campfire-tv/backend/pkg/database"
	"github.com/campfire-tv/backend/pkg/log"
	"github.com/campfire-tv/backend/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	Database  database.Config
	Redis     RedisConfig
	WebSocket WebSocketConfig
	Chat      ChatConfig
	Kafka     KafkaConfig
	Poller    PollerConfig
	Storage   StorageConfig
	JWT       JWTConfig `mapstructure:"jwt"`
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Enabled           bool
	Address           string
	Password          string
	DB                int
	CachePrefix       string        `mapstructure:"cache_prefix"`
	PresencePrefix    string        `mapstructure:"presence_prefix"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type ChatConfig struct {
	HistoryLimit    int           `mapstructure:"history_limit"`
	HistoryCacheTTL time.Duration `mapstructure:"history_cache_ttl"`
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type PollerConfig struct {
	Enabled    bool
	StreamsURL string        `mapstructure:"streams_url"`
	Interval   time.Duration `mapstructure:"interval"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Driver string // local, s3
	Local  storage.LocalConfig
	S3     storage.S3Config
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Issuer     string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5514)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "campfire")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "campfire")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "campfire.db")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_prefix", "chat:history")
	v.SetDefault("redis.presence_prefix", "chat:presence")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("chat.history_limit", 100)
	v.SetDefault("chat.history_cache_ttl", "30s")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "chat-messages")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("poller.enabled", true)
	v.SetDefault("poller.streams_url", "http://localhost:8000/api/streams")
	v.SetDefault("poller.interval", "15s")
	v.SetDefault("poller.timeout", "5s")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./data/uploads")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("jwt.issuer", "campfire")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "campfire-api")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("poller.streams_url", "STREAMS_URL")
	v.BindEnv("jwt.secret", "JWT_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Chat.HistoryCacheTTL = parseDuration(v, "chat.history_cache_ttl", 30*time.Second)
	cfg.Redis.HeartbeatInterval = parseDuration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = parseDuration(v, "redis.key_ttl", 30*time.Second)
	cfg.Poller.Interval = parseDuration(v, "poller.interval", 15*time.Second)
	cfg.Poller.Timeout = parseDuration(v, "poller.timeout", 5*time.Second)
	cfg.JWT.AccessTTL = parseDuration(v, "jwt.access_ttl", 15*time.Minute)
	cfg.JWT.RefreshTTL = parseDuration(v, "jwt.refresh_ttl", 168*time.Hour)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
