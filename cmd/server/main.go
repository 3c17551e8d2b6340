package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campfire-tv/backend/internal/cache"
	"github.com/campfire-tv/backend/internal/config"
	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/firehose"
	"github.com/campfire-tv/backend/internal/handler"
	"github.com/campfire-tv/backend/internal/hub"
	"github.com/campfire-tv/backend/internal/poller"
	"github.com/campfire-tv/backend/internal/presence"
	"github.com/campfire-tv/backend/internal/relay"
	"github.com/campfire-tv/backend/internal/repository"
	"github.com/campfire-tv/backend/internal/service"
	"github.com/campfire-tv/backend/pkg/database"
	"github.com/campfire-tv/backend/pkg/jwt"
	"github.com/campfire-tv/backend/pkg/log"
	"github.com/campfire-tv/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()
	l.Info().Int("port", cfg.Server.Port).Msg("starting campfire api")

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.User{}, &domain.Channel{}, &domain.Message{}); err != nil {
		l.Fatal().Err(err).Msg("failed to run migrations")
	}
	l.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	messageRepo := repository.NewGormMessageRepository(db)
	channelRepo := repository.NewGormChannelRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	// Redis-backed presence and history cache, noop when disabled.
	var (
		reg          presence.Registry = presence.NoopRegistry{}
		historyCache cache.Cache       = cache.NoopCache{}
	)
	if cfg.Redis.Enabled {
		redisReg, err := presence.NewRedisRegistry(cfg.Redis)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect presence registry")
		}
		reg = redisReg

		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect history cache")
		}
		historyCache = redisCache
		l.Info().Str("address", cfg.Redis.Address).Msg("redis ready")
	}
	defer reg.Close()
	defer historyCache.Close()

	// Kafka firehose, noop when disabled.
	var producer firehose.Producer = firehose.NoopProducer{}
	if cfg.Kafka.Enabled {
		kafkaProducer, err := firehose.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect kafka producer")
		}
		producer = kafkaProducer
		l.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka ready")
	}

	// Blob storage for avatars.
	store, staticDir, err := buildStorage(cfg.Storage)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialise storage")
	}

	// Chat core
	wsHub := hub.NewHub()
	chatRelay := relay.NewChatRelay(wsHub, messageRepo, reg, producer, cfg.Chat.HistoryLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := chatRelay.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to start chat relay")
	}
	defer chatRelay.Stop()

	// Services
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(userRepo, channelRepo, tokens)
	channelSvc := service.NewChannelService(channelRepo, userRepo, messageRepo, reg, store, cfg.Chat.HistoryLimit)
	historySvc := service.NewHistoryService(messageRepo, historyCache, cfg.Chat.HistoryCacheTTL)

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	router := &handler.Router{
		Auth:      handler.NewAuthHandler(authSvc),
		Channels:  handler.NewChannelHandler(channelSvc),
		History:   handler.NewHistoryHandler(historySvc),
		WS:        handler.NewWSHandler(wsHub, chatRelay, cfg.WebSocket),
		Tokens:    tokens,
		StaticDir: staticDir,
	}
	router.Register(engine)

	// Stream status poller
	if cfg.Poller.Enabled {
		p := poller.New(channelRepo, cfg.Poller)
		go p.Run(ctx)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Warn().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("stopped")
}

// buildStorage returns the configured blob store and, for the local driver,
// the directory to expose under /static.
func buildStorage(cfg config.StorageConfig) (storage.Storage, string, error) {
	switch cfg.Driver {
	case "s3":
		s, err := storage.NewS3Storage(context.Background(), cfg.S3)
		return s, "", err
	default:
		s, err := storage.NewLocalStorage(cfg.Local)
		return s, cfg.Local.BasePath, err
	}
}
