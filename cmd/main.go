package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/api"
	"github.com/fathima-sithara/realtime-service/internal/auth"
	"github.com/fathima-sithara/realtime-service/internal/config"
	"github.com/fathima-sithara/realtime-service/internal/hub"
	"github.com/fathima-sithara/realtime-service/internal/kafka"
	"github.com/fathima-sithara/realtime-service/internal/metrics"
	"github.com/fathima-sithara/realtime-service/internal/middleware"
	"github.com/fathima-sithara/realtime-service/internal/presence"
	"github.com/fathima-sithara/realtime-service/internal/repository"
	"github.com/fathima-sithara/realtime-service/internal/rooms"
	"github.com/fathima-sithara/realtime-service/internal/service"
	"github.com/fathima-sithara/realtime-service/internal/utils"
	"github.com/fathima-sithara/realtime-service/internal/ws"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := utils.NewLogger(cfg.Development(), cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("realtime service stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	origin := uuid.NewString()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var rdb redis.UniversalClient
	if cfg.Presence.Backend == "redis" || cfg.Broadcast.Backend == "redis" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	var counter presence.Counter = presence.NewMemoryCounter()
	if cfg.Presence.Backend == "redis" {
		counter = presence.NewRedisCounter(rdb, cfg.Redis.Prefix)
	}

	h := hub.NewHub(logger)
	var bc hub.Broadcaster = h
	switch cfg.Broadcast.Backend {
	case "redis":
		rb := hub.NewRedisBroadcaster(h, rdb, cfg.Redis.Prefix, origin, logger)
		go func() {
			if err := rb.Run(ctx); err != nil {
				logger.Errorw("redis broadcaster stopped", "err", err)
			}
		}()
		bc = rb
	case "kafka":
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBroadcast)
		defer producer.Close()
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBroadcast, "realtime-"+origin, logger)
		defer consumer.Close()
		kb := hub.NewKafkaBroadcaster(h, producer, consumer, origin, logger)
		go func() {
			if err := kb.Run(ctx); err != nil {
				logger.Errorw("kafka broadcaster stopped", "err", err)
			}
		}()
		bc = kb
	}

	opts := []service.Option{service.WithEditWindow(cfg.EditWindow)}
	if cfg.Kafka.PublishMessageEvent {
		events := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageEvents)
		defer events.Close()
		opts = append(opts, service.WithEvents(kafka.NewEventPublisher(events, cfg.Kafka.BreakerMaxFailures, cfg.BreakerOpen, logger)))
	}

	jv, err := auth.NewJWTValidator(cfg.JWT.Alg, cfg.JWT.HSSecret, cfg.JWT.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("jwt validator init: %w", err)
	}

	tracker := presence.NewTracker(counter, store, logger)
	messages := service.NewMessageService(store, bc, logger, opts...)
	wsHandler := ws.NewHandler(
		tracker,
		rooms.NewManager(h, store, logger),
		messages,
		service.NewTypingRelay(h, bc, logger),
		ws.Options{
			SendBuffer:      cfg.WS.SendBuffer,
			RateLimitPerSec: cfg.WS.RateLimitPerSec,
			MaxMessageSize:  cfg.WS.MaxMessageSizeBytes,
			PingInterval:    cfg.PingInterval,
			WriteDeadline:   cfg.WriteDeadline,
		},
		logger,
	)

	var limiter middleware.Limiter
	if n := cfg.RateLimit.RESTPerMinute; n > 0 {
		if rdb != nil {
			limiter = middleware.NewRedisLimiter(rdb, cfg.Redis.Prefix, n, time.Minute)
		} else {
			limiter = middleware.NewLocalLimiter(n, time.Minute)
		}
	}

	srv := api.NewServer(api.Deps{
		Auth:      auth.NewAuthenticator(jv, store, logger),
		Messages:  messages,
		Presence:  tracker,
		Users:     store,
		WS:        wsHandler,
		Log:       logger,
		RateLimit: limiter,
	})

	errs := make(chan error, 1)
	go func() {
		addr := ":" + cfg.App.PortString()
		logger.Infow("starting realtime service", "addr", addr, "store", cfg.Store.Driver,
			"presence", cfg.Presence.Backend, "broadcast", cfg.Broadcast.Backend, "instance", origin)
		errs <- srv.Listen(addr)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Infow("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("fiber shutdown", "err", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (repository.Store, func(), error) {
	if cfg.Store.Driver == "memory" {
		st := repository.NewMemoryStore()
		if cfg.Store.SeedPath != "" {
			if err := st.LoadSeed(cfg.Store.SeedPath); err != nil {
				return nil, nil, err
			}
		}
		return st, func() {}, nil
	}

	client, err := repository.NewMongoClient(ctx, cfg.Mongo.URI, cfg.MongoRetry, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warnw("mongo disconnect", "err", err)
		}
	}
	st := repository.NewMongoStore(client.Database(cfg.Mongo.Database))
	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := st.EnsureIndexes(idxCtx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return st, closeFn, nil
}
