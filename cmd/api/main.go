package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gaint-shopify-connector/internal/application"
	"gaint-shopify-connector/internal/config"
	apiinfra "gaint-shopify-connector/internal/infrastructure/api"
	"gaint-shopify-connector/internal/infrastructure/logistics"
	"gaint-shopify-connector/internal/infrastructure/metrics"
	"gaint-shopify-connector/internal/infrastructure/pubsub"
	"gaint-shopify-connector/internal/infrastructure/repository"
	shopifyinfra "gaint-shopify-connector/internal/infrastructure/shopify"
	"gaint-shopify-connector/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	// Validation log: MongoDB when configured
	var validationLog ports.ValidationLog
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		validationLog = repository.NewMongoValidationLog(client.Database(cfg.MongoDatabase))
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Recording validations in MongoDB")
	} else {
		validationLog = repository.NewMemoryValidationLog(0, logger)
	}

	// Session snapshots: Redis when configured
	var snapshots ports.SessionSnapshotStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		snapshots = repository.NewRedisSessionSnapshotStore(rdb, cfg.SessionIdleTTL)
		logger.Info().Msg("Storing session snapshots in Redis")
	} else {
		snapshots = repository.NewMemorySessionSnapshotStore(cfg.SessionIdleTTL)
	}

	// Initialize infrastructure
	clientPool := shopifyinfra.NewClientPool(
		cfg.ShopifyAPIKey,
		cfg.ShopifyAPISecret,
		cfg.ShopifyAPIVersion,
		&http.Client{Timeout: cfg.ShopifyTimeout},
		logger,
	)
	partner := logistics.NewClient(cfg.PartnerBaseURL, cfg.PartnerTimeout, logger)
	notifications := pubsub.NewNotificationPubSub(logger)

	// Initialize application services
	profiles := application.NewShopProfileService(clientPool, recorder, logger)
	orders := application.NewOrderService(clientPool, recorder, logger)
	channels := application.NewChannelService(partner, validationLog, recorder, logger)

	sessions := application.NewSessionManager(application.OrchestratorDeps{
		Profiles:  profiles,
		Channels:  channels,
		Orders:    orders,
		Notifier:  notifications,
		Snapshots: snapshots,
		Metrics:   recorder,
		Logger:    logger,
	}, cfg.DefaultChannelID, cfg.SessionIdleTTL)
	go sessions.Run(ctx)

	router := apiinfra.NewRouter(apiinfra.RouterConfig{
		Sessions:       sessions,
		Channels:       channels,
		Notifications:  notifications,
		Gatherer:       registry,
		AllowedOrigins: cfg.AllowedOrigins,
		SwaggerFile:    "./docs/swagger.json",
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down server")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
	logger.Info().Msg("Server stopped")
}
