package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/pw/paywallet/internal/adapter/http"
	"github.com/pw/paywallet/internal/adapter/http/handler"
	postgresRepo "github.com/pw/paywallet/internal/adapter/repository/postgres"
	redisRepo "github.com/pw/paywallet/internal/adapter/repository/redis"
	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/infrastructure/config"
	"github.com/pw/paywallet/internal/infrastructure/eventpublisher"
	"github.com/pw/paywallet/internal/infrastructure/logger"
	"github.com/pw/paywallet/internal/infrastructure/logging"
	"github.com/pw/paywallet/internal/infrastructure/postgres"
	"github.com/pw/paywallet/internal/infrastructure/rabbitmq"
	"github.com/pw/paywallet/internal/infrastructure/redis"
	"github.com/pw/paywallet/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	zlog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath+"/wallet"); err != nil {
		zlog.Fatal().Err(err).Msg("failed to run migrations")
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	zlog.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	zlog.Info().Msg("connected to redis")

	broker, err := rabbitmq.Connect(cfg.AMQPURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}
	defer broker.Close()
	if err := broker.DeclareQueues(domain.TopicWalletEvents); err != nil {
		zlog.Fatal().Err(err).Msg("failed to declare queues")
	}
	zlog.Info().Msg("connected to rabbitmq")

	txManager := postgresRepo.NewTxManager(pool)
	walletRepo := postgresRepo.NewWalletRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	walletUC := usecase.NewWalletUseCase(txManager, walletRepo, outboxRepo, idGen, zlog).
		WithRetrier(postgresRepo.NewRetrier())

	walletHandler := handler.NewWalletHandler(walletUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	router := httpAdapter.NewWalletRouter(httpAdapter.WalletRouterConfig{
		WalletHandler:    walletHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		Logger:           zlog,
	})

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  rabbitmq.NewPublisher(broker, slogger.Logger),
		Logger:     slogger.Logger,
		BatchSize:  cfg.PublisherBatchSize,
		Interval:   cfg.PublisherInterval,
		Retention:  cfg.PublisherRetention,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && ctx.Err() == nil {
			zlog.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		zlog.Info().Str("port", cfg.HTTPPort).Msg("starting wallet service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down wallet service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	zlog.Info().Msg("wallet service stopped")
}
