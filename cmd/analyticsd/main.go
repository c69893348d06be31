package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	amqpAdapter "github.com/pw/paywallet/internal/adapter/amqp"
	httpAdapter "github.com/pw/paywallet/internal/adapter/http"
	"github.com/pw/paywallet/internal/adapter/http/handler"
	postgresRepo "github.com/pw/paywallet/internal/adapter/repository/postgres"
	redisRepo "github.com/pw/paywallet/internal/adapter/repository/redis"
	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/infrastructure/config"
	"github.com/pw/paywallet/internal/infrastructure/logger"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath+"/analytics"); err != nil {
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

	topics := []string{
		domain.TopicUserEvents,
		domain.TopicWalletEvents,
		domain.TopicTransactionEvents,
		domain.TopicAuthEvents,
	}

	broker, err := rabbitmq.Connect(cfg.AMQPURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}
	defer broker.Close()
	if err := broker.DeclareQueues(topics...); err != nil {
		zlog.Fatal().Err(err).Msg("failed to declare queues")
	}
	zlog.Info().Msg("connected to rabbitmq")

	rawEventRepo := postgresRepo.NewRawEventRepository(pool)
	summaryRepo := postgresRepo.NewSummaryRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	processorUC := usecase.NewEventProcessorUseCase(rawEventRepo, summaryRepo, idGen, zlog)
	summaryUC := usecase.NewSummaryQueryUseCase(summaryRepo)

	analyticsHandler := handler.NewAnalyticsHandler(summaryUC, redisRepo.NewCache(redisClient))
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	router := httpAdapter.NewAnalyticsRouter(httpAdapter.AnalyticsRouterConfig{
		AnalyticsHandler: analyticsHandler,
		HealthHandler:    healthHandler,
		Logger:           zlog,
	})

	consumer := amqpAdapter.NewConsumer(amqpAdapter.Config{
		Channel:   broker.Channel(),
		Processor: processorUC,
		Queues:    topics,
		Prefetch:  cfg.ConsumerPrefetch,
		Logger:    zlog,
	})
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			zlog.Error().Err(err).Msg("consumer stopped")
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
		zlog.Info().Str("port", cfg.HTTPPort).Msg("starting analytics service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down analytics service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	zlog.Info().Msg("analytics service stopped")
}
