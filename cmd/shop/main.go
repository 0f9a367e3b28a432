package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/socsahar/Vapes-Shop-sub002/internal/auth"
	"github.com/socsahar/Vapes-Shop-sub002/internal/repository"
	"github.com/socsahar/Vapes-Shop-sub002/internal/service"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/handler"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/kafka"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/config"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	kafka2 "github.com/socsahar/Vapes-Shop-sub002/pkg/kafka"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	repository2 "github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/repository"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/worker"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, utils.TracerConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Env:         cfg.Env,
	})
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}

	pool, err := db.NewPostgresDB(ctx, db.PoolConfig{
		URL:      cfg.Postgres.URL,
		MaxConns: cfg.Postgres.MaxConns,
		Pooled:   cfg.Postgres.SingleStatement,
	})
	if err != nil {
		logger.Fatal("failed to create pool", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.Postgres.MigrationsDir, cfg.Postgres.URL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	tx := db.NewTransactor(pool, !cfg.Postgres.SingleStatement, logger)
	atomicTx := db.NewTransactor(pool, true, logger)
	if cfg.Postgres.SingleStatement {
		logger.Warn("transactions disabled, order deletion may partially fail")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetrics(reg)

	orderRepo := repository.NewOrderRepository(logger)
	generalOrderRepo := repository.NewGeneralOrderRepository(logger)
	shopStatusRepo := repository.NewShopStatusRepository(logger)
	userRepo := repository.NewUserRepository(logger)
	outboxRepo := repository2.NewOutboxRepository(logger)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("failed to close redis", zap.Error(err))
		}
	}()

	orderService := service.NewOrderService(tx, orderRepo, userRepo, outboxRepo, cfg.Kafka.ShopTopic, metrics, logger)
	shopStatusService := service.NewCachedShopStatusService(
		service.NewShopStatusService(tx, shopStatusRepo, outboxRepo, cfg.Kafka.ShopTopic, metrics, logger),
		rdb,
		cfg.Redis.StatusTTL,
		logger,
	)
	generalOrderService := service.NewGeneralOrderService(tx, generalOrderRepo, outboxRepo, cfg.Kafka.ShopTopic, metrics, logger)
	notificationService := service.NewNotificationService(pool, userRepo, logger)
	userService := service.NewUserService(userRepo, utils.NewValidator(), metrics, logger)

	kafkaProducer, err := kafka2.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			logger.Warn("failed to close kafka producer", zap.Error(err))
		}
	}()

	outboxProcessor := worker.NewOutboxProcessor(atomicTx, outboxRepo, kafkaProducer, logger, worker.DefaultConfig())
	go outboxProcessor.Start(ctx)

	consumer := kafka.NewConsumer(userService, kafka.NewDeduplicator(atomicTx, logger), cfg.Kafka.GroupID, cfg.Kafka.UserTopic, logger)
	go func() {
		if err := consumer.Start(ctx, cfg.Kafka.Brokers); err != nil && !errors.Is(err, context.Canceled) {
			mylogger.Error(ctx, logger, "user consumer stopped", zap.Error(err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.Auth.AccessSecret, cfg.Auth.TokenTTL)
	guard := auth.NewGuard(tokens, userRepo, pool, logger)

	deps := handler.Deps{
		Logger:   logger,
		Validate: utils.NewValidator(),
		Timeout:  cfg.HTTP.Timeout,
	}

	app := http.NewApp(http.AppConfig{
		LimiterMax:        cfg.Limiter.Max,
		LimiterExpiration: cfg.Limiter.Expiration,
		Gatherer:          reg,
	})

	http.RegisterRoutes(app, &http.Handlers{
		Order:        handler.NewOrderHandler(orderService, deps),
		Shop:         handler.NewShopHandler(shopStatusService, deps),
		GeneralOrder: handler.NewGeneralOrderHandler(generalOrderService, deps, time.Now),
		Notification: handler.NewNotificationHandler(notificationService, deps),
		Health:       handler.NewHealthHandler(pool, deps),
	}, guard)

	go func() {
		mylogger.Info(ctx, logger, "HTTP service listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			logger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down shop service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to stop HTTP app", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}
}
