// Package app wires infrastructure and feature modules for the api, worker
// and consumer processes.
package app

import (
	"context"
	"errors"
	"time"

	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/config"
	"go-hris-leave/internal/directory"
	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/messaging/kafka"
	"go-hris-leave/internal/notification"
	"go-hris-leave/internal/rbac"
	"go-hris-leave/internal/realtime"
	"go-hris-leave/internal/shared/clock"
	"go-hris-leave/internal/shared/connection"
	"go-hris-leave/internal/shared/counter"
	"go-hris-leave/internal/shared/worker"
	"go-hris-leave/internal/stats"
	"go-hris-leave/internal/workflow"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const realtimeBufferSize = 32

// App holds the shared dependency graph. Every process builds one and uses
// the parts it needs.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB          *gorm.DB
	Redis       *redis.Client
	KafkaWriter *kafkago.Writer

	LeaveRepo  leave.Repository
	Outbox     kafka.OutboxRepository
	Store      leave.Service
	Notifier   notification.Service
	Aggregator stats.Service
	Broker     *realtime.Broker
	Bridge     *realtime.RedisBridge
	Controller workflow.Controller
	Audit      bootstrap.AuditLogger
	Authz      rbac.Service

	deliveryPool *worker.Pool
	retryPool    *worker.Pool
}

func Build(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.L()
	}
	a := &App{Config: cfg, Logger: logger}

	db, err := connection.ConnectGORMWithRetry(cfg.Database.DSN(), cfg.Database.MaxRetries)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if cfg.Database.AutoMigrate {
		if err := Migrate(db); err != nil {
			a.Close(context.Background())
			return nil, err
		}
		logger.Info("database schema migrated")
	}

	if cfg.Redis.Enabled() {
		rdb, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Redis.MaxRetries)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
		a.Redis = rdb
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process counters and no idempotency cache")
	}

	if cfg.Kafka.Enabled() {
		w, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, cfg.Kafka.MaxRetries)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
		a.KafkaWriter = w
	} else {
		logger.Warn("KAFKA_BROKER not set, notification delivery only logs")
	}

	if err := a.buildModules(); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) buildModules() error {
	cfg := a.Config
	logger := a.Logger
	clk := clock.Real()

	var err error
	a.deliveryPool, err = worker.NewPool("notification-delivery", cfg.Worker.PoolSize, logger)
	if err != nil {
		return err
	}
	a.retryPool, err = worker.NewPool("side-effect-retry", cfg.Worker.PoolSize, logger)
	if err != nil {
		return err
	}

	a.Broker = realtime.NewBroker(realtimeBufferSize, logger)
	if a.Redis != nil {
		a.Bridge = realtime.NewRedisBridge(a.Redis, a.Broker, logger)
		a.Broker.SetForwarder(a.Bridge)
	}

	var channel notification.DeliveryChannel
	if a.KafkaWriter != nil {
		channel = notification.NewKafkaDeliveryChannel(a.KafkaWriter)
	}

	var counters stats.Counters = stats.NewMemoryCounters()
	if a.Redis != nil {
		counters = stats.NewRedisCounters(a.Redis)
	}

	resolver := directory.NewService(directory.NewRepository(a.DB), a.Redis, logger)
	a.Outbox = kafka.NewOutboxRepository(a.DB)
	a.LeaveRepo = leave.NewRepository(a.DB, a.Outbox)
	a.Store = leave.NewService(a.LeaveRepo, counter.NewRepository(a.DB), resolver, clk, logger)
	retrier := worker.NewRetrier(
		a.retryPool,
		cfg.Workflow.RetryBaseDelay,
		cfg.Workflow.RetryMaxDelay,
		cfg.Workflow.SideEffectTimeout,
		logger,
	)
	a.Notifier = notification.NewServiceWithRetrier(
		notification.NewRepository(a.DB),
		channel,
		resolver,
		a.deliveryPool,
		retrier,
		a.Broker,
		clk,
		logger,
	)
	a.Aggregator = stats.NewService(counters, a.LeaveRepo, clk, logger)
	a.Audit = bootstrap.NewStdoutAuditLogger(logger)
	if a.Authz, err = rbac.NewService(rbac.DefaultPolicy(), logger); err != nil {
		return err
	}

	a.Controller = workflow.NewController(a.Store, a.Notifier, a.Aggregator, retrier, workflow.Options{
		Publisher:         a.Broker,
		Audit:             a.Audit,
		Clock:             clk,
		SideEffectTimeout: cfg.Workflow.SideEffectTimeout,
	}, logger)
	return nil
}

// StartBackground runs the Redis bridge until ctx is done.
func (a *App) StartBackground(ctx context.Context) {
	if a.Bridge == nil {
		return
	}
	go func() {
		if err := a.Bridge.Run(ctx); err != nil {
			a.Logger.Error("realtime bridge stopped", zap.Error(err))
		}
	}()
}

// Close drains the pools first so queued retries can still reach the stores.
func (a *App) Close(ctx context.Context) {
	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	if a.retryPool != nil {
		a.retryPool.Shutdown(timeout)
	}
	if a.deliveryPool != nil {
		a.deliveryPool.Shutdown(timeout)
	}
	if a.Broker != nil {
		a.Broker.Close()
	}

	var errs []error
	if a.KafkaWriter != nil {
		errs = append(errs, a.KafkaWriter.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("close resources", zap.Error(err))
	}
}
