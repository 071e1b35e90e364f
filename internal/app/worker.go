package app

import (
	"context"
	"fmt"
	"time"

	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/config"
	"go-hris-leave/internal/messaging/kafka/producer"
	"go-hris-leave/internal/stats"

	"go.uber.org/zap"
)

// RunWorker relays the outbox to Kafka and keeps the stats counters
// reconciled with the store.
func RunWorker(cfg *config.Config, logger *zap.Logger) error {
	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("KAFKA_BROKER is required")
	}
	log := logger.Named("app.worker")

	a, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		a.Outbox,
		a.KafkaWriter,
		logger,
		cfg.Worker.OutboxPollInterval,
		cfg.Worker.OutboxBatchSize,
	)
	go runStatsRecompute(ctx, a.Aggregator, cfg.Workflow.StatsRecomputeInterval, logger)

	bootstrap.WaitForSignal(ctx)
	log.Info("worker shutting down")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	a.Close(shutdownCtx)
	return nil
}

// runStatsRecompute rebuilds counters once at start, then every interval.
func runStatsRecompute(ctx context.Context, aggregator stats.Service, interval time.Duration, logger *zap.Logger) {
	log := logger.Named("app.stats_recompute")
	recompute := func() {
		snapshot, err := aggregator.RecomputeFromScratch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("stats recompute failed", zap.Error(err))
			}
			return
		}
		log.Debug("stats recomputed",
			zap.Int64("pending", snapshot.PendingRequests),
			zap.Int64("on_hold", snapshot.OnHoldRequests),
			zap.Int64("approved_this_month", snapshot.ApprovedThisMonth),
			zap.Int64("rejected_this_month", snapshot.RejectedThisMonth),
		)
	}

	recompute()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recompute()
		}
	}
}
