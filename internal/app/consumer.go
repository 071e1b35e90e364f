package app

import (
	"context"
	"fmt"

	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/config"
	"go-hris-leave/internal/events"
	"go-hris-leave/internal/messaging/kafka/consumer"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer replays leave lifecycle events into the notification fan-out.
func RunConsumer(cfg *config.Config, logger *zap.Logger) error {
	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("KAFKA_BROKER is required")
	}
	log := logger.Named("app.consumer")

	a, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.Kafka.Broker},
		Topic:          events.LeaveLifecycleTopic,
		GroupID:        cfg.Kafka.ConsumerGroupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		consumer.ConsumeLeaveLifecycle(ctx, reader, a.Notifier, logger)
		close(done)
	}()

	bootstrap.WaitForSignal(ctx)
	log.Info("consumer shutting down")
	cancel()
	<-done

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	a.Close(shutdownCtx)
	return nil
}
