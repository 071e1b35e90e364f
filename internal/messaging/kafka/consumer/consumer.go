package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/messaging/kafka"
	"go-hris-leave/internal/notification"
	"go-hris-leave/internal/shared/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	maxHandleAttempts = 3
	retryDelay        = 500 * time.Millisecond
)

// Dispatcher is the part of the notification service the consumer replays
// lifecycle events into.
type Dispatcher interface {
	Dispatch(ctx context.Context, in notification.DispatchInput) ([]notification.Notification, error)
}

// ConsumeLeaveLifecycle replays leave lifecycle events into the notification
// fan-out. Dispatch is keyed per recipient and event, so a replay of an
// event the API already handled creates nothing new.
func ConsumeLeaveLifecycle(
	ctx context.Context,
	reader kafka.MessageReader,
	dispatcher Dispatcher,
	logger *zap.Logger,
) {
	if logger == nil {
		logger = zap.L()
	}
	log := logger.Named("kafka.consumer.leave_lifecycle")
	log.Info("leave lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			log.Error("fetch leave lifecycle message failed", zap.Error(err))
			continue
		}

		if err := handleMessage(ctx, msg, dispatcher, log); err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			log.Error("leave lifecycle message left uncommitted",
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave lifecycle message failed", zap.Error(err))
		}
	}
}

// handleMessage returns an error only for failures worth redelivering.
func handleMessage(ctx context.Context, msg kafkago.Message, dispatcher Dispatcher, log *zap.Logger) error {
	var event events.LeaveLifecycleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode leave lifecycle event failed", zap.Error(err))
		return nil
	}

	input, ok := notification.FromLifecycle(event)
	if !ok {
		log.Debug("lifecycle event has no notification",
			zap.String("event_type", event.EventType),
			zap.String("action", event.Action),
		)
		return nil
	}

	var err error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		_, err = dispatcher.Dispatch(ctx, input)
		if err == nil {
			log.Debug("lifecycle notifications ensured",
				zap.String("leave_request_id", event.LeaveRequestID),
				zap.String("event_key", input.EventKey),
			)
			return nil
		}
		if isPermanent(err) {
			log.Warn("lifecycle event skipped",
				zap.String("leave_request_id", event.LeaveRequestID),
				zap.String("event_type", input.EventType),
				zap.Error(err),
			)
			return nil
		}
		log.Warn("dispatch from lifecycle event failed",
			zap.String("leave_request_id", event.LeaveRequestID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay * time.Duration(attempt)):
		}
	}
	return err
}

// isPermanent reports errors that redelivery cannot fix.
func isPermanent(err error) bool {
	if apperror.HasCode(err, apperror.CodeInvalidInput) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key value")
}
