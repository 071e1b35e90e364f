package notification

import (
	"context"
	"encoding/json"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Delivery is what an external email/push channel receives.
type Delivery struct {
	NotificationID string
	RecipientEmail string
	Subject        string
	Body           string
	Priority       string
}

//go:generate mockgen -source=notification_delivery.go -destination=mock/notification_delivery_mock.go -package=mock
type DeliveryChannel interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}

// KafkaDeliveryChannel hands deliveries to the mailer service through a topic.
type KafkaDeliveryChannel struct {
	writer kafka.MessageWriter
	topic  string
}

func NewKafkaDeliveryChannel(writer kafka.MessageWriter) *KafkaDeliveryChannel {
	return &KafkaDeliveryChannel{writer: writer, topic: events.NotificationDeliveryTopic}
}

func (c *KafkaDeliveryChannel) Name() string { return "kafka" }

func (c *KafkaDeliveryChannel) Deliver(ctx context.Context, d Delivery) error {
	payload, err := json.Marshal(events.NotificationDeliveryMessage{
		NotificationID: d.NotificationID,
		RecipientEmail: d.RecipientEmail,
		Subject:        d.Subject,
		Body:           d.Body,
		Priority:       d.Priority,
	})
	if err != nil {
		return err
	}

	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: c.topic,
		Key:   []byte(d.NotificationID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "priority", Value: []byte(d.Priority)},
		},
	})
}

// NoopDeliveryChannel only logs. Used when no broker is configured.
type NoopDeliveryChannel struct {
	logger *zap.Logger
}

func NewNoopDeliveryChannel(logger ...*zap.Logger) *NoopDeliveryChannel {
	l := zap.L().Named("notification.delivery")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.delivery")
	}
	return &NoopDeliveryChannel{logger: l}
}

func (c *NoopDeliveryChannel) Name() string { return "noop" }

func (c *NoopDeliveryChannel) Deliver(_ context.Context, d Delivery) error {
	c.logger.Debug("delivery skipped",
		zap.String("notification_id", d.NotificationID),
		zap.String("subject", d.Subject),
	)
	return nil
}
