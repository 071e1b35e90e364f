package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const BridgeChannel = "leave:events"

// RedisBridge relays broker events between API instances over Redis
// pub/sub. Events carry the publishing instance id so they are not
// delivered twice locally.
type RedisBridge struct {
	rdb        *redis.Client
	broker     *Broker
	instanceID string
	logger     *zap.Logger
}

func NewRedisBridge(rdb *redis.Client, broker *Broker, logger ...*zap.Logger) *RedisBridge {
	l := zap.L().Named("realtime.bridge")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.bridge")
	}
	return &RedisBridge{
		rdb:        rdb,
		broker:     broker,
		instanceID: uuid.NewString(),
		logger:     l,
	}
}

func (r *RedisBridge) Forward(ctx context.Context, evt Event) error {
	evt.Origin = r.instanceID
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal bridge event: %w", err)
	}
	return r.rdb.Publish(ctx, BridgeChannel, string(payload)).Err()
}

// Run consumes remote events until ctx is cancelled.
func (r *RedisBridge) Run(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, BridgeChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", BridgeChannel, err)
	}
	r.logger.Info("realtime bridge subscribed", zap.String("channel", BridgeChannel), zap.String("instance_id", r.instanceID))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisBridge) handle(payload string) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		r.logger.Warn("invalid bridge event", zap.Error(err))
		return
	}
	if evt.Origin == r.instanceID {
		return
	}
	r.broker.Deliver(evt)
}
