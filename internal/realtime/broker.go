// Package realtime pushes lifecycle events to connected dashboards.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	TopicStats = "stats"

	defaultBufferSize = 16
)

type Event struct {
	Topic  string          `json:"topic"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin,omitempty"`
}

// Forwarder carries locally published events to other instances.
type Forwarder interface {
	Forward(ctx context.Context, evt Event) error
}

// Broker fans events out to subscribers of a topic. Each subscriber has a
// bounded buffer; a full buffer drops the event for that subscriber only.
type Broker struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	bufferSize int
	forwarder  Forwarder
	closed     bool
	logger     *zap.Logger
}

type Subscription struct {
	broker *Broker
	topics []string
	ch     chan Event
	once   sync.Once
}

func NewBroker(bufferSize int, logger ...*zap.Logger) *Broker {
	l := zap.L().Named("realtime.broker")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.broker")
	}
	if bufferSize < 1 {
		bufferSize = defaultBufferSize
	}
	return &Broker{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     l,
	}
}

// SetForwarder must be called before the broker is shared.
func (b *Broker) SetForwarder(f Forwarder) {
	b.forwarder = f
}

// Publish delivers locally and forwards to other instances. It never blocks
// on slow subscribers.
func (b *Broker) Publish(ctx context.Context, topic, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		b.logger.Error("marshal realtime event failed", zap.String("topic", topic), zap.String("type", eventType), zap.Error(err))
		return
	}
	evt := Event{Topic: topic, Type: eventType, Data: payload}
	b.Deliver(evt)

	if b.forwarder != nil {
		if err := b.forwarder.Forward(ctx, evt); err != nil {
			b.logger.Warn("forward realtime event failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// Deliver hands evt to local subscribers only.
func (b *Broker) Deliver(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs[evt.Topic] {
		select {
		case sub.ch <- evt:
		default:
			b.logger.Debug("subscriber buffer full, event dropped", zap.String("topic", evt.Topic), zap.String("type", evt.Type))
		}
	}
}

func (b *Broker) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{broker: b, topics: topics, ch: make(chan Event, b.bufferSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[*Subscription]struct{})
		}
		b.subs[t][sub] = struct{}{}
	}
	return sub
}

func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close ends every subscription. Buffered events can still be drained.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
	b.subs = make(map[string]map[*Subscription]struct{})
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Close() {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range s.topics {
		if subs, ok := b.subs[t]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(b.subs, t)
			}
		}
	}
	s.once.Do(func() { close(s.ch) })
}
