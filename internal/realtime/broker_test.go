package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-hris-leave/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingForwarder struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (f *recordingForwarder) Forward(_ context.Context, evt realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return f.err
}

func receive(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case evt := <-sub.Events():
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return realtime.Event{}
	}
}

func TestBroker_PublishToTopicSubscribers(t *testing.T) {
	b := realtime.NewBroker(4)
	stats := b.Subscribe(realtime.TopicStats)
	mine := b.Subscribe("notifications:a")
	defer stats.Close()
	defer mine.Close()

	b.Publish(context.Background(), realtime.TopicStats, "stats.updated", map[string]int{"pendingRequests": 1})

	evt := receive(t, stats)
	assert.Equal(t, realtime.TopicStats, evt.Topic)
	assert.Equal(t, "stats.updated", evt.Type)
	assert.JSONEq(t, `{"pendingRequests":1}`, string(evt.Data))

	select {
	case evt := <-mine.Events():
		t.Fatalf("unexpected event on other topic: %+v", evt)
	default:
	}
}

func TestBroker_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := realtime.NewBroker(2)
	slow := b.Subscribe(realtime.TopicStats)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(context.Background(), realtime.TopicStats, "stats.updated", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Equal(t, json.RawMessage("0"), receive(t, slow).Data)
	assert.Equal(t, json.RawMessage("1"), receive(t, slow).Data)
	select {
	case <-slow.Events():
		t.Fatal("buffer should have held only two events")
	default:
	}
}

func TestBroker_CloseSubscription(t *testing.T) {
	b := realtime.NewBroker(1)
	sub := b.Subscribe(realtime.TopicStats, "notifications:a")
	assert.Equal(t, 1, b.SubscriberCount(realtime.TopicStats))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, b.SubscriberCount(realtime.TopicStats))
	assert.Equal(t, 0, b.SubscriberCount("notifications:a"))
	_, ok := <-sub.Events()
	assert.False(t, ok)

	b.Publish(context.Background(), realtime.TopicStats, "stats.updated", 1)
}

func TestBroker_CloseDrainsBufferedEvents(t *testing.T) {
	b := realtime.NewBroker(4)
	sub := b.Subscribe(realtime.TopicStats)

	b.Publish(context.Background(), realtime.TopicStats, "stats.updated", 1)
	b.Close()

	evt, ok := <-sub.Events()
	require.True(t, ok)
	assert.Equal(t, "stats.updated", evt.Type)
	_, ok = <-sub.Events()
	assert.False(t, ok)

	late := b.Subscribe(realtime.TopicStats)
	_, ok = <-late.Events()
	assert.False(t, ok)
	sub.Close()
}

func TestBroker_Forwarding(t *testing.T) {
	b := realtime.NewBroker(1)
	fwd := &recordingForwarder{err: errors.New("redis down")}
	b.SetForwarder(fwd)
	sub := b.Subscribe(realtime.TopicStats)
	defer sub.Close()

	b.Publish(context.Background(), realtime.TopicStats, "stats.updated", 1)

	assert.Equal(t, "stats.updated", receive(t, sub).Type)
	require.Len(t, fwd.events, 1)
	assert.Equal(t, realtime.TopicStats, fwd.events[0].Topic)
}

func TestBroker_UnmarshalableDataIsSkipped(t *testing.T) {
	b := realtime.NewBroker(1)
	sub := b.Subscribe(realtime.TopicStats)
	defer sub.Close()

	b.Publish(context.Background(), realtime.TopicStats, "bad", make(chan int))

	select {
	case <-sub.Events():
		t.Fatal("event with invalid data must not be delivered")
	default:
	}
}
