package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/messaging/kafka/consumer"
	"go-hris-leave/internal/notification"
	"go-hris-leave/internal/shared/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader serves queued messages, then blocks until ctx is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64{}, r.committed...)
}

func (r *fakeReader) Drained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue) == 0
}

type fakeDispatcher struct {
	mu     sync.Mutex
	inputs []notification.DispatchInput
	errs   []error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, in notification.DispatchInput) ([]notification.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs = append(d.inputs, in)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}
	return nil, nil
}

func (d *fakeDispatcher) Inputs() []notification.DispatchInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.DispatchInput{}, d.inputs...)
}

func lifecycleMessage(t *testing.T, offset int64, evt events.LeaveLifecycleEvent) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.LeaveLifecycleTopic, Offset: offset, Value: payload}
}

func approvedEvent() events.LeaveLifecycleEvent {
	return events.LeaveLifecycleEvent{
		EventType:      events.LeaveTransitioned,
		LeaveRequestID: "11111111-1111-1111-1111-111111111111",
		RequestNumber:  "LR-000001",
		EmployeeID:     "emp-1",
		EmployeeName:   "Dewi",
		LeaveType:      "annual",
		FromDate:       "2026-06-10",
		ToDate:         "2026-06-12",
		RecipientIDs:   []string{"mgr-1"},
		Action:         "approve",
		FromStatus:     "Pending",
		ToStatus:       "Approved",
		ActorID:        "mgr-1",
		Version:        2,
		OccurredAt:     time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC),
	}
}

func runConsumer(t *testing.T, reader *fakeReader, dispatcher *fakeDispatcher, wantCommitted int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.ConsumeLeaveLifecycle(ctx, reader, dispatcher, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return reader.Drained() && len(reader.Committed()) >= wantCommitted
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumeLeaveLifecycle(t *testing.T) {
	t.Run("dispatches_and_commits", func(t *testing.T) {
		reader := &fakeReader{queue: []kafkago.Message{lifecycleMessage(t, 7, approvedEvent())}}
		dispatcher := &fakeDispatcher{}

		runConsumer(t, reader, dispatcher, 1)

		assert.Equal(t, []int64{7}, reader.Committed())
		inputs := dispatcher.Inputs()
		require.Len(t, inputs, 1)
		assert.Equal(t, []string{"emp-1"}, inputs[0].RecipientIDs)
		assert.Equal(t, "11111111-1111-1111-1111-111111111111", inputs[0].LeaveRequestID)
	})

	t.Run("poison_message_is_committed", func(t *testing.T) {
		reader := &fakeReader{queue: []kafkago.Message{
			{Offset: 1, Value: []byte("{not json")},
			lifecycleMessage(t, 2, approvedEvent()),
		}}
		dispatcher := &fakeDispatcher{}

		runConsumer(t, reader, dispatcher, 2)

		assert.Equal(t, []int64{1, 2}, reader.Committed())
		assert.Len(t, dispatcher.Inputs(), 1)
	})

	t.Run("permanent_errors_are_skipped", func(t *testing.T) {
		reader := &fakeReader{queue: []kafkago.Message{
			lifecycleMessage(t, 1, approvedEvent()),
			lifecycleMessage(t, 2, approvedEvent()),
		}}
		dispatcher := &fakeDispatcher{errs: []error{
			apperror.New(apperror.CodeInvalidInput, "event type is invalid", 400),
			&pgconn.PgError{Code: "23505"},
		}}

		runConsumer(t, reader, dispatcher, 2)

		assert.Equal(t, []int64{1, 2}, reader.Committed())
		assert.Len(t, dispatcher.Inputs(), 2)
	})

	t.Run("transient_error_is_retried", func(t *testing.T) {
		reader := &fakeReader{queue: []kafkago.Message{lifecycleMessage(t, 3, approvedEvent())}}
		dispatcher := &fakeDispatcher{errs: []error{errors.New("connection reset")}}

		runConsumer(t, reader, dispatcher, 1)

		assert.Equal(t, []int64{3}, reader.Committed())
		assert.Len(t, dispatcher.Inputs(), 2)
	})
}
