package notification

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go-hris-leave/internal/directory"
	notificationerrors "go-hris-leave/internal/notification/errors"
	"go-hris-leave/internal/shared/clock"
	"go-hris-leave/internal/shared/metrics"
	"go-hris-leave/internal/shared/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultDeliveryTimeout = 10 * time.Second

	// StepDelivery labels delivery retries in the side effect retry metrics.
	StepDelivery = "delivery"

	// Realtime event names published per recipient.
	RealtimeCreated     = "notification.created"
	RealtimeUnreadCount = "notification.unread_count"
)

func RecipientTopic(recipientID string) string {
	return "notifications:" + recipientID
}

// Publisher pushes events to live subscribers. Implemented by the realtime
// broker; nil disables push.
type Publisher interface {
	Publish(ctx context.Context, topic, eventType string, data any)
}

//go:generate mockgen -source=notification_service.go -destination=mock/notification_service_mock.go -package=mock
type Service interface {
	Dispatch(ctx context.Context, in DispatchInput) ([]Notification, error)
	Get(ctx context.Context, id string) (Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, page Page) (ListResult, error)
}

type service struct {
	repo            Repository
	channel         DeliveryChannel
	directory       directory.Resolver
	pool            *worker.Pool
	retrier         *worker.Retrier
	publisher       Publisher
	clock           clock.Clock
	deliveryTimeout time.Duration
	logger          *zap.Logger
}

func NewService(
	repo Repository,
	channel DeliveryChannel,
	resolver directory.Resolver,
	pool *worker.Pool,
	publisher Publisher,
	clk clock.Clock,
	logger ...*zap.Logger,
) Service {
	return NewServiceWithRetrier(repo, channel, resolver, pool, nil, publisher, clk, logger...)
}

// NewServiceWithRetrier hands failed deliveries to retrier. A nil retrier
// retries on pool with the default backoff.
func NewServiceWithRetrier(
	repo Repository,
	channel DeliveryChannel,
	resolver directory.Resolver,
	pool *worker.Pool,
	retrier *worker.Retrier,
	publisher Publisher,
	clk clock.Clock,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("notification.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.service")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if channel == nil {
		channel = NewNoopDeliveryChannel(l)
	}
	if retrier == nil {
		retrier = worker.NewRetrier(pool, worker.DefaultRetryBaseDelay, worker.DefaultRetryMaxDelay, defaultDeliveryTimeout, l)
	}
	return &service{
		repo:            repo,
		channel:         channel,
		directory:       resolver,
		pool:            pool,
		retrier:         retrier,
		publisher:       publisher,
		clock:           clk,
		deliveryTimeout: defaultDeliveryTimeout,
		logger:          l,
	}
}

// Dispatch creates or returns the notification for every recipient. The
// unique key makes repeated and concurrent calls converge on one row.
func (s *service) Dispatch(ctx context.Context, in DispatchInput) ([]Notification, error) {
	if _, err := uuid.Parse(in.LeaveRequestID); err != nil {
		return nil, notificationerrors.ErrInvalidRequestID
	}
	if !IsValidEventType(in.EventType) {
		return nil, notificationerrors.ErrInvalidEventType
	}
	recipients := uniqueIDs(in.RecipientIDs)
	if len(recipients) == 0 {
		return nil, notificationerrors.ErrRecipientsRequired
	}
	key := in.EventKey
	if key == "" {
		key = in.EventType
	}

	recipientIDs := make([]uuid.UUID, 0, len(recipients))
	for _, rid := range recipients {
		id, err := uuid.Parse(rid)
		if err != nil {
			return nil, notificationerrors.ErrInvalidRecipientID.WithDetails(map[string]string{"recipient_id": rid})
		}
		recipientIDs = append(recipientIDs, id)
	}

	requestID := uuid.MustParse(in.LeaveRequestID)
	out := make([]Notification, 0, len(recipients))
	for _, recipientID := range recipientIDs {
		rid := recipientID.String()
		n := Notification{
			ID:             uuid.New(),
			LeaveRequestID: requestID,
			RecipientID:    recipientID,
			EventType:      in.EventType,
			EventKey:       key,
			Message:        in.Message,
			Priority:       PriorityFor(in.EventType),
			CreatedAt:      s.clock.Now(),
		}

		created, err := s.repo.InsertIfAbsent(ctx, &n)
		if err != nil {
			s.logger.Error("notification insert failed",
				zap.String("leave_request_id", in.LeaveRequestID),
				zap.String("recipient_id", rid),
				zap.String("event_key", key),
				zap.Error(err),
			)
			return nil, err
		}
		metrics.NotificationsDispatchedTotal.WithLabelValues(in.EventType, strconv.FormatBool(created)).Inc()

		if !created {
			existing, err := s.repo.FindByKey(ctx, in.LeaveRequestID, rid, key)
			if err != nil {
				return nil, err
			}
			out = append(out, *existing)
			continue
		}

		out = append(out, n)
		s.deliver(n, in.Subject)
		s.publish(ctx, RecipientTopic(rid), RealtimeCreated, ToResponse(n))
	}

	s.logger.Debug("notifications dispatched",
		zap.String("leave_request_id", in.LeaveRequestID),
		zap.String("event_key", key),
		zap.Int("recipients", len(out)),
	)
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Notification{}, notificationerrors.ErrNotificationNotFound
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Notification{}, notificationerrors.ErrNotificationNotFound
		}
		return Notification{}, err
	}
	return *n, nil
}

// MarkRead is idempotent: an already read notification is left untouched.
func (s *service) MarkRead(ctx context.Context, id string) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}

	changed, err := s.repo.MarkRead(ctx, id, s.clock.Now())
	if err != nil {
		s.logger.Error("mark notification read failed", zap.String("notification_id", id), zap.Error(err))
		return err
	}
	if changed > 0 {
		s.publishUnread(ctx, n.RecipientID.String())
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	if _, err := uuid.Parse(recipientID); err != nil {
		return 0, notificationerrors.ErrInvalidRecipientID
	}
	changed, err := s.repo.MarkAllRead(ctx, recipientID, s.clock.Now())
	if err != nil {
		s.logger.Error("mark all notifications read failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return 0, err
	}
	if changed > 0 {
		s.publishUnread(ctx, recipientID)
	}
	return changed, nil
}

func (s *service) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	if _, err := uuid.Parse(recipientID); err != nil {
		return 0, notificationerrors.ErrInvalidRecipientID
	}
	return s.repo.CountUnread(ctx, recipientID)
}

func (s *service) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, page Page) (ListResult, error) {
	if _, err := uuid.Parse(recipientID); err != nil {
		return ListResult{}, notificationerrors.ErrInvalidRecipientID
	}
	limit := page.PageSize
	if limit < 1 {
		limit = 10
	}
	offset := 0
	if page.Page > 1 {
		offset = (page.Page - 1) * limit
	}
	items, total, err := s.repo.FindByRecipient(ctx, recipientID, unreadOnly, offset, limit)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// deliver hands n to the channel in the background. A failed attempt is
// retried with backoff until it succeeds or the service shuts down; the
// stored notification stays valid either way.
func (s *service) deliver(n Notification, subject string) {
	step := func(ctx context.Context) error {
		recipient, err := s.directory.ResolveEmployee(ctx, n.RecipientID.String())
		if err != nil {
			return err
		}
		if recipient.Email == "" {
			s.logger.Debug("recipient has no email, delivery skipped", zap.String("recipient_id", recipient.ID))
			return nil
		}
		return s.channel.Deliver(ctx, Delivery{
			NotificationID: n.ID.String(),
			RecipientEmail: recipient.Email,
			Subject:        subject,
			Body:           n.Message,
			Priority:       n.Priority,
		})
	}
	retry := func(err error) {
		s.deliveryFailed(n, err)
		s.retrier.Schedule(context.Background(), StepDelivery, func(ctx context.Context) error {
			if err := step(ctx); err != nil {
				s.deliveryFailed(n, err)
				return err
			}
			return nil
		})
	}

	task := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
		defer cancel()
		if err := step(ctx); err != nil {
			retry(err)
		}
	}

	if s.pool == nil {
		go task(context.Background())
		return
	}
	if err := s.pool.SubmitDetached(task); err != nil {
		retry(err)
	}
}

func (s *service) deliveryFailed(n Notification, cause error) {
	err := notificationerrors.ErrDeliveryFailure.WithCause(cause)
	metrics.DeliveryFailuresTotal.WithLabelValues(s.channel.Name()).Inc()
	s.logger.Warn("notification delivery failed",
		zap.String("notification_id", n.ID.String()),
		zap.String("recipient_id", n.RecipientID.String()),
		zap.String("channel", s.channel.Name()),
		zap.Error(err),
	)
}

func (s *service) publishUnread(ctx context.Context, recipientID string) {
	if s.publisher == nil {
		return
	}
	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		s.logger.Warn("unread count for push failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return
	}
	s.publisher.Publish(ctx, RecipientTopic(recipientID), RealtimeUnreadCount, UnreadCountResponse{Unread: count})
}

func (s *service) publish(ctx context.Context, topic, eventType string, data any) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, topic, eventType, data)
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
