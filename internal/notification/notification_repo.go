package notification

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=notification_repo.go -destination=mock/notification_repo_mock.go -package=mock
type Repository interface {
	// InsertIfAbsent reports whether n was stored; false means a row with the
	// same key already existed.
	InsertIfAbsent(ctx context.Context, n *Notification) (bool, error)
	FindByKey(ctx context.Context, leaveRequestID, recipientID, eventKey string) (*Notification, error)
	FindByID(ctx context.Context, id string) (*Notification, error)
	FindByRecipient(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]Notification, int64, error)
	FindByLeaveRequest(ctx context.Context, leaveRequestID string) ([]Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

var notificationKey = []clause.Column{
	{Name: "leave_request_id"},
	{Name: "recipient_id"},
	{Name: "event_key"},
}

func (r *repository) InsertIfAbsent(ctx context.Context, n *Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: notificationKey, DoNothing: true}).
		Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindByKey(ctx context.Context, leaveRequestID, recipientID, eventKey string) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).
		Where("leave_request_id = ? AND recipient_id = ? AND event_key = ?", leaveRequestID, recipientID, eventKey).
		Take(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repository) FindByRecipient(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []Notification
	err := q.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *repository) FindByLeaveRequest(ctx context.Context, leaveRequestID string) ([]Notification, error) {
	var items []Notification
	err := r.db.WithContext(ctx).
		Where("leave_request_id = ?", leaveRequestID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) MarkRead(ctx context.Context, id string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}
