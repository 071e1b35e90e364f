package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventRequestSubmitted = "request-submitted"
	EventApproved         = "approved"
	EventRejected         = "rejected"
	EventOnHold           = "on-hold"
	EventDetailsRequested = "details-requested"
	EventCancelled        = "cancelled"
)

const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// Notification is one recipient's copy of one request event. At most one row
// exists per (leave_request_id, recipient_id, event_key). The event key equals
// the event type except for details-requested, which is repeatable while a
// request is on hold: its key carries the version (see EventKey), so one
// request may hold several details-requested rows per recipient, one per
// transition, while retries of the same transition still collapse to one.
type Notification struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LeaveRequestID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_notification_key,priority:1"`
	RecipientID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_notification_key,priority:2;index:idx_notifications_recipient_read,priority:1"`
	EventType      string     `gorm:"type:varchar(30);not null"`
	EventKey       string     `gorm:"type:varchar(60);not null;uniqueIndex:uq_notification_key,priority:3"`
	Message        string     `gorm:"type:text;not null"`
	IsRead         bool       `gorm:"not null;index:idx_notifications_recipient_read,priority:2"`
	ReadAt         *time.Time
	Priority       string    `gorm:"type:varchar(10);not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_notifications_recipient_created,sort:desc"`
}

func (Notification) TableName() string { return "notifications" }

func IsValidEventType(t string) bool {
	switch t {
	case EventRequestSubmitted, EventApproved, EventRejected, EventOnHold, EventDetailsRequested, EventCancelled:
		return true
	}
	return false
}

func PriorityFor(eventType string) string {
	switch eventType {
	case EventRequestSubmitted, EventDetailsRequested, EventOnHold:
		return PriorityHigh
	case EventCancelled:
		return PriorityLow
	default:
		return PriorityNormal
	}
}
