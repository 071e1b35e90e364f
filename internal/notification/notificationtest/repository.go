// Package notificationtest provides an in-memory notification repository and
// a recording delivery channel.
package notificationtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-hris-leave/internal/notification"

	"gorm.io/gorm"
)

var _ notification.Repository = (*Repository)(nil)

// Repository enforces the same unique key as uq_notification_key.
type Repository struct {
	mu    sync.Mutex
	byID  map[string]notification.Notification
	byKey map[string]string

	// FailInsert, when set, is returned by InsertIfAbsent.
	FailInsert error
}

func NewRepository() *Repository {
	return &Repository{
		byID:  make(map[string]notification.Notification),
		byKey: make(map[string]string),
	}
}

func key(requestID, recipientID, eventKey string) string {
	return requestID + "|" + recipientID + "|" + eventKey
}

func (r *Repository) SetFailInsert(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailInsert = err
}

func (r *Repository) InsertIfAbsent(_ context.Context, n *notification.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		return false, r.FailInsert
	}
	k := key(n.LeaveRequestID.String(), n.RecipientID.String(), n.EventKey)
	if _, exists := r.byKey[k]; exists {
		return false, nil
	}
	r.byKey[k] = n.ID.String()
	r.byID[n.ID.String()] = *n
	return true, nil
}

func (r *Repository) FindByKey(_ context.Context, leaveRequestID, recipientID, eventKey string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[key(leaveRequestID, recipientID, eventKey)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	n := r.byID[id]
	return &n, nil
}

func (r *Repository) FindByID(_ context.Context, id string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &n, nil
}

func (r *Repository) FindByRecipient(_ context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]notification.Notification, int64, error) {
	all := r.filter(func(n notification.Notification) bool {
		return n.RecipientID.String() == recipientID && (!unreadOnly || !n.IsRead)
	})
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []notification.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *Repository) FindByLeaveRequest(_ context.Context, leaveRequestID string) ([]notification.Notification, error) {
	all := r.filter(func(n notification.Notification) bool {
		return n.LeaveRequestID.String() == leaveRequestID
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

func (r *Repository) MarkRead(_ context.Context, id string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.IsRead {
		return 0, nil
	}
	n.IsRead = true
	n.ReadAt = &at
	r.byID[id] = n
	return 1, nil
}

func (r *Repository) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed int64
	for id, n := range r.byID {
		if n.RecipientID.String() != recipientID || n.IsRead {
			continue
		}
		n.IsRead = true
		n.ReadAt = &at
		r.byID[id] = n
		changed++
	}
	return changed, nil
}

func (r *Repository) CountUnread(_ context.Context, recipientID string) (int64, error) {
	return int64(len(r.filter(func(n notification.Notification) bool {
		return n.RecipientID.String() == recipientID && !n.IsRead
	}))), nil
}

// All returns every stored notification.
func (r *Repository) All() []notification.Notification {
	return r.filter(func(notification.Notification) bool { return true })
}

func (r *Repository) filter(match func(notification.Notification) bool) []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, n := range r.byID {
		if match(n) {
			out = append(out, n)
		}
	}
	return out
}
