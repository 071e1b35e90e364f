// Package leavetest provides in-memory implementations of the leave
// repository and the sequence counter.
package leavetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/messaging/kafka"

	"gorm.io/gorm"
)

var _ leave.Repository = (*Repository)(nil)

// Repository keeps requests in a map guarded by one mutex; the
// status/version guard in UpdateStatus mirrors the SQL WHERE clause.
type Repository struct {
	mu          sync.Mutex
	requests    map[string]leave.LeaveRequest
	transitions map[string][]leave.LeaveTransition
	outbox      []kafka.OutboxEvent

	// FailUpdate, when set, is returned by UpdateStatus before any change.
	FailUpdate error
}

func NewRepository() *Repository {
	return &Repository{
		requests:    make(map[string]leave.LeaveRequest),
		transitions: make(map[string][]leave.LeaveTransition),
	}
}

func (r *Repository) Create(_ context.Context, req *leave.LeaveRequest, event *kafka.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID.String()] = clone(*req)
	if event != nil {
		r.outbox = append(r.outbox, *event)
	}
	return nil
}

func (r *Repository) FindByID(_ context.Context, id string) (*leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := clone(req)
	return &out, nil
}

func (r *Repository) UpdateStatus(_ context.Context, change leave.StatusChange, history leave.LeaveTransition, event *kafka.OutboxEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpdate != nil {
		return false, r.FailUpdate
	}

	id := change.ID.String()
	req, ok := r.requests[id]
	if !ok || req.Status != change.FromStatus || req.Version != change.FromVersion {
		return false, nil
	}
	change.Apply(&req)
	r.requests[id] = req
	r.transitions[id] = append(r.transitions[id], history)
	if event != nil {
		r.outbox = append(r.outbox, *event)
	}
	return true, nil
}

func (r *Repository) FindByEmployee(_ context.Context, employeeID string, offset, limit int) ([]leave.LeaveRequest, int64, error) {
	return r.page(func(req leave.LeaveRequest) bool { return req.EmployeeID.String() == employeeID }, offset, limit)
}

func (r *Repository) FindByStatus(_ context.Context, status string, offset, limit int) ([]leave.LeaveRequest, int64, error) {
	return r.page(func(req leave.LeaveRequest) bool { return req.Status == status }, offset, limit)
}

func (r *Repository) FindTransitions(_ context.Context, leaveID string) ([]leave.LeaveTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]leave.LeaveTransition{}, r.transitions[leaveID]...), nil
}

func (r *Repository) CountByStatus(_ context.Context, status string) (int64, error) {
	n, _ := r.count(func(req leave.LeaveRequest) bool { return req.Status == status })
	return n, nil
}

func (r *Repository) CountDecidedBetween(_ context.Context, status string, from, to time.Time) (int64, error) {
	return r.count(func(req leave.LeaveRequest) bool {
		if req.Status != status {
			return false
		}
		var at *time.Time
		switch status {
		case leave.StatusApproved:
			at = req.ApprovedAt
		case leave.StatusRejected:
			at = req.RejectedAt
		}
		return at != nil && !at.Before(from) && at.Before(to)
	})
}

func (r *Repository) CountOnLeave(_ context.Context, day time.Time) (int64, error) {
	return r.count(func(req leave.LeaveRequest) bool {
		return req.Status == leave.StatusApproved && !req.FromDate.After(day) && !req.ToDate.Before(day)
	})
}

// Outbox returns every event written alongside a create or transition.
func (r *Repository) Outbox() []kafka.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.OutboxEvent{}, r.outbox...)
}

// Len is the number of stored requests.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *Repository) count(match func(leave.LeaveRequest) bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, req := range r.requests {
		if match(req) {
			n++
		}
	}
	return n, nil
}

func (r *Repository) page(match func(leave.LeaveRequest) bool, offset, limit int) ([]leave.LeaveRequest, int64, error) {
	r.mu.Lock()
	var all []leave.LeaveRequest
	for _, req := range r.requests {
		if match(req) {
			all = append(all, clone(req))
		}
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].SubmittedAt.After(all[j].SubmittedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []leave.LeaveRequest{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func clone(req leave.LeaveRequest) leave.LeaveRequest {
	req.RecipientIDs = append(leave.IDList{}, req.RecipientIDs...)
	return req
}
