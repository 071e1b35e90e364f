package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-hris-leave/internal/messaging/kafka"

	"gorm.io/gorm"
)

var errStaleStatus = errors.New("leave: status or version changed")

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	// Create stores a new request together with its outbox event.
	Create(ctx context.Context, req *LeaveRequest, event *kafka.OutboxEvent) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	// UpdateStatus applies change only if the row still has the expected
	// status and version. It reports false when the guard did not match.
	UpdateStatus(ctx context.Context, change StatusChange, history LeaveTransition, event *kafka.OutboxEvent) (bool, error)
	FindByEmployee(ctx context.Context, employeeID string, offset, limit int) ([]LeaveRequest, int64, error)
	FindByStatus(ctx context.Context, status string, offset, limit int) ([]LeaveRequest, int64, error)
	FindTransitions(ctx context.Context, leaveID string) ([]LeaveTransition, error)

	CountByStatus(ctx context.Context, status string) (int64, error)
	CountDecidedBetween(ctx context.Context, status string, from, to time.Time) (int64, error)
	CountOnLeave(ctx context.Context, day time.Time) (int64, error)
}

type repository struct {
	db     *gorm.DB
	outbox kafka.OutboxRepository
}

func NewRepository(db *gorm.DB, outbox kafka.OutboxRepository) Repository {
	return &repository{db: db, outbox: outbox}
}

func (r *repository) Create(ctx context.Context, req *LeaveRequest, event *kafka.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return r.writeOutbox(ctx, tx, event)
	})
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var req LeaveRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) UpdateStatus(ctx context.Context, change StatusChange, history LeaveTransition, event *kafka.OutboxEvent) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&LeaveRequest{}).
			Where("id = ? AND status = ? AND version = ?", change.ID, change.FromStatus, change.FromVersion).
			Updates(change.columns())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleStatus
		}

		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("insert leave transition: %w", err)
		}
		return r.writeOutbox(ctx, tx, event)
	})
	if errors.Is(err, errStaleStatus) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) FindByEmployee(ctx context.Context, employeeID string, offset, limit int) ([]LeaveRequest, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&LeaveRequest{}).Where("employee_id = ?", employeeID), offset, limit)
}

func (r *repository) FindByStatus(ctx context.Context, status string, offset, limit int) ([]LeaveRequest, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&LeaveRequest{}).Where("status = ?", status), offset, limit)
}

// page orders newest first with id as tiebreak so pages never overlap.
func (r *repository) page(q *gorm.DB, offset, limit int) ([]LeaveRequest, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []LeaveRequest
	err := q.Session(&gorm.Session{}).
		Order("submitted_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *repository) FindTransitions(ctx context.Context, leaveID string) ([]LeaveTransition, error) {
	var items []LeaveTransition
	err := r.db.WithContext(ctx).
		Where("leave_request_id = ?", leaveID).
		Order("version ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repository) CountDecidedBetween(ctx context.Context, status string, from, to time.Time) (int64, error) {
	column, ok := decisionColumns[status]
	if !ok {
		return 0, fmt.Errorf("leave: no decision timestamp for status %q", status)
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("status = ?", status).
		Where(column+" >= ? AND "+column+" < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *repository) CountOnLeave(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("status = ?", StatusApproved).
		Where("from_date <= ? AND to_date >= ?", day, day).
		Count(&count).Error
	return count, err
}

func (r *repository) writeOutbox(ctx context.Context, tx *gorm.DB, event *kafka.OutboxEvent) error {
	if event == nil || r.outbox == nil {
		return nil
	}
	if err := r.outbox.WithTx(tx).Create(ctx, *event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

var decisionColumns = map[string]string{
	StatusApproved: "approved_at",
	StatusRejected: "rejected_at",
}
