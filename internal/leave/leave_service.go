package leave

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-hris-leave/internal/directory"
	directoryerrors "go-hris-leave/internal/directory/errors"
	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/shared/clock"
	"go-hris-leave/internal/shared/counter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const requestNumberCounter = "leave_request"

var (
	halfDay = decimal.NewFromFloat(0.5)
	fullDay = decimal.NewFromInt(1)

	// maxDuration is the largest value the numeric(5,1) duration column holds.
	maxDuration = decimal.RequireFromString("9999.9")
)

// Service is the leave record store. ApplyTransition is the only way a
// request's status changes.
//
//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, req SubmitLeaveRequest) (LeaveRequest, error)
	Get(ctx context.Context, id string) (LeaveRequest, error)
	ApplyTransition(ctx context.Context, in TransitionInput) (TransitionResult, error)
	ListByEmployee(ctx context.Context, employeeID string, page Page) (ListResult, error)
	ListByStatus(ctx context.Context, status string, page Page) (ListResult, error)
	History(ctx context.Context, id string) ([]LeaveTransition, error)
}

type service struct {
	repo      Repository
	counter   counter.Repository
	directory directory.Resolver
	clock     clock.Clock
	logger    *zap.Logger
}

func NewService(repo Repository, counterRepo counter.Repository, resolver directory.Resolver, clk clock.Clock, logger ...*zap.Logger) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &service{repo: repo, counter: counterRepo, directory: resolver, clock: clk, logger: l}
}

func (s *service) Submit(ctx context.Context, req SubmitLeaveRequest) (LeaveRequest, error) {
	s.logger.Debug("submit leave requested",
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type", req.LeaveType),
		zap.String("from_date", req.FromDate),
		zap.String("to_date", req.ToDate),
		zap.Int("recipients", len(req.RecipientIDs)),
	)

	d, err := validateDraft(req)
	if err != nil {
		s.logger.Warn("submit leave validation failed", zap.Error(err))
		return LeaveRequest{}, err
	}

	requester, err := s.directory.ResolveEmployee(ctx, d.employeeID.String())
	if err != nil {
		if isUnknownEmployee(err) {
			return LeaveRequest{}, leaveerrors.ErrUnknownEmployee
		}
		return LeaveRequest{}, fmt.Errorf("resolve requester: %w", err)
	}
	for _, rid := range d.recipients {
		if _, err := s.directory.ResolveEmployee(ctx, rid); err != nil {
			if isUnknownEmployee(err) {
				return LeaveRequest{}, leaveerrors.ErrUnknownRecipient.WithDetails(map[string]string{"recipient_id": rid})
			}
			return LeaveRequest{}, fmt.Errorf("resolve recipient %s: %w", rid, err)
		}
	}

	now := s.clock.Now()
	seq, err := s.counter.GetNextValue(ctx, strconv.Itoa(now.Year()), requestNumberCounter)
	if err != nil {
		s.logger.Error("submit leave request number failed", zap.Error(err))
		return LeaveRequest{}, err
	}

	record := LeaveRequest{
		ID:            uuid.New(),
		RequestNumber: fmt.Sprintf("LV-%d-%06d", now.Year(), seq),
		EmployeeID:    d.employeeID,
		EmployeeName:  requester.Name,
		EmployeeEmail: requester.Email,
		Department:    requester.Department,
		LeaveType:     req.LeaveType,
		FromDate:      d.from,
		ToDate:        d.to,
		Duration:      d.duration,
		DurationType:  d.durationType,
		Reason:        strings.TrimSpace(req.Reason),
		AttachmentRef: req.AttachmentRef,
		Status:        StatusPending,
		RecipientIDs:  d.recipients,
		Version:       1,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}

	outbox, err := newOutboxEvent(ctx, LifecycleEvent(record, "", "", record.EmployeeID.String(), "", now))
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := s.repo.Create(ctx, &record, outbox); err != nil {
		s.logger.Error("submit leave persist failed", zap.Error(err))
		return LeaveRequest{}, err
	}

	s.logger.Info("submit leave success",
		zap.String("leave_id", record.ID.String()),
		zap.String("request_number", record.RequestNumber),
		zap.String("employee_id", record.EmployeeID.String()),
	)
	return record, nil
}

func (s *service) Get(ctx context.Context, id string) (LeaveRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequest{}, leaveerrors.ErrLeaveNotFound
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequest{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveRequest{}, err
	}
	return *req, nil
}

func (s *service) ApplyTransition(ctx context.Context, in TransitionInput) (TransitionResult, error) {
	s.logger.Debug("leave transition requested",
		zap.String("leave_id", in.LeaveID),
		zap.String("action", in.Action),
		zap.String("actor_id", in.ActorID),
	)

	if !IsValidAction(in.Action) {
		return TransitionResult{}, leaveerrors.ErrInvalidAction
	}
	actorID, err := uuid.Parse(in.ActorID)
	if err != nil {
		return TransitionResult{}, leaveerrors.ErrInvalidActorID
	}
	comments := strings.TrimSpace(in.Comments)
	if commentRequired(in.Action) && comments == "" {
		return TransitionResult{}, leaveerrors.ErrCommentRequired.WithDetails(map[string]string{"action": in.Action})
	}

	current, err := s.Get(ctx, in.LeaveID)
	if err != nil {
		return TransitionResult{}, err
	}
	if in.Action == ActionCancel && current.EmployeeID != actorID {
		return TransitionResult{}, leaveerrors.ErrOnlyRequesterCanCancel
	}

	to, ok := NextStatus(current.Status, in.Action)
	if !ok {
		s.logger.Warn("leave transition rejected",
			zap.String("leave_id", in.LeaveID),
			zap.String("status", current.Status),
			zap.String("action", in.Action),
		)
		return TransitionResult{}, leaveerrors.ErrInvalidTransition.WithDetails(map[string]string{
			"status": current.Status,
			"action": in.Action,
		})
	}

	change := StatusChange{
		ID:          current.ID,
		Action:      in.Action,
		FromStatus:  current.Status,
		FromVersion: current.Version,
		ToStatus:    to,
		ActorID:     actorID,
		Comments:    optionalString(comments),
		At:          s.clock.Now(),
	}
	updated := current
	change.Apply(&updated)

	outbox, err := newOutboxEvent(ctx, LifecycleEvent(updated, in.Action, current.Status, actorID.String(), comments, change.At))
	if err != nil {
		return TransitionResult{}, err
	}

	applied, err := s.repo.UpdateStatus(ctx, change, change.transition(), outbox)
	if err != nil {
		s.logger.Error("leave transition persist failed", zap.String("leave_id", in.LeaveID), zap.Error(err))
		return TransitionResult{}, err
	}
	if !applied {
		// Lost the race: the row moved on between our read and the update.
		if _, err := s.Get(ctx, in.LeaveID); err != nil {
			return TransitionResult{}, err
		}
		s.logger.Warn("leave transition lost race",
			zap.String("leave_id", in.LeaveID),
			zap.String("action", in.Action),
			zap.Int("version", current.Version),
		)
		return TransitionResult{}, leaveerrors.ErrInvalidTransition
	}

	s.logger.Info("leave transition success",
		zap.String("leave_id", in.LeaveID),
		zap.String("from", current.Status),
		zap.String("to", to),
		zap.Int("version", updated.Version),
	)
	return TransitionResult{Request: updated, FromStatus: current.Status}, nil
}

func (s *service) ListByEmployee(ctx context.Context, employeeID string, page Page) (ListResult, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return ListResult{}, leaveerrors.ErrInvalidEmployeeID
	}
	items, total, err := s.repo.FindByEmployee(ctx, employeeID, page.offset(), page.limit())
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

func (s *service) ListByStatus(ctx context.Context, status string, page Page) (ListResult, error) {
	if !IsValidStatus(status) {
		return ListResult{}, leaveerrors.ErrInvalidStatus
	}
	items, total, err := s.repo.FindByStatus(ctx, status, page.offset(), page.limit())
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

func (s *service) History(ctx context.Context, id string) ([]LeaveTransition, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.FindTransitions(ctx, id)
}

type draft struct {
	employeeID   uuid.UUID
	from         time.Time
	to           time.Time
	duration     decimal.Decimal
	durationType string
	recipients   []string
}

func validateDraft(req SubmitLeaveRequest) (draft, error) {
	var d draft

	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return d, leaveerrors.ErrInvalidEmployeeID
	}
	d.employeeID = employeeID

	if !isValidLeaveType(req.LeaveType) {
		return d, leaveerrors.ErrInvalidLeaveType
	}

	d.durationType = req.DurationType
	if d.durationType == "" {
		d.durationType = DurationFullDay
		if req.LeaveType == TypeHalfDay {
			d.durationType = DurationHalfDayMorning
		}
	}
	if !isValidDurationType(d.durationType) {
		return d, leaveerrors.ErrInvalidDurationType
	}
	if req.LeaveType == TypeHalfDay && d.durationType == DurationFullDay {
		return d, leaveerrors.ErrHalfDayNeedsHalfDayDuration
	}

	if d.from, err = parseDate(req.FromDate); err != nil {
		return d, err
	}
	if d.to, err = parseDate(req.ToDate); err != nil {
		return d, err
	}
	if d.from.After(d.to) {
		return d, leaveerrors.ErrInvalidDateRange
	}

	span := decimal.NewFromInt(int64(d.to.Sub(d.from).Hours()/24) + 1)
	if span.GreaterThan(maxDuration) {
		return d, leaveerrors.ErrLeaveTooLong
	}
	minimum := fullDay
	if d.durationType != DurationFullDay {
		if !d.from.Equal(d.to) {
			return d, leaveerrors.ErrHalfDaySpansDays
		}
		span = halfDay
		minimum = halfDay
	}

	d.duration = span
	if req.Duration != nil {
		switch {
		case !req.Duration.IsPositive():
			return d, leaveerrors.ErrInvalidDuration
		case req.Duration.LessThan(minimum):
			return d, leaveerrors.ErrDurationBelowMinimum
		case req.Duration.GreaterThan(span):
			return d, leaveerrors.ErrDurationExceedsRange
		}
		d.duration = *req.Duration
	}

	d.recipients = dedupe(req.RecipientIDs)
	if len(d.recipients) == 0 {
		return d, leaveerrors.ErrRecipientsRequired
	}
	for _, rid := range d.recipients {
		if _, err := uuid.Parse(rid); err != nil {
			return d, leaveerrors.ErrUnknownRecipient.WithDetails(map[string]string{"recipient_id": rid})
		}
	}

	return d, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(ids []string) IDList {
	seen := make(map[string]struct{}, len(ids))
	out := make(IDList, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
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

func isValidLeaveType(t string) bool {
	switch t {
	case TypeAnnual, TypeSick, TypeCasual, TypeHalfDay, TypeCompOff, TypeMaternity, TypePaternity, TypeUnpaid:
		return true
	}
	return false
}

func isValidDurationType(t string) bool {
	switch t {
	case DurationFullDay, DurationHalfDayMorning, DurationHalfDayAfternoon:
		return true
	}
	return false
}

func isUnknownEmployee(err error) bool {
	return errors.Is(err, directoryerrors.ErrEmployeeNotFound) || errors.Is(err, directoryerrors.ErrInvalidEmployeeID)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
