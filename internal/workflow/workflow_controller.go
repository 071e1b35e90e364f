// Package workflow is the single entry point for leave request actions. It
// applies the state change through the leave store, then fans out
// notifications and adjusts dashboard stats as independently retried steps.
package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/events"
	"go-hris-leave/internal/leave"
	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/notification"
	"go-hris-leave/internal/realtime"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/clock"
	"go-hris-leave/internal/shared/contextutil"
	"go-hris-leave/internal/shared/metrics"
	"go-hris-leave/internal/shared/worker"
	"go-hris-leave/internal/stats"

	"go.uber.org/zap"
)

const (
	StepDispatch = "dispatch"
	StepStats    = "stats"

	RealtimeStatsUpdated = "stats.updated"

	defaultSideEffectTimeout = 3 * time.Second
)

//go:generate mockgen -source=workflow_controller.go -destination=mock/workflow_controller_mock.go -package=mock
type Controller interface {
	SubmitLeaveRequest(ctx context.Context, draft leave.SubmitLeaveRequest) (leave.LeaveRequest, error)
	Approve(ctx context.Context, leaveID, reviewerID, comments string) (leave.LeaveRequest, error)
	Reject(ctx context.Context, leaveID, reviewerID, comments string) (leave.LeaveRequest, error)
	Hold(ctx context.Context, leaveID, reviewerID, comments string) (leave.LeaveRequest, error)
	RequestDetails(ctx context.Context, leaveID, reviewerID, detailsNeeded string) (leave.LeaveRequest, error)
	Cancel(ctx context.Context, leaveID, actorID, comments string) (leave.LeaveRequest, error)

	Get(ctx context.Context, leaveID string) (leave.LeaveRequest, error)
	History(ctx context.Context, leaveID string) ([]leave.LeaveTransition, error)
	ListByEmployee(ctx context.Context, employeeID string, page leave.Page) (leave.ListResult, error)
	ListByStatus(ctx context.Context, status string, page leave.Page) (leave.ListResult, error)
	GetDashboardStats(ctx context.Context) (stats.DashboardStats, error)
}

type Options struct {
	// Publisher pushes stats updates to live dashboards; nil disables push.
	Publisher         notification.Publisher
	Audit             bootstrap.AuditLogger
	Clock             clock.Clock
	SideEffectTimeout time.Duration
}

type controller struct {
	store      leave.Service
	notifier   notification.Service
	aggregator stats.Service
	retrier    *worker.Retrier
	publisher  notification.Publisher
	audit      bootstrap.AuditLogger
	clock      clock.Clock
	timeout    time.Duration
	logger     *zap.Logger
}

func NewController(
	store leave.Service,
	notifier notification.Service,
	aggregator stats.Service,
	retrier *worker.Retrier,
	opts Options,
	logger ...*zap.Logger,
) Controller {
	l := zap.L().Named("workflow.controller")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("workflow.controller")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = defaultSideEffectTimeout
	}
	if opts.Audit == nil {
		opts.Audit = bootstrap.NewStdoutAuditLogger(l)
	}
	if retrier == nil {
		retrier = worker.NewRetrier(nil, worker.DefaultRetryBaseDelay, worker.DefaultRetryMaxDelay, opts.SideEffectTimeout, l)
	}
	return &controller{
		store:      store,
		notifier:   notifier,
		aggregator: aggregator,
		retrier:    retrier,
		publisher:  opts.Publisher,
		audit:      opts.Audit,
		clock:      opts.Clock,
		timeout:    opts.SideEffectTimeout,
		logger:     l,
	}
}

func (c *controller) SubmitLeaveRequest(ctx context.Context, draft leave.SubmitLeaveRequest) (leave.LeaveRequest, error) {
	defer observe("submit", time.Now())

	req, err := c.store.Submit(ctx, draft)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	metrics.LeaveSubmissionsTotal.WithLabelValues(req.LeaveType).Inc()

	evt := leave.LifecycleEvent(req, "", "", req.EmployeeID.String(), "", req.SubmittedAt)
	c.runSideEffects(ctx, evt, func(ctx context.Context) error {
		return c.aggregator.OnSubmitted(ctx, req)
	})

	c.audit.Log(ctx, bootstrap.AuditLog{
		Action:  "LEAVE_SUBMITTED",
		Message: "leave request submitted",
		Meta: map[string]any{
			"leave_id":       req.ID.String(),
			"request_number": req.RequestNumber,
			"employee_id":    req.EmployeeID.String(),
			"leave_type":     req.LeaveType,
		},
	})
	return req, nil
}

func (c *controller) Approve(ctx context.Context, leaveID, reviewerID, comments string) (leave.LeaveRequest, error) {
	return c.transition(ctx, leave.ActionApprove, leaveID, reviewerID, comments)
}

func (c *controller) Reject(ctx context.Context, leaveID, reviewerID, comments string) (leave.LeaveRequest, error) {
	return c.transition(ctx, leave.ActionReject, leaveID, reviewerID, comments)
}

func (c *controller) Hold(ctx context.Context, leaveID, reviewerID, comments string) (leave.LeaveRequest, error) {
	return c.transition(ctx, leave.ActionHold, leaveID, reviewerID, comments)
}

func (c *controller) RequestDetails(ctx context.Context, leaveID, reviewerID, detailsNeeded string) (leave.LeaveRequest, error) {
	return c.transition(ctx, leave.ActionRequestDetails, leaveID, reviewerID, detailsNeeded)
}

func (c *controller) Cancel(ctx context.Context, leaveID, actorID, comments string) (leave.LeaveRequest, error) {
	return c.transition(ctx, leave.ActionCancel, leaveID, actorID, comments)
}

// transition commits the status change, then runs the side effects. Errors
// from the store come back unchanged; side effect failures never do.
func (c *controller) transition(ctx context.Context, action, leaveID, actorID, comments string) (leave.LeaveRequest, error) {
	defer observe(action, time.Now())

	res, err := c.store.ApplyTransition(ctx, leave.TransitionInput{
		LeaveID:  leaveID,
		Action:   action,
		ActorID:  actorID,
		Comments: comments,
	})
	if err != nil {
		metrics.LeaveTransitionsTotal.WithLabelValues(action, outcomeOf(err)).Inc()
		contextutil.GetLogger(ctx, c.logger).Info("leave transition refused",
			zap.String("leave_id", leaveID),
			zap.String("action", action),
			zap.Error(err),
		)
		return leave.LeaveRequest{}, err
	}
	metrics.LeaveTransitionsTotal.WithLabelValues(action, "applied").Inc()

	req := res.Request
	evt := leave.LifecycleEvent(req, action, res.FromStatus, actorID, strings.TrimSpace(comments), c.clock.Now())
	c.runSideEffects(ctx, evt, func(ctx context.Context) error {
		return c.aggregator.OnTransition(ctx, req, res.FromStatus, req.Status)
	})

	c.audit.Log(ctx, bootstrap.AuditLog{
		Action:  "LEAVE_" + strings.ToUpper(action),
		Message: "leave request " + res.FromStatus + " -> " + req.Status,
		Meta: map[string]any{
			"leave_id":       req.ID.String(),
			"request_number": req.RequestNumber,
			"actor_id":       actorID,
			"from_status":    res.FromStatus,
			"to_status":      req.Status,
			"version":        req.Version,
		},
	})
	return req, nil
}

// runSideEffects runs dispatch and the stats update one after the other, each
// bounded by the side effect timeout. A failed step is handed to the
// retrier and does not stop the next one.
func (c *controller) runSideEffects(ctx context.Context, evt events.LeaveLifecycleEvent, updateStats worker.Step) {
	if input, ok := notification.FromLifecycle(evt); ok {
		c.runStep(ctx, StepDispatch, evt.LeaveRequestID, func(ctx context.Context) error {
			_, err := c.notifier.Dispatch(ctx, input)
			return err
		})
	}

	c.runStep(ctx, StepStats, evt.LeaveRequestID, func(ctx context.Context) error {
		if err := updateStats(ctx); err != nil {
			return err
		}
		c.publishStats(ctx)
		return nil
	})
}

func (c *controller) runStep(ctx context.Context, name, leaveID string, step worker.Step) {
	stepCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := step(stepCtx)
	cancel()
	if err == nil {
		return
	}

	contextutil.GetLogger(ctx, c.logger).Warn("side effect failed, retrying in background",
		zap.String("step", name),
		zap.String("leave_id", leaveID),
		zap.Error(err),
	)
	c.retrier.Schedule(ctx, name, step)
}

func (c *controller) publishStats(ctx context.Context) {
	if c.publisher == nil {
		return
	}
	snapshot, err := c.aggregator.Snapshot(ctx)
	if err != nil {
		c.logger.Debug("stats snapshot for push failed", zap.Error(err))
		return
	}
	c.publisher.Publish(ctx, realtime.TopicStats, RealtimeStatsUpdated, snapshot)
}

func (c *controller) Get(ctx context.Context, leaveID string) (leave.LeaveRequest, error) {
	return c.store.Get(ctx, leaveID)
}

func (c *controller) History(ctx context.Context, leaveID string) ([]leave.LeaveTransition, error) {
	return c.store.History(ctx, leaveID)
}

func (c *controller) ListByEmployee(ctx context.Context, employeeID string, page leave.Page) (leave.ListResult, error) {
	return c.store.ListByEmployee(ctx, employeeID, page)
}

func (c *controller) ListByStatus(ctx context.Context, status string, page leave.Page) (leave.ListResult, error) {
	return c.store.ListByStatus(ctx, status, page)
}

func (c *controller) GetDashboardStats(ctx context.Context) (stats.DashboardStats, error) {
	return c.aggregator.Snapshot(ctx)
}

func observe(action string, start time.Time) {
	metrics.WorkflowActionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, leaveerrors.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, leaveerrors.ErrLeaveNotFound):
		return "not_found"
	case apperror.HasCode(err, apperror.CodeInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
