package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/shared/clock"
	"go-hris-leave/internal/shared/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const snapshotTimeout = 5 * time.Second

// Source answers the authoritative counts a recompute is built from.
// leave.Repository satisfies it.
type Source interface {
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountDecidedBetween(ctx context.Context, status string, from, to time.Time) (int64, error)
	CountOnLeave(ctx context.Context, day time.Time) (int64, error)
}

//go:generate mockgen -source=stats_service.go -destination=mock/stats_service_mock.go -package=mock
type Service interface {
	OnSubmitted(ctx context.Context, req leave.LeaveRequest) error
	OnTransition(ctx context.Context, req leave.LeaveRequest, from, to string) error
	RecomputeFromScratch(ctx context.Context) (DashboardStats, error)
	OnLeaveToday(ctx context.Context) (int64, error)
	Snapshot(ctx context.Context) (DashboardStats, error)
}

type service struct {
	counters Counters
	source   Source
	clock    clock.Clock
	group    singleflight.Group
	logger   *zap.Logger
}

func NewService(counters Counters, source Source, clk clock.Clock, logger ...*zap.Logger) Service {
	l := zap.L().Named("stats.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("stats.service")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if counters == nil {
		counters = NewMemoryCounters()
	}
	return &service{counters: counters, source: source, clock: clk, logger: l}
}

func (s *service) OnSubmitted(ctx context.Context, _ leave.LeaveRequest) error {
	return s.counters.Apply(ctx, map[string]int64{FieldPending: 1})
}

// OnTransition moves the request between counters. request_details keeps
// the status, so it changes nothing.
func (s *service) OnTransition(ctx context.Context, req leave.LeaveRequest, from, to string) error {
	deltas := transitionDeltas(req, from, to, s.clock.Now())
	if len(deltas) == 0 {
		return nil
	}
	return s.counters.Apply(ctx, deltas)
}

func transitionDeltas(req leave.LeaveRequest, from, to string, now time.Time) map[string]int64 {
	deltas := make(map[string]int64)
	if from == to {
		return deltas
	}

	switch from {
	case leave.StatusPending:
		deltas[FieldPending]--
	case leave.StatusOnHold:
		deltas[FieldOnHold]--
	}

	switch to {
	case leave.StatusOnHold:
		deltas[FieldOnHold]++
	case leave.StatusApproved:
		deltas[ApprovedField(clock.MonthKey(decidedAt(req.ApprovedAt, now)))]++
	case leave.StatusRejected:
		deltas[RejectedField(clock.MonthKey(decidedAt(req.RejectedAt, now)))]++
	}
	return deltas
}

func decidedAt(at *time.Time, fallback time.Time) time.Time {
	if at != nil {
		return *at
	}
	return fallback
}

// RecomputeFromScratch rebuilds the counters from the store and corrects any
// drift left by failed or duplicated increments.
func (s *service) RecomputeFromScratch(ctx context.Context) (DashboardStats, error) {
	now := s.clock.Now()
	month := clock.MonthKey(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	pending, err := s.source.CountByStatus(ctx, leave.StatusPending)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count pending: %w", err)
	}
	onHold, err := s.source.CountByStatus(ctx, leave.StatusOnHold)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count on hold: %w", err)
	}
	approved, err := s.source.CountDecidedBetween(ctx, leave.StatusApproved, monthStart, monthEnd)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count approved: %w", err)
	}
	rejected, err := s.source.CountDecidedBetween(ctx, leave.StatusRejected, monthStart, monthEnd)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count rejected: %w", err)
	}

	fresh := map[string]int64{
		FieldPending:         pending,
		FieldOnHold:          onHold,
		ApprovedField(month): approved,
		RejectedField(month): rejected,
	}

	current, err := s.counters.GetAll(ctx)
	if err != nil {
		s.logger.Warn("read counters before recompute failed", zap.Error(err))
	} else {
		for field, want := range fresh {
			if got := current[field]; got != want {
				metrics.StatsDriftTotal.WithLabelValues(counterLabel(field)).Inc()
				s.logger.Info("stats counter corrected",
					zap.String("counter", field),
					zap.Int64("was", got),
					zap.Int64("now", want),
				)
			}
		}
	}

	if err := s.counters.Replace(ctx, fresh); err != nil {
		return DashboardStats{}, err
	}

	onLeave, err := s.OnLeaveToday(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	return buildStats(pending, onHold, approved, rejected, onLeave, now), nil
}

func (s *service) OnLeaveToday(ctx context.Context) (int64, error) {
	n, err := s.source.CountOnLeave(ctx, clock.Today(s.clock))
	if err != nil {
		return 0, fmt.Errorf("count on leave today: %w", err)
	}
	return n, nil
}

// Snapshot reads the counters plus the live on-leave count. Concurrent
// callers share one read, which runs detached from any single caller's
// cancellation.
func (s *service) Snapshot(ctx context.Context) (DashboardStats, error) {
	ch := s.group.DoChan("snapshot", func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		return s.readSnapshot(readCtx)
	})

	select {
	case <-ctx.Done():
		return DashboardStats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return DashboardStats{}, res.Err
		}
		return res.Val.(DashboardStats), nil
	}
}

func (s *service) readSnapshot(ctx context.Context) (DashboardStats, error) {
	now := s.clock.Now()
	month := clock.MonthKey(now)

	values, err := s.counters.GetAll(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	onLeave, err := s.OnLeaveToday(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	return buildStats(
		values[FieldPending],
		values[FieldOnHold],
		values[ApprovedField(month)],
		values[RejectedField(month)],
		onLeave,
		now,
	), nil
}

func buildStats(pending, onHold, approved, rejected, onLeave int64, now time.Time) DashboardStats {
	pending, onHold, approved, rejected = nonNegative(pending), nonNegative(onHold), nonNegative(approved), nonNegative(rejected)
	return DashboardStats{
		PendingRequests:   pending,
		OnHoldRequests:    onHold,
		ApprovedThisMonth: approved,
		RejectedThisMonth: rejected,
		OnLeaveToday:      nonNegative(onLeave),
		ApprovalRate:      approvalRate(approved, rejected),
		GeneratedAt:       now,
	}
}

func approvalRate(approved, rejected int64) float64 {
	decided := approved + rejected
	if decided == 0 {
		return 0
	}
	return decimal.NewFromInt(approved).
		DivRound(decimal.NewFromInt(decided), 4).
		InexactFloat64()
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// counterLabel drops the month suffix to keep metric cardinality fixed.
func counterLabel(field string) string {
	name, _, _ := strings.Cut(field, ":")
	return name
}
