package stats_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/shared/clock"
	"go-hris-leave/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	byStatus map[string]int64
	decided  map[string]int64
	onLeave  int64
	err      error
	calls    int
}

func (f *fakeSource) CountByStatus(_ context.Context, status string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byStatus[status], f.err
}

func (f *fakeSource) CountDecidedBetween(_ context.Context, status string, from, to time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decided[status], f.err
}

func (f *fakeSource) CountOnLeave(_ context.Context, day time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.onLeave, f.err
}

var june3 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func setupStats(src *fakeSource) (stats.Service, *stats.MemoryCounters) {
	counters := stats.NewMemoryCounters()
	return stats.NewService(counters, src, clock.NewFixed(june3)), counters
}

func decided(at time.Time) *time.Time { return &at }

func TestStats_IncrementalCounters(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupStats(&fakeSource{onLeave: 1})

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.OnSubmitted(ctx, leave.LeaveRequest{}))
	}
	require.NoError(t, svc.OnTransition(ctx, leave.LeaveRequest{ApprovedAt: decided(june3)}, leave.StatusPending, leave.StatusApproved))
	require.NoError(t, svc.OnTransition(ctx, leave.LeaveRequest{}, leave.StatusPending, leave.StatusOnHold))
	require.NoError(t, svc.OnTransition(ctx, leave.LeaveRequest{}, leave.StatusOnHold, leave.StatusOnHold))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.PendingRequests)
	assert.Equal(t, int64(1), snap.OnHoldRequests)
	assert.Equal(t, int64(1), snap.ApprovedThisMonth)
	assert.Equal(t, int64(0), snap.RejectedThisMonth)
	assert.Equal(t, int64(1), snap.OnLeaveToday)
	assert.Equal(t, 1.0, snap.ApprovalRate)
	assert.Equal(t, june3, snap.GeneratedAt)

	require.NoError(t, svc.OnTransition(ctx, leave.LeaveRequest{RejectedAt: decided(june3)}, leave.StatusOnHold, leave.StatusRejected))
	require.NoError(t, svc.OnTransition(ctx, leave.LeaveRequest{}, leave.StatusPending, leave.StatusCancelled))

	snap, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.PendingRequests)
	assert.Equal(t, int64(0), snap.OnHoldRequests)
	assert.Equal(t, int64(1), snap.RejectedThisMonth)
	assert.Equal(t, 0.5, snap.ApprovalRate)
}

func TestStats_DecisionsOutsideMonthAreNotCounted(t *testing.T) {
	ctx := context.Background()
	svc, counters := setupStats(&fakeSource{})

	may := time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)
	require.NoError(t, svc.OnTransition(ctx, leave.LeaveRequest{ApprovedAt: &may}, leave.StatusOnHold, leave.StatusApproved))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.ApprovedThisMonth)
	assert.Equal(t, 0.0, snap.ApprovalRate)

	values, _ := counters.GetAll(ctx)
	assert.Equal(t, int64(1), values[stats.ApprovedField("2024-05")])
}

func TestStats_ApprovalRateRounding(t *testing.T) {
	ctx := context.Background()
	svc, counters := setupStats(&fakeSource{})
	require.NoError(t, counters.Replace(ctx, map[string]int64{
		stats.ApprovedField("2024-06"): 2,
		stats.RejectedField("2024-06"): 1,
	}))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.6667, snap.ApprovalRate)
}

// gatedSource holds CountOnLeave until release is closed.
type gatedSource struct {
	*fakeSource
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) CountOnLeave(ctx context.Context, day time.Time) (int64, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return g.fakeSource.CountOnLeave(ctx, day)
}

func TestStats_SnapshotSurvivesCancelledCaller(t *testing.T) {
	src := &gatedSource{
		fakeSource: &fakeSource{onLeave: 4},
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	svc := stats.NewService(stats.NewMemoryCounters(), src, clock.NewFixed(june3))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(firstCtx)
		firstErr <- err
	}()
	<-src.entered

	type result struct {
		snap stats.DashboardStats
		err  error
	}
	second := make(chan result, 1)
	go func() {
		snap, err := svc.Snapshot(context.Background())
		second <- result{snap, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(src.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, int64(4), got.snap.OnLeaveToday)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.calls)
}

func TestStats_NegativeCountersReadAsZero(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupStats(&fakeSource{})
	require.NoError(t, svc.OnTransition(ctx, leave.LeaveRequest{}, leave.StatusPending, leave.StatusCancelled))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.PendingRequests)
}

func TestStats_RecomputeFromScratch(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{
		byStatus: map[string]int64{leave.StatusPending: 4, leave.StatusOnHold: 2},
		decided:  map[string]int64{leave.StatusApproved: 3, leave.StatusRejected: 1},
		onLeave:  2,
	}
	svc, counters := setupStats(src)

	// drift: a lost increment and a duplicated one
	require.NoError(t, counters.Replace(ctx, map[string]int64{stats.FieldPending: 3, stats.FieldOnHold: 3}))

	got, err := svc.RecomputeFromScratch(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.DashboardStats{
		PendingRequests:   4,
		OnHoldRequests:    2,
		ApprovedThisMonth: 3,
		RejectedThisMonth: 1,
		OnLeaveToday:      2,
		ApprovalRate:      0.75,
		GeneratedAt:       june3,
	}, got)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, snap)
}

func TestStats_RecomputeSourceError(t *testing.T) {
	ctx := context.Background()
	svc, counters := setupStats(&fakeSource{err: errors.New("db down")})
	require.NoError(t, counters.Replace(ctx, map[string]int64{stats.FieldPending: 7}))

	_, err := svc.RecomputeFromScratch(ctx)
	require.Error(t, err)

	values, _ := counters.GetAll(ctx)
	assert.Equal(t, int64(7), values[stats.FieldPending])
}

func TestStats_OnLeaveTodayIsLive(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{onLeave: 5}
	svc, _ := setupStats(src)

	n, err := svc.OnLeaveToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	src.mu.Lock()
	src.onLeave = 6
	src.mu.Unlock()

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), snap.OnLeaveToday)
}

func TestStats_ConcurrentUpdatesAndReads(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupStats(&fakeSource{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.OnSubmitted(ctx, leave.LeaveRequest{}))
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Snapshot(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.PendingRequests)
}
