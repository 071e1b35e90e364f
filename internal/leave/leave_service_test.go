package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-hris-leave/internal/directory"
	"go-hris-leave/internal/directory/directorytest"
	"go-hris-leave/internal/events"
	"go-hris-leave/internal/leave"
	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/leave/leavetest"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeDeps struct {
	svc       leave.Service
	repo      *leavetest.Repository
	dir       *directorytest.Directory
	clock     *clock.Fixed
	requester string
	reviewer  string
	r1, r2    string
}

func setupStore(t *testing.T) *storeDeps {
	t.Helper()
	d := &storeDeps{
		repo:      leavetest.NewRepository(),
		clock:     clock.NewFixed(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)),
		requester: uuid.NewString(),
		reviewer:  uuid.NewString(),
		r1:        uuid.NewString(),
		r2:        uuid.NewString(),
	}
	d.dir = directorytest.New(
		directory.Employee{ID: d.requester, Name: "Dewi Lestari", Email: "dewi@corp.test", Department: "Finance", Role: "employee"},
		directory.Employee{ID: d.reviewer, Name: "Rudi Hartono", Email: "rudi@corp.test", Department: "Finance", Role: "manager"},
		directory.Employee{ID: d.r1, Name: "Sari", Email: "sari@corp.test", Department: "HR", Role: "hr"},
		directory.Employee{ID: d.r2, Name: "Budi", Email: "budi@corp.test", Department: "Finance", Role: "manager"},
	)
	d.svc = leave.NewService(d.repo, leavetest.NewCounter(), d.dir, d.clock)
	return d
}

func (d *storeDeps) draft() leave.SubmitLeaveRequest {
	return leave.SubmitLeaveRequest{
		EmployeeID:   d.requester,
		LeaveType:    leave.TypeAnnual,
		FromDate:     "2024-06-10",
		ToDate:       "2024-06-12",
		Reason:       "Family trip",
		RecipientIDs: []string{d.r1, d.r2},
	}
}

func (d *storeDeps) submit(t *testing.T) leave.LeaveRequest {
	t.Helper()
	req, err := d.svc.Submit(context.Background(), d.draft())
	require.NoError(t, err)
	return req
}

func (d *storeDeps) apply(id, action, actor, comments string) (leave.TransitionResult, error) {
	return d.svc.ApplyTransition(context.Background(), leave.TransitionInput{
		LeaveID:  id,
		Action:   action,
		ActorID:  actor,
		Comments: comments,
	})
}

func TestLeaveService_Submit(t *testing.T) {
	t.Run("creates pending request with computed duration", func(t *testing.T) {
		d := setupStore(t)

		req := d.submit(t)

		assert.Equal(t, leave.StatusPending, req.Status)
		assert.True(t, decimal.NewFromInt(3).Equal(req.Duration), "duration %s", req.Duration)
		assert.Equal(t, leave.DurationFullDay, req.DurationType)
		assert.Equal(t, "LV-2024-000001", req.RequestNumber)
		assert.Equal(t, 1, req.Version)
		assert.Equal(t, "Dewi Lestari", req.EmployeeName)
		assert.Equal(t, "dewi@corp.test", req.EmployeeEmail)
		assert.Equal(t, "Finance", req.Department)
		assert.Equal(t, leave.IDList{d.r1, d.r2}, req.RecipientIDs)
		assert.Equal(t, d.clock.Now(), req.SubmittedAt)

		stored, err := d.svc.Get(context.Background(), req.ID.String())
		require.NoError(t, err)
		assert.Equal(t, req.RequestNumber, stored.RequestNumber)

		outbox := d.repo.Outbox()
		require.Len(t, outbox, 1)
		assert.Equal(t, events.LeaveSubmitted, outbox[0].EventType)
		assert.Equal(t, events.LeaveLifecycleTopic, outbox[0].Topic)
		assert.Equal(t, req.ID.String(), outbox[0].AggregateID)
	})

	t.Run("request numbers increase per year", func(t *testing.T) {
		d := setupStore(t)
		first := d.submit(t)
		second := d.submit(t)

		assert.Equal(t, "LV-2024-000001", first.RequestNumber)
		assert.Equal(t, "LV-2024-000002", second.RequestNumber)
	})

	t.Run("recipients are de-duplicated in order", func(t *testing.T) {
		d := setupStore(t)
		draft := d.draft()
		draft.RecipientIDs = []string{d.r2, d.r1, d.r2, " ", d.r1}

		req, err := d.svc.Submit(context.Background(), draft)
		require.NoError(t, err)
		assert.Equal(t, leave.IDList{d.r2, d.r1}, req.RecipientIDs)
	})

	t.Run("half day defaults to morning and counts half", func(t *testing.T) {
		d := setupStore(t)
		draft := d.draft()
		draft.LeaveType = leave.TypeHalfDay
		draft.ToDate = draft.FromDate

		req, err := d.svc.Submit(context.Background(), draft)
		require.NoError(t, err)
		assert.Equal(t, leave.DurationHalfDayMorning, req.DurationType)
		assert.True(t, decimal.NewFromFloat(0.5).Equal(req.Duration))
	})

	t.Run("explicit duration within range is kept", func(t *testing.T) {
		d := setupStore(t)
		draft := d.draft()
		explicit := decimal.NewFromInt(2)
		draft.Duration = &explicit

		req, err := d.svc.Submit(context.Background(), draft)
		require.NoError(t, err)
		assert.True(t, explicit.Equal(req.Duration))
	})

	zero := decimal.Zero
	tooLong := decimal.NewFromInt(4)
	belowMin := decimal.NewFromFloat(0.5)

	cases := []struct {
		name   string
		mutate func(d *storeDeps, r *leave.SubmitLeaveRequest)
		want   error
	}{
		{"from after to", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.FromDate, r.ToDate = "2024-06-15", "2024-06-10" }, leaveerrors.ErrInvalidDateRange},
		{"bad date", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.FromDate = "10/06/2024" }, leaveerrors.ErrInvalidDateFormat},
		{"empty recipients", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.RecipientIDs = nil }, leaveerrors.ErrRecipientsRequired},
		{"unknown leave type", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.LeaveType = "Vacation" }, leaveerrors.ErrInvalidLeaveType},
		{"unknown duration type", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.DurationType = "Quarter-Day" }, leaveerrors.ErrInvalidDurationType},
		{"half day across days", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.DurationType = leave.DurationHalfDayAfternoon }, leaveerrors.ErrHalfDaySpansDays},
		{"half day type with full day duration", func(_ *storeDeps, r *leave.SubmitLeaveRequest) {
			r.LeaveType, r.DurationType, r.ToDate = leave.TypeHalfDay, leave.DurationFullDay, r.FromDate
		}, leaveerrors.ErrHalfDayNeedsHalfDayDuration},
		{"zero duration", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.Duration = &zero }, leaveerrors.ErrInvalidDuration},
		{"duration below full day", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.Duration = &belowMin }, leaveerrors.ErrDurationBelowMinimum},
		{"duration longer than range", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.Duration = &tooLong }, leaveerrors.ErrDurationExceedsRange},
		{"range longer than the duration column holds", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.FromDate, r.ToDate = "2000-01-01", "2027-05-20" }, leaveerrors.ErrLeaveTooLong},
		{"malformed requester", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.EmployeeID = "abc" }, leaveerrors.ErrInvalidEmployeeID},
		{"unknown requester", func(_ *storeDeps, r *leave.SubmitLeaveRequest) { r.EmployeeID = uuid.NewString() }, leaveerrors.ErrUnknownEmployee},
		{"unknown recipient", func(d *storeDeps, r *leave.SubmitLeaveRequest) { r.RecipientIDs = []string{d.r1, uuid.NewString()} }, leaveerrors.ErrUnknownRecipient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := setupStore(t)
			draft := d.draft()
			tc.mutate(d, &draft)

			_, err := d.svc.Submit(context.Background(), draft)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
			assert.Equal(t, 0, d.repo.Len())
			assert.Empty(t, d.repo.Outbox())
		})
	}

	t.Run("directory outage is not a validation error", func(t *testing.T) {
		d := setupStore(t)
		d.dir.FailWith(errors.New("directory down"))

		_, err := d.svc.Submit(context.Background(), d.draft())
		require.Error(t, err)
		assert.False(t, apperror.HasCode(err, apperror.CodeInvalidInput))
		assert.Equal(t, 0, d.repo.Len())
	})
}

func TestLeaveService_ApplyTransition(t *testing.T) {
	sequences := []struct {
		name    string
		actions []string
		want    string
	}{
		{"approve", []string{leave.ActionApprove}, leave.StatusApproved},
		{"reject", []string{leave.ActionReject}, leave.StatusRejected},
		{"hold", []string{leave.ActionHold}, leave.StatusOnHold},
		{"hold then approve", []string{leave.ActionHold, leave.ActionApprove}, leave.StatusApproved},
		{"hold then reject", []string{leave.ActionHold, leave.ActionReject}, leave.StatusRejected},
		{"hold, details twice, approve", []string{leave.ActionHold, leave.ActionRequestDetails, leave.ActionRequestDetails, leave.ActionApprove}, leave.StatusApproved},
	}

	for _, tc := range sequences {
		t.Run("legal "+tc.name, func(t *testing.T) {
			d := setupStore(t)
			req := d.submit(t)

			for i, action := range tc.actions {
				res, err := d.apply(req.ID.String(), action, d.reviewer, "note")
				require.NoError(t, err, "step %d (%s)", i, action)
				assert.Equal(t, i+2, res.Request.Version)
			}

			got, err := d.svc.Get(context.Background(), req.ID.String())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)

			history, err := d.svc.History(context.Background(), req.ID.String())
			require.NoError(t, err)
			require.Len(t, history, len(tc.actions))
			for i, h := range history {
				assert.Equal(t, tc.actions[i], h.Action)
			}
		})
	}

	t.Run("cancel by requester", func(t *testing.T) {
		d := setupStore(t)
		req := d.submit(t)

		res, err := d.apply(req.ID.String(), leave.ActionCancel, d.requester, "")
		require.NoError(t, err)
		assert.Equal(t, leave.StatusCancelled, res.Request.Status)
		assert.Equal(t, leave.StatusPending, res.FromStatus)
		assert.NotNil(t, res.Request.CancelledAt)
		assert.Nil(t, res.Request.ReviewerID)
	})

	t.Run("cancel by someone else", func(t *testing.T) {
		d := setupStore(t)
		req := d.submit(t)

		_, err := d.apply(req.ID.String(), leave.ActionCancel, d.reviewer, "")
		assert.ErrorIs(t, err, leaveerrors.ErrOnlyRequesterCanCancel)
	})

	t.Run("approve records reviewer and timestamp", func(t *testing.T) {
		d := setupStore(t)
		req := d.submit(t)
		d.clock.Advance(time.Hour)

		res, err := d.apply(req.ID.String(), leave.ActionApprove, d.reviewer, "")
		require.NoError(t, err)
		require.NotNil(t, res.Request.ApprovedAt)
		assert.Equal(t, d.clock.Now(), *res.Request.ApprovedAt)
		require.NotNil(t, res.Request.ReviewerID)
		assert.Equal(t, d.reviewer, res.Request.ReviewerID.String())
		assert.Nil(t, res.Request.ReviewerComments)
	})

	illegal := []struct {
		name  string
		setup []string
		act   string
	}{
		{"approved to rejected", []string{leave.ActionApprove}, leave.ActionReject},
		{"rejected to approved", []string{leave.ActionReject}, leave.ActionApprove},
		{"approve twice", []string{leave.ActionApprove}, leave.ActionApprove},
		{"details while pending", nil, leave.ActionRequestDetails},
		{"hold while on hold", []string{leave.ActionHold}, leave.ActionHold},
		{"cancel while on hold", []string{leave.ActionHold}, leave.ActionCancel},
		{"cancel after approval", []string{leave.ActionApprove}, leave.ActionCancel},
	}

	for _, tc := range illegal {
		t.Run("illegal "+tc.name, func(t *testing.T) {
			d := setupStore(t)
			req := d.submit(t)
			for _, a := range tc.setup {
				_, err := d.apply(req.ID.String(), a, d.reviewer, "note")
				require.NoError(t, err)
			}
			before, _ := d.svc.Get(context.Background(), req.ID.String())

			actor := d.reviewer
			if tc.act == leave.ActionCancel {
				actor = d.requester
			}
			_, err := d.apply(req.ID.String(), tc.act, actor, "note")
			assert.ErrorIs(t, err, leaveerrors.ErrInvalidTransition)
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

			after, _ := d.svc.Get(context.Background(), req.ID.String())
			assert.Equal(t, before.Status, after.Status)
			assert.Equal(t, before.Version, after.Version)
		})
	}

	for _, action := range []string{leave.ActionReject, leave.ActionHold, leave.ActionRequestDetails} {
		t.Run(action+" requires comment", func(t *testing.T) {
			d := setupStore(t)
			req := d.submit(t)
			if action == leave.ActionRequestDetails {
				_, err := d.apply(req.ID.String(), leave.ActionHold, d.reviewer, "need doctor's note")
				require.NoError(t, err)
			}
			before, _ := d.svc.Get(context.Background(), req.ID.String())

			_, err := d.apply(req.ID.String(), action, d.reviewer, "   ")
			assert.ErrorIs(t, err, leaveerrors.ErrCommentRequired)

			after, _ := d.svc.Get(context.Background(), req.ID.String())
			assert.Equal(t, before.Status, after.Status)
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		d := setupStore(t)
		_, err := d.apply(uuid.NewString(), leave.ActionApprove, d.reviewer, "")
		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)

		_, err = d.apply("nope", leave.ActionApprove, d.reviewer, "")
		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
	})

	t.Run("unknown action", func(t *testing.T) {
		d := setupStore(t)
		req := d.submit(t)
		_, err := d.apply(req.ID.String(), "escalate", d.reviewer, "")
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidAction)
	})

	t.Run("storage failure leaves status unchanged", func(t *testing.T) {
		d := setupStore(t)
		req := d.submit(t)
		boom := errors.New("connection refused")
		d.repo.FailUpdate = boom

		_, err := d.apply(req.ID.String(), leave.ActionApprove, d.reviewer, "")
		assert.ErrorIs(t, err, boom)

		got, _ := d.svc.Get(context.Background(), req.ID.String())
		assert.Equal(t, leave.StatusPending, got.Status)
	})

	t.Run("transition writes lifecycle outbox event", func(t *testing.T) {
		d := setupStore(t)
		req := d.submit(t)
		_, err := d.apply(req.ID.String(), leave.ActionHold, d.reviewer, "need doctor's note")
		require.NoError(t, err)

		outbox := d.repo.Outbox()
		require.Len(t, outbox, 2)
		assert.Equal(t, events.LeaveTransitioned, outbox[1].EventType)
	})
}

func TestLeaveService_ConcurrentDecisions(t *testing.T) {
	for i := 0; i < 20; i++ {
		d := setupStore(t)
		req := d.submit(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, action := range []string{leave.ActionApprove, leave.ActionReject} {
			wg.Add(1)
			go func(j int, action string) {
				defer wg.Done()
				_, errs[j] = d.apply(req.ID.String(), action, d.reviewer, "decided")
			}(j, action)
		}
		wg.Wait()

		var ok, lost int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, leaveerrors.ErrInvalidTransition):
				lost++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, lost)

		history, err := d.svc.History(context.Background(), req.ID.String())
		require.NoError(t, err)
		assert.Len(t, history, 1)
	}
}

func TestLeaveService_Lists(t *testing.T) {
	d := setupStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		req := d.submit(t)
		ids = append(ids, req.ID.String())
		if i%2 == 0 {
			d.clock.Advance(time.Minute)
		}
	}
	_, err := d.apply(ids[0], leave.ActionApprove, d.reviewer, "")
	require.NoError(t, err)

	t.Run("pages by employee never overlap", func(t *testing.T) {
		seen := map[string]bool{}
		var prev *leave.LeaveRequest
		for page := 1; page <= 3; page++ {
			res, err := d.svc.ListByEmployee(ctx, d.requester, leave.Page{Page: page, PageSize: 2})
			require.NoError(t, err)
			assert.EqualValues(t, 5, res.Total)
			for i := range res.Items {
				item := res.Items[i]
				assert.False(t, seen[item.ID.String()], "duplicate %s", item.ID)
				seen[item.ID.String()] = true
				if prev != nil {
					assert.False(t, item.SubmittedAt.After(prev.SubmittedAt))
				}
				prev = &item
			}
		}
		assert.Len(t, seen, 5)
	})

	t.Run("by status", func(t *testing.T) {
		res, err := d.svc.ListByStatus(ctx, leave.StatusApproved, leave.Page{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, ids[0], res.Items[0].ID.String())

		res, err = d.svc.ListByStatus(ctx, leave.StatusPending, leave.Page{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 4, res.Total)
	})

	t.Run("invalid filters", func(t *testing.T) {
		_, err := d.svc.ListByStatus(ctx, "Approved ", leave.Page{})
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatus)

		_, err = d.svc.ListByEmployee(ctx, "x", leave.Page{})
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidEmployeeID)
	})
}
