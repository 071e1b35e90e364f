package leave

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionApprove        = "approve"
	ActionReject         = "reject"
	ActionHold           = "hold"
	ActionRequestDetails = "request_details"
	ActionCancel         = "cancel"
)

type edge struct {
	from   string
	action string
}

var transitions = map[edge]string{
	{StatusPending, ActionApprove}:       StatusApproved,
	{StatusPending, ActionReject}:        StatusRejected,
	{StatusPending, ActionHold}:          StatusOnHold,
	{StatusPending, ActionCancel}:        StatusCancelled,
	{StatusOnHold, ActionApprove}:        StatusApproved,
	{StatusOnHold, ActionReject}:         StatusRejected,
	{StatusOnHold, ActionRequestDetails}: StatusOnHold,
}

// NextStatus returns the status reached by applying action to from.
func NextStatus(from, action string) (string, bool) {
	to, ok := transitions[edge{from, action}]
	return to, ok
}

func IsValidAction(action string) bool {
	switch action {
	case ActionApprove, ActionReject, ActionHold, ActionRequestDetails, ActionCancel:
		return true
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

func IsTerminal(status string) bool {
	return status == StatusApproved || status == StatusRejected || status == StatusCancelled
}

func commentRequired(action string) bool {
	switch action {
	case ActionReject, ActionHold, ActionRequestDetails:
		return true
	}
	return false
}

// StatusChange is a compare-and-swap against (ID, FromStatus, FromVersion).
type StatusChange struct {
	ID          uuid.UUID
	Action      string
	FromStatus  string
	FromVersion int
	ToStatus    string
	ActorID     uuid.UUID
	Comments    *string
	At          time.Time
}

// Apply mutates r the way the store's conditional update does.
func (c StatusChange) Apply(r *LeaveRequest) {
	r.Status = c.ToStatus
	r.Version = c.FromVersion + 1
	r.UpdatedAt = c.At

	at := c.At
	switch c.Action {
	case ActionApprove:
		r.ApprovedAt = &at
	case ActionReject:
		r.RejectedAt = &at
	case ActionHold:
		r.HeldAt = &at
	case ActionCancel:
		r.CancelledAt = &at
	}
	// The requester cancelling is not a review.
	if c.Action != ActionCancel {
		reviewer := c.ActorID
		r.ReviewerID = &reviewer
		r.ReviewerComments = c.Comments
	}
}

func (c StatusChange) columns() map[string]any {
	cols := map[string]any{
		"status":     c.ToStatus,
		"version":    c.FromVersion + 1,
		"updated_at": c.At,
	}
	switch c.Action {
	case ActionApprove:
		cols["approved_at"] = c.At
	case ActionReject:
		cols["rejected_at"] = c.At
	case ActionHold:
		cols["held_at"] = c.At
	case ActionCancel:
		cols["cancelled_at"] = c.At
	}
	if c.Action != ActionCancel {
		cols["reviewer_id"] = c.ActorID
		cols["reviewer_comments"] = c.Comments
	}
	return cols
}

func (c StatusChange) transition() LeaveTransition {
	return LeaveTransition{
		ID:             uuid.New(),
		LeaveRequestID: c.ID,
		Action:         c.Action,
		FromStatus:     c.FromStatus,
		ToStatus:       c.ToStatus,
		ActorID:        c.ActorID,
		Comments:       c.Comments,
		Version:        c.FromVersion + 1,
		CreatedAt:      c.At,
	}
}
