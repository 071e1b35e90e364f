package events

import "time"

const LeaveLifecycleTopic = "hr.leave.lifecycle.v1"

const (
	LeaveSubmitted    = "leave.submitted"
	LeaveTransitioned = "leave.transitioned"
)

// LeaveLifecycleEvent carries enough of the request to rebuild its
// notifications without reading the store.
type LeaveLifecycleEvent struct {
	EventType      string    `json:"event_type"`
	LeaveRequestID string    `json:"leave_request_id"`
	RequestNumber  string    `json:"request_number"`
	EmployeeID     string    `json:"employee_id"`
	EmployeeName   string    `json:"employee_name"`
	LeaveType      string    `json:"leave_type"`
	FromDate       string    `json:"from_date"`
	ToDate         string    `json:"to_date"`
	RecipientIDs   []string  `json:"recipient_ids"`
	Action         string    `json:"action,omitempty"`
	FromStatus     string    `json:"from_status,omitempty"`
	ToStatus       string    `json:"to_status"`
	ActorID        string    `json:"actor_id"`
	Comments       string    `json:"comments,omitempty"`
	Version        int       `json:"version"`
	OccurredAt     time.Time `json:"occurred_at"`
}
