package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// SubmitLeaveRequest is the submission draft. EmployeeID defaults to the
// authenticated caller when empty.
type SubmitLeaveRequest struct {
	EmployeeID    string           `json:"employee_id" binding:"omitempty,uuid"`
	LeaveType     string           `json:"leave_type" binding:"required"`
	FromDate      string           `json:"from_date" binding:"required,datetime=2006-01-02"`
	ToDate        string           `json:"to_date" binding:"required,datetime=2006-01-02"`
	DurationType  string           `json:"duration_type"`
	Duration      *decimal.Decimal `json:"duration"`
	Reason        string           `json:"reason"`
	AttachmentRef *string          `json:"attachment_ref"`
	RecipientIDs  []string         `json:"recipient_ids"`
}

type TransitionRequest struct {
	Comments string `json:"comments"`
}

type TransitionInput struct {
	LeaveID  string
	Action   string
	ActorID  string
	Comments string
}

type TransitionResult struct {
	Request    LeaveRequest
	FromStatus string
}

type Page struct {
	Page     int
	PageSize int
}

func (p Page) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.limit()
}

func (p Page) limit() int {
	if p.PageSize < 1 {
		return 10
	}
	return p.PageSize
}

type ListResult struct {
	Items []LeaveRequest
	Total int64
}

type LeaveResponse struct {
	ID               string          `json:"id"`
	RequestNumber    string          `json:"request_number"`
	EmployeeID       string          `json:"employee_id"`
	EmployeeName     string          `json:"employee_name"`
	EmployeeEmail    string          `json:"employee_email"`
	Department       string          `json:"department"`
	LeaveType        string          `json:"leave_type"`
	FromDate         string          `json:"from_date"`
	ToDate           string          `json:"to_date"`
	Duration         decimal.Decimal `json:"duration"`
	DurationType     string          `json:"duration_type"`
	Reason           string          `json:"reason"`
	AttachmentRef    *string         `json:"attachment_ref,omitempty"`
	Status           string          `json:"status"`
	RecipientIDs     []string        `json:"recipient_ids"`
	ReviewerID       *string         `json:"reviewer_id,omitempty"`
	ReviewerComments *string         `json:"reviewer_comments,omitempty"`
	Version          int             `json:"version"`
	SubmittedAt      string          `json:"submitted_at"`
	ApprovedAt       *string         `json:"approved_at,omitempty"`
	RejectedAt       *string         `json:"rejected_at,omitempty"`
	HeldAt           *string         `json:"held_at,omitempty"`
	CancelledAt      *string         `json:"cancelled_at,omitempty"`
}

type TransitionResponse struct {
	ID         string  `json:"id"`
	Action     string  `json:"action"`
	FromStatus string  `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	ActorID    string  `json:"actor_id"`
	Comments   *string `json:"comments,omitempty"`
	Version    int     `json:"version"`
	CreatedAt  string  `json:"created_at"`
}

func ToResponse(r LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:               r.ID.String(),
		RequestNumber:    r.RequestNumber,
		EmployeeID:       r.EmployeeID.String(),
		EmployeeName:     r.EmployeeName,
		EmployeeEmail:    r.EmployeeEmail,
		Department:       r.Department,
		LeaveType:        r.LeaveType,
		FromDate:         r.FromDate.Format(dateLayout),
		ToDate:           r.ToDate.Format(dateLayout),
		Duration:         r.Duration,
		DurationType:     r.DurationType,
		Reason:           r.Reason,
		AttachmentRef:    r.AttachmentRef,
		Status:           r.Status,
		RecipientIDs:     append([]string{}, r.RecipientIDs...),
		ReviewerComments: r.ReviewerComments,
		Version:          r.Version,
		SubmittedAt:      r.SubmittedAt.Format(time.RFC3339),
		ApprovedAt:       formatTime(r.ApprovedAt),
		RejectedAt:       formatTime(r.RejectedAt),
		HeldAt:           formatTime(r.HeldAt),
		CancelledAt:      formatTime(r.CancelledAt),
	}
	if r.ReviewerID != nil {
		v := r.ReviewerID.String()
		resp.ReviewerID = &v
	}
	return resp
}

func ToListResponse(items []LeaveRequest) []LeaveResponse {
	out := make([]LeaveResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ToResponse(item))
	}
	return out
}

func ToTransitionResponses(items []LeaveTransition) []TransitionResponse {
	out := make([]TransitionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, TransitionResponse{
			ID:         t.ID.String(),
			Action:     t.Action,
			FromStatus: t.FromStatus,
			ToStatus:   t.ToStatus,
			ActorID:    t.ActorID.String(),
			Comments:   t.Comments,
			Version:    t.Version,
			CreatedAt:  t.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}
