package leave

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "Pending"
	StatusApproved  = "Approved"
	StatusRejected  = "Rejected"
	StatusOnHold    = "OnHold"
	StatusCancelled = "Cancelled"
)

const (
	TypeAnnual    = "Annual"
	TypeSick      = "Sick"
	TypeCasual    = "Casual"
	TypeHalfDay   = "Half-Day"
	TypeCompOff   = "Comp-Off"
	TypeMaternity = "Maternity"
	TypePaternity = "Paternity"
	TypeUnpaid    = "Unpaid"
)

const (
	DurationFullDay          = "Full Day"
	DurationHalfDayMorning   = "Half-Day-Morning"
	DurationHalfDayAfternoon = "Half-Day-Afternoon"
)

type LeaveRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestNumber string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_leave_requests_number"`
	EmployeeID    uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_employee_submitted,priority:1"`
	EmployeeName  string    `gorm:"type:varchar(150);not null"`
	EmployeeEmail string    `gorm:"type:varchar(150)"`
	Department    string    `gorm:"type:varchar(100)"`

	LeaveType     string          `gorm:"type:varchar(20);not null"`
	FromDate      time.Time       `gorm:"type:date;not null;index:idx_leave_requests_dates,priority:1"`
	ToDate        time.Time       `gorm:"type:date;not null;index:idx_leave_requests_dates,priority:2"`
	Duration      decimal.Decimal `gorm:"type:numeric(5,1);not null"`
	DurationType  string          `gorm:"type:varchar(20);not null"`
	Reason        string          `gorm:"type:text"`
	AttachmentRef *string         `gorm:"type:varchar(255)"`

	Status           string     `gorm:"type:varchar(20);not null;index:idx_leave_requests_status_submitted,priority:1"`
	RecipientIDs     IDList     `gorm:"type:jsonb;not null"`
	ReviewerID       *uuid.UUID `gorm:"type:uuid"`
	ReviewerComments *string    `gorm:"type:text"`
	Version          int        `gorm:"not null"`

	SubmittedAt time.Time `gorm:"not null;index:idx_leave_requests_employee_submitted,priority:2,sort:desc;index:idx_leave_requests_status_submitted,priority:2,sort:desc"`
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
	HeldAt      *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time
}

func (LeaveRequest) TableName() string { return "leave_requests" }

// IsRecipient reports whether id was chosen as a recipient at submission.
func (r LeaveRequest) IsRecipient(id string) bool {
	for _, rid := range r.RecipientIDs {
		if rid == id {
			return true
		}
	}
	return false
}

// LeaveTransition is one row of a request's status history.
type LeaveTransition struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	LeaveRequestID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_transitions_request_created,priority:1"`
	Action         string    `gorm:"type:varchar(20);not null"`
	FromStatus     string    `gorm:"type:varchar(20);not null"`
	ToStatus       string    `gorm:"type:varchar(20);not null"`
	ActorID        uuid.UUID `gorm:"type:uuid;not null"`
	Comments       *string   `gorm:"type:text"`
	Version        int       `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_leave_transitions_request_created,priority:2"`
}

func (LeaveTransition) TableName() string { return "leave_transitions" }

// IDList is an ordered list of ids persisted as a JSON array.
type IDList []string

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IDList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("leave: unsupported recipient_ids column type")
	}
	return json.Unmarshal(raw, (*[]string)(l))
}
