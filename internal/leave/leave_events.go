package leave

import (
	"context"
	"encoding/json"
	"time"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/messaging/kafka"
	"go-hris-leave/internal/shared/contextutil"

	"github.com/google/uuid"
)

const AggregateType = "leave_request"

// LifecycleEvent describes req right after a submission (action == "") or a
// transition out of from.
func LifecycleEvent(req LeaveRequest, action, from, actorID, comments string, at time.Time) events.LeaveLifecycleEvent {
	eventType := events.LeaveTransitioned
	if action == "" {
		eventType = events.LeaveSubmitted
	}
	return events.LeaveLifecycleEvent{
		EventType:      eventType,
		LeaveRequestID: req.ID.String(),
		RequestNumber:  req.RequestNumber,
		EmployeeID:     req.EmployeeID.String(),
		EmployeeName:   req.EmployeeName,
		LeaveType:      req.LeaveType,
		FromDate:       req.FromDate.Format(dateLayout),
		ToDate:         req.ToDate.Format(dateLayout),
		RecipientIDs:   append([]string{}, req.RecipientIDs...),
		Action:         action,
		FromStatus:     from,
		ToStatus:       req.Status,
		ActorID:        actorID,
		Comments:       comments,
		Version:        req.Version,
		OccurredAt:     at,
	}
}

func newOutboxEvent(ctx context.Context, evt events.LeaveLifecycleEvent) (*kafka.OutboxEvent, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: AggregateType,
		AggregateID:   evt.LeaveRequestID,
		EventType:     evt.EventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
		CreatedAt:     evt.OccurredAt,
		UpdatedAt:     evt.OccurredAt,
	}, nil
}
