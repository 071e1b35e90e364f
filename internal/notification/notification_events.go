package notification

import (
	"fmt"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/leave"
)

var actionEvents = map[string]string{
	leave.ActionApprove:        EventApproved,
	leave.ActionReject:         EventRejected,
	leave.ActionHold:           EventOnHold,
	leave.ActionRequestDetails: EventDetailsRequested,
	leave.ActionCancel:         EventCancelled,
}

// EventKey is the dedup key stored next to the event type. Details can be
// requested repeatedly while on hold, so each request is keyed by the version
// the transition produced.
func EventKey(eventType string, version int) string {
	if eventType == EventDetailsRequested {
		return fmt.Sprintf("%s#v%d", eventType, version)
	}
	return eventType
}

// FromLifecycle builds the dispatch for a lifecycle event. The live workflow
// and the Kafka consumer both go through here, so replays hit the same keys.
func FromLifecycle(evt events.LeaveLifecycleEvent) (DispatchInput, bool) {
	var (
		eventType  string
		recipients []string
	)
	switch evt.EventType {
	case events.LeaveSubmitted:
		eventType = EventRequestSubmitted
		recipients = evt.RecipientIDs
	case events.LeaveTransitioned:
		t, ok := actionEvents[evt.Action]
		if !ok {
			return DispatchInput{}, false
		}
		eventType = t
		// The requester is the actor on cancel; tell the approvers instead.
		if evt.Action == leave.ActionCancel {
			recipients = evt.RecipientIDs
		} else {
			recipients = []string{evt.EmployeeID}
		}
	default:
		return DispatchInput{}, false
	}

	return DispatchInput{
		LeaveRequestID: evt.LeaveRequestID,
		RecipientIDs:   recipients,
		EventType:      eventType,
		EventKey:       EventKey(eventType, evt.Version),
		Subject:        subjectFor(eventType, evt.RequestNumber),
		Message:        messageFor(eventType, evt),
	}, true
}

func subjectFor(eventType, requestNumber string) string {
	switch eventType {
	case EventRequestSubmitted:
		return "New leave request " + requestNumber
	case EventApproved:
		return "Leave request " + requestNumber + " approved"
	case EventRejected:
		return "Leave request " + requestNumber + " rejected"
	case EventOnHold:
		return "Leave request " + requestNumber + " on hold"
	case EventDetailsRequested:
		return "More details needed for " + requestNumber
	case EventCancelled:
		return "Leave request " + requestNumber + " cancelled"
	}
	return "Leave request " + requestNumber
}

func messageFor(eventType string, evt events.LeaveLifecycleEvent) string {
	period := evt.FromDate
	if evt.ToDate != evt.FromDate {
		period = evt.FromDate + " to " + evt.ToDate
	}

	var msg string
	switch eventType {
	case EventRequestSubmitted:
		msg = fmt.Sprintf("%s requested %s leave for %s.", evt.EmployeeName, evt.LeaveType, period)
	case EventApproved:
		msg = fmt.Sprintf("Your %s leave for %s was approved.", evt.LeaveType, period)
	case EventRejected:
		msg = fmt.Sprintf("Your %s leave for %s was rejected.", evt.LeaveType, period)
	case EventOnHold:
		msg = fmt.Sprintf("Your %s leave for %s was put on hold.", evt.LeaveType, period)
	case EventDetailsRequested:
		msg = fmt.Sprintf("More details are needed for your %s leave for %s.", evt.LeaveType, period)
	case EventCancelled:
		msg = fmt.Sprintf("%s cancelled the %s leave for %s.", evt.EmployeeName, evt.LeaveType, period)
	}
	if evt.Comments != "" {
		msg += " Comment: " + evt.Comments
	}
	return msg
}
