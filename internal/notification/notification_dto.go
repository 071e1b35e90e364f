package notification

import "time"

type DispatchInput struct {
	LeaveRequestID string
	RecipientIDs   []string
	EventType      string
	// EventKey defaults to EventType when empty.
	EventKey string
	Subject  string
	Message  string
}

type Page struct {
	Page     int
	PageSize int
}

type ListResult struct {
	Items []Notification
	Total int64
}

type NotificationResponse struct {
	ID             string  `json:"id"`
	LeaveRequestID string  `json:"leave_request_id"`
	RecipientID    string  `json:"recipient_id"`
	EventType      string  `json:"event_type"`
	Message        string  `json:"message"`
	IsRead         bool    `json:"is_read"`
	ReadAt         *string `json:"read_at,omitempty"`
	Priority       string  `json:"priority"`
	CreatedAt      string  `json:"created_at"`
}

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func ToResponse(n Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:             n.ID.String(),
		LeaveRequestID: n.LeaveRequestID.String(),
		RecipientID:    n.RecipientID.String(),
		EventType:      n.EventType,
		Message:        n.Message,
		IsRead:         n.IsRead,
		Priority:       n.Priority,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		v := n.ReadAt.Format(time.RFC3339)
		resp.ReadAt = &v
	}
	return resp
}

func ToListResponse(items []Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, ToResponse(n))
	}
	return out
}
