package stats

import "time"

type DashboardStats struct {
	PendingRequests   int64     `json:"pendingRequests"`
	OnHoldRequests    int64     `json:"onHoldRequests"`
	ApprovedThisMonth int64     `json:"approvedThisMonth"`
	RejectedThisMonth int64     `json:"rejectedThisMonth"`
	OnLeaveToday      int64     `json:"onLeaveToday"`
	ApprovalRate      float64   `json:"approvalRate"`
	GeneratedAt       time.Time `json:"generatedAt"`
}
