package events

const NotificationDeliveryTopic = "hr.notification.delivery.v1"

type NotificationDeliveryMessage struct {
	NotificationID string `json:"notification_id"`
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	Priority       string `json:"priority"`
}
