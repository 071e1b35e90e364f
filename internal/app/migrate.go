package app

import (
	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/messaging/kafka"
	"go-hris-leave/internal/notification"
	"go-hris-leave/internal/shared/counter"

	"gorm.io/gorm"
)

// Migrate creates the tables this service owns. Directory tables belong to
// the HR core schema and are not touched.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&leave.LeaveRequest{},
		&leave.LeaveTransition{},
		&notification.Notification{},
		&kafka.OutboxEvent{},
		&counter.SequenceCounter{},
	)
}
