package notificationerrors

import (
	"net/http"

	"go-hris-leave/internal/shared/apperror"
)

var (
	ErrNotificationNotFound = apperror.New(
		apperror.CodeNotFound,
		"notification not found",
		http.StatusNotFound,
	)
	ErrInvalidRequestID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrInvalidRecipientID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid recipient id",
		http.StatusBadRequest,
	)
	ErrRecipientsRequired = apperror.New(
		apperror.CodeInvalidInput,
		"at least one recipient is required",
		http.StatusBadRequest,
	)
	ErrInvalidEventType = apperror.New(
		apperror.CodeInvalidInput,
		"invalid notification event type",
		http.StatusBadRequest,
	)
	// ErrDeliveryFailure is logged and counted, never returned to callers.
	ErrDeliveryFailure = apperror.New(
		apperror.CodeDeliveryFailure,
		"notification delivery failed",
		http.StatusServiceUnavailable,
	)
)
