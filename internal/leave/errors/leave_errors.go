package leaveerrors

import (
	"net/http"

	"go-hris-leave/internal/shared/apperror"
)

var (
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidLeaveID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrUnknownEmployee = apperror.New(
		apperror.CodeInvalidInput,
		"employee does not exist",
		http.StatusBadRequest,
	)
	ErrInvalidLeaveType = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave type",
		http.StatusBadRequest,
	)
	ErrInvalidDurationType = apperror.New(
		apperror.CodeInvalidInput,
		"invalid duration type",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"from_date must be before or equal to_date",
		http.StatusBadRequest,
	)
	ErrHalfDaySpansDays = apperror.New(
		apperror.CodeInvalidInput,
		"half-day leave must start and end on the same date",
		http.StatusBadRequest,
	)
	ErrHalfDayNeedsHalfDayDuration = apperror.New(
		apperror.CodeInvalidInput,
		"Half-Day leave requires a half-day duration type",
		http.StatusBadRequest,
	)
	ErrInvalidDuration = apperror.New(
		apperror.CodeInvalidInput,
		"duration must be positive",
		http.StatusBadRequest,
	)
	ErrDurationBelowMinimum = apperror.New(
		apperror.CodeInvalidInput,
		"duration is shorter than the duration type allows",
		http.StatusBadRequest,
	)
	ErrDurationExceedsRange = apperror.New(
		apperror.CodeInvalidInput,
		"duration exceeds the requested date range",
		http.StatusBadRequest,
	)
	ErrLeaveTooLong = apperror.New(
		apperror.CodeInvalidInput,
		"leave may span at most 9999 days",
		http.StatusBadRequest,
	)
	ErrRecipientsRequired = apperror.New(
		apperror.CodeInvalidInput,
		"at least one recipient is required",
		http.StatusBadRequest,
	)
	ErrUnknownRecipient = apperror.New(
		apperror.CodeInvalidInput,
		"recipient does not exist",
		http.StatusBadRequest,
	)
	ErrCommentRequired = apperror.New(
		apperror.CodeInvalidInput,
		"comments are required for this action",
		http.StatusBadRequest,
	)
	ErrOnlyRequesterCanCancel = apperror.New(
		apperror.CodeInvalidInput,
		"only the requester can cancel a leave request",
		http.StatusBadRequest,
	)
	ErrInvalidAction = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave action",
		http.StatusBadRequest,
	)
	ErrInvalidStatus = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave status",
		http.StatusBadRequest,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeInvalidState,
		"leave request was already processed, please refresh",
		http.StatusConflict,
	)
)
