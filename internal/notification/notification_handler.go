package notification

import (
	"net/http"
	"strconv"

	notificationerrors "go-hris-leave/internal/notification/errors"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("notification.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("notification request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// List returns the caller's notifications, newest first. ?unread=true
// restricts it to unread ones.
func (h *Handler) List(c *gin.Context) {
	recipientID := c.GetString("employee_id")
	page, pageSize := response.PageParams(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	result, err := h.service.ListByRecipient(c.Request.Context(), recipientID, unreadOnly, Page{Page: page, PageSize: pageSize})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(result.Total, page, pageSize)
	response.Success(c, http.StatusOK, ToListResponse(result.Items), &meta)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), c.GetString("employee_id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, UnreadCountResponse{Unread: count}, nil)
}

// MarkRead only touches notifications owned by the caller; anything else
// looks missing.
func (h *Handler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	n, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if n.RecipientID.String() != c.GetString("employee_id") {
		h.writeServiceError(c, notificationerrors.ErrNotificationNotFound)
		return
	}

	if err := h.service.MarkRead(ctx, id); err != nil {
		h.writeServiceError(c, err)
		return
	}

	n, err = h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(n), nil)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	updated, err := h.service.MarkAllRead(c.Request.Context(), c.GetString("employee_id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, MarkAllReadResponse{Updated: updated}, nil)
}
