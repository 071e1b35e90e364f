package workflow

import (
	"context"
	"net/http"
	"strings"

	autherrors "go-hris-leave/internal/auth/errors"
	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/rbac"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	controller Controller
	authz      rbac.Service
	logger     *zap.Logger
}

// NewHandler uses the default role policy.
func NewHandler(controller Controller, logger ...*zap.Logger) *Handler {
	return NewHandlerWithAuthorizer(controller, rbac.Default(), logger...)
}

func NewHandlerWithAuthorizer(controller Controller, authz rbac.Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("workflow.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("workflow.handler")
	}
	if authz == nil {
		authz = rbac.Default()
	}
	return &Handler{controller: controller, authz: authz, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("leave request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Submit(c *gin.Context) {
	callerID := c.GetString(middleware.ContextEmployeeID)
	var req leave.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http submit leave validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	// Filing on behalf of someone else is limited to reviewers.
	if req.EmployeeID == "" {
		req.EmployeeID = callerID
	} else if req.EmployeeID != callerID && !h.can(c, rbac.ActionSubmitForOthers) {
		h.writeServiceError(c, autherrors.ErrForbidden)
		return
	}

	created, err := h.controller.SubmitLeaveRequest(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, leave.ToResponse(created), nil)
}

func (h *Handler) GetByID(c *gin.Context) {
	req, ok := h.visibleRequest(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, leave.ToResponse(req), nil)
}

func (h *Handler) History(c *gin.Context) {
	req, ok := h.visibleRequest(c)
	if !ok {
		return
	}
	items, err := h.controller.History(c.Request.Context(), req.ID.String())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, leave.ToTransitionResponses(items), nil)
}

// visibleRequest loads the request named by :id if the caller filed it, was
// chosen as one of its recipients, or may read all requests.
func (h *Handler) visibleRequest(c *gin.Context) (leave.LeaveRequest, bool) {
	req, err := h.controller.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return leave.LeaveRequest{}, false
	}
	callerID := c.GetString(middleware.ContextEmployeeID)
	if req.EmployeeID.String() != callerID && !req.IsRecipient(callerID) && !h.can(c, rbac.ActionReadAll) {
		h.writeServiceError(c, autherrors.ErrForbidden)
		return leave.LeaveRequest{}, false
	}
	return req, true
}

// List filters by status when ?status is given, otherwise by employee
// (the caller when ?employee_id is absent).
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := response.PageParams(c)
	p := leave.Page{Page: page, PageSize: pageSize}

	var (
		result leave.ListResult
		err    error
	)
	status := strings.TrimSpace(c.Query("status"))
	employeeID := strings.TrimSpace(c.Query("employee_id"))
	callerID := c.GetString(middleware.ContextEmployeeID)
	readAll := h.can(c, rbac.ActionReadAll)

	switch {
	case status != "":
		if !readAll {
			h.writeServiceError(c, autherrors.ErrForbidden)
			return
		}
		result, err = h.controller.ListByStatus(ctx, status, p)
	default:
		if employeeID == "" {
			employeeID = callerID
		}
		if employeeID != callerID && !readAll {
			h.writeServiceError(c, autherrors.ErrForbidden)
			return
		}
		result, err = h.controller.ListByEmployee(ctx, employeeID, p)
	}
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(result.Total, page, pageSize)
	response.Success(c, http.StatusOK, leave.ToListResponse(result.Items), &meta)
}

func (h *Handler) Approve(c *gin.Context)        { h.transition(c, h.controller.Approve) }
func (h *Handler) Reject(c *gin.Context)         { h.transition(c, h.controller.Reject) }
func (h *Handler) Hold(c *gin.Context)           { h.transition(c, h.controller.Hold) }
func (h *Handler) RequestDetails(c *gin.Context) { h.transition(c, h.controller.RequestDetails) }
func (h *Handler) Cancel(c *gin.Context)         { h.transition(c, h.controller.Cancel) }

type transitionFunc func(ctx context.Context, leaveID, actorID, comments string) (leave.LeaveRequest, error)

func (h *Handler) transition(c *gin.Context, apply transitionFunc) {
	var body leave.TransitionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.writeServiceError(c, apperror.MapValidationError(err))
			return
		}
	}

	updated, err := apply(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextEmployeeID), body.Comments)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, leave.ToResponse(updated), nil)
}

func (h *Handler) can(c *gin.Context, action string) bool {
	ok, err := h.authz.Enforce(rbac.EnforceRequest{
		Role:     c.GetString(middleware.ContextRole),
		Resource: rbac.ResourceLeave,
		Action:   action,
	})
	if err != nil {
		h.logger.Error("authorize leave action failed", zap.String("action", action), zap.Error(err))
		return false
	}
	return ok
}
