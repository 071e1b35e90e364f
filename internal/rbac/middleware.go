package rbac

import (
	autherrors "go-hris-leave/internal/auth/errors"
	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authorize lets the request through only when the caller's role may
// perform action on resource. It runs after AuthMiddleware.
func Authorize(service Service, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := service.Enforce(EnforceRequest{
			Role:     c.GetString(middleware.ContextRole),
			Resource: resource,
			Action:   action,
		})
		if err != nil {
			zap.L().Named("rbac.middleware").Error("enforce failed",
				zap.String("resource", resource),
				zap.String("action", action),
				zap.Error(err),
			)
			abortWith(c, apperror.ErrInternal)
			return
		}
		if !allowed {
			abortWith(c, autherrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, err *apperror.AppError) {
	response.Error(c, err.HTTPStatus, err.Code, err.Message, nil)
	c.Abort()
}
