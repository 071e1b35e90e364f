package workflow

import (
	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	jwtSecret string,
	rdb *redis.Client,
	logger *zap.Logger,
) {
	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware(jwtSecret))
	leaves.Use(middleware.ContextLogger(logger))
	{
		leaves.GET("",
			middleware.RateLimitByUser(3, 10),
			handler.List,
		)

		leaves.GET("/:id",
			middleware.RateLimitByUser(3, 10),
			handler.GetByID,
		)

		leaves.GET("/:id/history",
			middleware.RateLimitByUser(3, 10),
			handler.History,
		)

		leaves.POST("",
			middleware.RateLimitByUser(0.2, 3),
			middleware.Idempotency(rdb, logger),
			handler.Submit,
		)

		leaves.POST("/:id/cancel",
			middleware.RateLimitByUser(0.5, 2),
			handler.Cancel,
		)

		review := leaves.Group("/:id")
		review.Use(rbac.Authorize(handler.authz, rbac.ResourceLeave, rbac.ActionReview))
		{
			review.POST("/approve", middleware.RateLimitByUser(1, 5), handler.Approve)
			review.POST("/reject", middleware.RateLimitByUser(1, 5), handler.Reject)
			review.POST("/hold", middleware.RateLimitByUser(1, 5), handler.Hold)
			review.POST("/request-details", middleware.RateLimitByUser(1, 5), handler.RequestDetails)
		}
	}
}
