package notification

import (
	"go-hris-leave/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	jwtSecret string,
	logger *zap.Logger,
) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware(jwtSecret))
	notifications.Use(middleware.ContextLogger(logger))
	{
		notifications.GET("",
			middleware.RateLimitByUser(5, 20),
			handler.List,
		)

		notifications.GET("/unread-count",
			middleware.RateLimitByUser(5, 20),
			handler.UnreadCount,
		)

		notifications.POST("/read-all",
			middleware.RateLimitByUser(1, 5),
			handler.MarkAllRead,
		)

		notifications.POST("/:id/read",
			middleware.RateLimitByUser(3, 10),
			handler.MarkRead,
		)
	}
}
