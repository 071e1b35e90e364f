package stats

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
	stats := r.Group("/stats")
	stats.Use(middleware.AuthMiddleware(jwtSecret))
	stats.Use(middleware.ContextLogger(logger))
	{
		stats.GET("/dashboard",
			middleware.RateLimitByUser(5, 20),
			handler.Dashboard,
		)
	}
}
