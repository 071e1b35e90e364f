package realtime

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
	r.GET("/stream",
		middleware.AuthMiddleware(jwtSecret),
		middleware.ContextLogger(logger),
		middleware.RateLimitByUser(0.2, 3),
		handler.Stream,
	)
}
