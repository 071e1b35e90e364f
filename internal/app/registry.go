package app

import (
	"go-hris-leave/internal/notification"
	"go-hris-leave/internal/realtime"
	"go-hris-leave/internal/stats"
	"go-hris-leave/internal/workflow"

	"github.com/gin-gonic/gin"
)

func registerModules(router *gin.Engine, a *App) {
	// --- Handlers ---
	workflowHandler := workflow.NewHandlerWithAuthorizer(a.Controller, a.Authz, a.Logger)
	notificationHandler := notification.NewHandler(a.Notifier, a.Logger)
	statsHandler := stats.NewHandler(a.Aggregator, a.Logger)
	streamHandler := realtime.NewHandler(a.Broker, 0, a.Logger)

	// --- Routes Registration ---
	secret := a.Config.Auth.JWTSecret
	api := router.Group("/api/v1")
	{
		workflow.RegisterRoutes(api, workflowHandler, secret, a.Redis, a.Logger)
		notification.RegisterRoutes(api, notificationHandler, secret, a.Logger)
		stats.RegisterRoutes(api, statsHandler, secret, a.Logger)
		realtime.RegisterRoutes(api, streamHandler, secret, a.Logger)
	}
}
