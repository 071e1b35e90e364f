package app

import (
	"testing"

	"go-hris-leave/internal/config"
	"go-hris-leave/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRegisterModules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	a := &App{
		Config: &config.Config{Auth: config.AuthConfig{JWTSecret: "secret"}},
		Logger: zap.NewNop(),
		Broker: realtime.NewBroker(1),
	}
	registerModules(router, a)

	registered := map[string]bool{}
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"POST /api/v1/leaves",
		"GET /api/v1/leaves",
		"GET /api/v1/leaves/:id",
		"GET /api/v1/leaves/:id/history",
		"POST /api/v1/leaves/:id/approve",
		"POST /api/v1/leaves/:id/reject",
		"POST /api/v1/leaves/:id/hold",
		"POST /api/v1/leaves/:id/request-details",
		"POST /api/v1/leaves/:id/cancel",
		"GET /api/v1/notifications",
		"GET /api/v1/notifications/unread-count",
		"POST /api/v1/notifications/:id/read",
		"POST /api/v1/notifications/read-all",
		"GET /api/v1/stats/dashboard",
		"GET /api/v1/stream",
	}
	for _, route := range want {
		assert.True(t, registered[route], "missing route %s", route)
	}
	assert.Len(t, router.Routes(), len(want))
}
