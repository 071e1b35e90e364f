package realtime

import (
	"io"
	"time"

	"go-hris-leave/internal/notification"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultKeepAlive = 25 * time.Second

type Handler struct {
	broker    *Broker
	keepAlive time.Duration
	logger    *zap.Logger
}

func NewHandler(broker *Broker, keepAlive time.Duration, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("realtime.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.handler")
	}
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &Handler{broker: broker, keepAlive: keepAlive, logger: l}
}

// Stream pushes stats updates and the caller's own notification events as
// server-sent events until the client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	employeeID := c.GetString("employee_id")
	sub := h.broker.Subscribe(TopicStats, notification.RecipientTopic(employeeID))
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.logger.Debug("stream opened", zap.String("employee_id", employeeID))
	c.SSEvent("ready", gin.H{"topics": []string{TopicStats, notification.RecipientTopic(employeeID)}})

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt.Data)
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
	h.logger.Debug("stream closed", zap.String("employee_id", employeeID))
}
