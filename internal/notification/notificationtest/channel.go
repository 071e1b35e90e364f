package notificationtest

import (
	"context"
	"sync"

	"go-hris-leave/internal/notification"
)

// Channel records deliveries and can be told to fail.
type Channel struct {
	mu         sync.Mutex
	deliveries []notification.Delivery
	err        error
	delivered  chan notification.Delivery
}

func NewChannel() *Channel {
	return &Channel{delivered: make(chan notification.Delivery, 64)}
}

func (c *Channel) Name() string { return "test" }

func (c *Channel) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *Channel) Deliver(_ context.Context, d notification.Delivery) error {
	c.mu.Lock()
	err := c.err
	if err == nil {
		c.deliveries = append(c.deliveries, d)
	}
	c.mu.Unlock()

	select {
	case c.delivered <- d:
	default:
	}
	return err
}

// Attempts receives every delivery attempt, successful or not.
func (c *Channel) Attempts() <-chan notification.Delivery {
	return c.delivered
}

func (c *Channel) Deliveries() []notification.Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notification.Delivery{}, c.deliveries...)
}
