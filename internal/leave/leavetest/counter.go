package leavetest

import (
	"context"
	"sync"
)

type Counter struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewCounter() *Counter {
	return &Counter{values: make(map[string]int64)}
}

func (c *Counter) GetNextValue(_ context.Context, scope string, counterType string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := scope + "/" + counterType
	c.values[key]++
	return c.values[key], nil
}
