package stats

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	// CountersKey is the Redis hash holding every dashboard counter.
	CountersKey = "leave:stats"

	FieldPending = "pending"
	FieldOnHold  = "onHold"
)

func ApprovedField(month string) string { return "approved:" + month }
func RejectedField(month string) string { return "rejected:" + month }

// Counters stores the incrementally maintained dashboard counters. Apply must
// change all fields together or none of them.
type Counters interface {
	Apply(ctx context.Context, deltas map[string]int64) error
	GetAll(ctx context.Context) (map[string]int64, error)
	Replace(ctx context.Context, values map[string]int64) error
}

type RedisCounters struct {
	rdb *redis.Client
}

func NewRedisCounters(rdb *redis.Client) *RedisCounters {
	return &RedisCounters{rdb: rdb}
}

func (c *RedisCounters) Apply(ctx context.Context, deltas map[string]int64) error {
	fields := sortedFields(deltas, true)
	if len(fields) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, f := range fields {
			pipe.HIncrBy(ctx, CountersKey, f, deltas[f])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply stats counters: %w", err)
	}
	return nil
}

func (c *RedisCounters) GetAll(ctx context.Context) (map[string]int64, error) {
	raw, err := c.rdb.HGetAll(ctx, CountersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read stats counters: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stats counter %s: %w", field, err)
		}
		out[field] = n
	}
	return out, nil
}

func (c *RedisCounters) Replace(ctx context.Context, values map[string]int64) error {
	fields := sortedFields(values, false)
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f, values[f])
	}
	if err := c.rdb.HSet(ctx, CountersKey, args...).Err(); err != nil {
		return fmt.Errorf("replace stats counters: %w", err)
	}
	return nil
}

// MemoryCounters is the single-instance fallback when Redis is not configured.
type MemoryCounters struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{values: make(map[string]int64)}
}

func (c *MemoryCounters) Apply(_ context.Context, deltas map[string]int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for f, d := range deltas {
		c.values[f] += d
	}
	return nil
}

func (c *MemoryCounters) GetAll(_ context.Context) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.values))
	for f, v := range c.values {
		out[f] = v
	}
	return out, nil
}

func (c *MemoryCounters) Replace(_ context.Context, values map[string]int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for f, v := range values {
		c.values[f] = v
	}
	return nil
}

// sortedFields keeps Redis command arguments in a stable order.
func sortedFields(m map[string]int64, skipZero bool) []string {
	fields := make([]string, 0, len(m))
	for f, v := range m {
		if skipZero && v == 0 {
			continue
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
