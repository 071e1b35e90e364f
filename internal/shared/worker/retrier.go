package worker

import (
	"context"
	"math/rand/v2"
	"time"

	"go-hris-leave/internal/shared/contextutil"
	"go-hris-leave/internal/shared/metrics"

	"go.uber.org/zap"
)

const (
	DefaultRetryBaseDelay = 200 * time.Millisecond
	DefaultRetryMaxDelay  = 30 * time.Second
)

type Step func(ctx context.Context) error

// Retrier re-runs failed steps in the background until they succeed or the
// pool shuts down.
type Retrier struct {
	pool           *Pool
	baseDelay      time.Duration
	maxDelay       time.Duration
	attemptTimeout time.Duration
	logger         *zap.Logger
}

func NewRetrier(pool *Pool, baseDelay, maxDelay, attemptTimeout time.Duration, logger ...*zap.Logger) *Retrier {
	l := zap.L().Named("worker.retrier")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("worker.retrier")
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	if maxDelay < baseDelay {
		maxDelay = DefaultRetryMaxDelay
	}
	if attemptTimeout <= 0 {
		attemptTimeout = 5 * time.Second
	}
	return &Retrier{
		pool:           pool,
		baseDelay:      baseDelay,
		maxDelay:       maxDelay,
		attemptTimeout: attemptTimeout,
		logger:         l,
	}
}

// Schedule retries step in the background. origin only contributes request
// metadata; its cancellation does not stop the retries.
func (r *Retrier) Schedule(origin context.Context, name string, step Step) {
	task := func(ctx context.Context) {
		ctx = contextutil.CopyMetadata(ctx, origin)
		log := contextutil.GetLogger(ctx, r.logger).With(zap.String("step", name))

		for attempt := 1; ; attempt++ {
			timer := time.NewTimer(r.Backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				metrics.SideEffectRetriesTotal.WithLabelValues(name, "abandoned").Inc()
				log.Warn("side effect retry abandoned on shutdown", zap.Int("attempts", attempt-1))
				return
			case <-timer.C:
			}

			attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
			err := step(attemptCtx)
			cancel()
			if err == nil {
				metrics.SideEffectRetriesTotal.WithLabelValues(name, "success").Inc()
				log.Info("side effect retry succeeded", zap.Int("attempt", attempt))
				return
			}
			metrics.SideEffectRetriesTotal.WithLabelValues(name, "failure").Inc()
			log.Warn("side effect retry failed", zap.Int("attempt", attempt), zap.Error(err))
		}
	}

	if r.pool == nil {
		go task(context.Background())
		return
	}
	if err := r.pool.SubmitDetached(task); err != nil {
		metrics.SideEffectRetriesTotal.WithLabelValues(name, "abandoned").Inc()
		r.logger.Error("side effect retry could not be scheduled", zap.String("step", name), zap.Error(err))
	}
}

// Backoff is the wait before the given attempt: exponential from the base
// delay, capped, with the upper half jittered.
func (r *Retrier) Backoff(attempt int) time.Duration {
	d := r.baseDelay
	for i := 1; i < attempt && d < r.maxDelay; i++ {
		d *= 2
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	half := d / 2
	return half + rand.N(d-half+1)
}
