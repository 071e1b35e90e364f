// Package worker wraps an ants goroutine pool. Background work in this service
// (notification delivery, side-effect retries) goes through it instead of
// naked goroutines so shutdown can drain it.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

type Task func(ctx context.Context)

type Pool struct {
	pool   *ants.Pool
	name   string
	logger *zap.Logger

	// serviceCtx outlives requests; detached tasks observe it for shutdown.
	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

func NewPool(name string, size int, logger ...*zap.Logger) (*Pool, error) {
	l := zap.L().Named("worker.pool")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("worker.pool")
	}
	l = l.With(zap.String("pool", name))

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v any) {
			l.Error("worker panic recovered", zap.Any("panic", v), zap.Stack("stack"))
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	return &Pool{
		pool:          p,
		name:          name,
		logger:        l,
		serviceCtx:    serviceCtx,
		serviceCancel: cancel,
	}, nil
}

// Submit runs task with the caller's context. A context that is already done
// is reported without queueing.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := p.pool.Submit(func() {
		select {
		case <-ctx.Done():
			p.logger.Debug("task skipped: context cancelled", zap.Error(ctx.Err()))
			return
		default:
		}
		task(ctx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// SubmitDetached runs task with the pool's service context, which is only
// cancelled by Shutdown.
func (p *Pool) SubmitDetached(task Task) error {
	err := p.pool.Submit(func() {
		select {
		case <-p.serviceCtx.Done():
			p.logger.Debug("detached task skipped: shutting down")
			return
		default:
		}
		task(p.serviceCtx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Done is closed once Shutdown starts.
func (p *Pool) Done() <-chan struct{} {
	return p.serviceCtx.Done()
}

func (p *Pool) Shutdown(timeout time.Duration) {
	p.serviceCancel()
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("pool shutdown timeout", zap.Error(err))
	}
}

func (p *Pool) Running() int { return p.pool.Running() }
