// Package worker fans jobs out to per-identity loops. Each identity gets
// its own bounded queue drained by a dedicated goroutine, so one
// conversation's jobs run strictly in order, while a shared semaphore bounds
// how many handlers run at once across identities.
package worker

import (
	"context"
	"sync"
)

// Router owns the identity-keyed queues. Queues are created lazily on the
// first job for an identity and live until the router's context is done.
type Router[J any] struct {
	ctx       context.Context
	sem       chan struct{}
	queueSize int
	handle    func(context.Context, J)

	mu     sync.Mutex
	queues map[string]chan J
}

func NewRouter[J any](ctx context.Context, maxConcurrency, queueSize int, handle func(context.Context, J)) *Router[J] {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Router[J]{
		ctx:       ctx,
		sem:       make(chan struct{}, maxConcurrency),
		queueSize: queueSize,
		handle:    handle,
		queues:    make(map[string]chan J),
	}
}

// Enqueue queues job on identity's loop, starting the loop on first use.
// It blocks while the identity's queue is full and fails once either the
// caller's context or the router's context is done.
func (r *Router[J]) Enqueue(ctx context.Context, identity string, job J) error {
	if ctx == nil {
		ctx = r.ctx
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	q, ok := r.queues[identity]
	if !ok {
		q = make(chan J, r.queueSize)
		r.queues[identity] = q
		go r.loop(q)
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return r.ctx.Err()
	case q <- job:
		return nil
	}
}

func (r *Router[J]) loop(jobs <-chan J) {
	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-jobs:
			select {
			case r.sem <- struct{}{}:
			case <-r.ctx.Done():
				return
			}
			func() {
				defer func() { <-r.sem }()
				r.handle(r.ctx, job)
			}()
		}
	}
}
