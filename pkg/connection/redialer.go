package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRedialerClosed indicates the redialer has been shut down.
var ErrRedialerClosed = errors.New("redialer closed")

// DialFunc attempts one connection. A nil error means connected.
type DialFunc func(ctx context.Context) error

// Redialer retries a DialFunc with exponential backoff until it
// succeeds, the context ends, or the redialer is closed.
type Redialer struct {
	dial    DialFunc
	backoff *Backoff

	// DialTimeout bounds each individual attempt.
	dialTimeout time.Duration

	mu          sync.Mutex
	closed      bool
	cancel      context.CancelFunc
	onAttempt   func(attempt int, delay time.Duration)
	onConnected func()
}

// NewRedialer creates a redialer around a dial function.
func NewRedialer(dial DialFunc) *Redialer {
	return &Redialer{
		dial:        dial,
		backoff:     NewBackoff(),
		dialTimeout: 30 * time.Second,
	}
}

// OnAttempt sets a callback invoked before each retry delay.
func (r *Redialer) OnAttempt(fn func(attempt int, delay time.Duration)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAttempt = fn
}

// OnConnected sets a callback invoked after a successful dial.
func (r *Redialer) OnConnected(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConnected = fn
}

// Run dials immediately, then retries with backoff until success. It
// returns nil once connected, ctx.Err() if the context ends first, or
// ErrRedialerClosed after Close.
func (r *Redialer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return ErrRedialerClosed
	}
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	for {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, r.dialTimeout)
		err := r.dial(attemptCtx)
		attemptCancel()

		if err == nil {
			r.backoff.Reset()
			r.mu.Lock()
			connected := r.onConnected
			r.mu.Unlock()
			if connected != nil {
				connected()
			}
			return nil
		}

		delay := r.backoff.Next()

		r.mu.Lock()
		closed := r.closed
		attempt := r.onAttempt
		r.mu.Unlock()
		if closed {
			return ErrRedialerClosed
		}
		if attempt != nil {
			attempt(r.backoff.Attempts(), delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if r.isClosed() {
				return ErrRedialerClosed
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Close aborts a running Run and rejects future ones.
func (r *Redialer) Close() {
	r.mu.Lock()
	r.closed = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (r *Redialer) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
