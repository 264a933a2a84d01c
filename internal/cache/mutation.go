package cache

import (
	"context"
	"sync"

	"finsync/internal/log"
)

// Callbacks are attached to a single Mutate call. Exactly one of them runs,
// once, after the call settles.
type Callbacks[Out any] struct {
	OnSuccess func(Out)
	OnError   func(error)
}

// Effects computes the targets to invalidate from a successful call's input
// and the server's response.
type Effects[In, Out any] func(in In, out Out) []Target

// Mutation runs a write and invalidates its dependents on success. Status,
// Err and Data reflect the most recent call; concurrent calls all run to
// completion and each invalidates independently.
type Mutation[In, Out any] struct {
	c       *Coordinator
	fn      func(context.Context, In) (Out, error)
	effects Effects[In, Out]

	mu     sync.Mutex
	latest uint64
	status Status
	err    error
	data   Out
}

func NewMutation[In, Out any](c *Coordinator, fn func(context.Context, In) (Out, error), effects Effects[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{c: c, fn: fn, effects: effects, status: StatusIdle}
}

// Mutate runs one call. Invalidation happens strictly after the server
// accepted the write and before OnSuccess runs, so a read issued from the
// callback already misses the old value. The result is also returned.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In, cb Callbacks[Out]) (Out, error) {
	m.mu.Lock()
	m.latest++
	call := m.latest
	m.status = StatusPending
	m.err = nil
	m.mu.Unlock()

	out, err := m.fn(ctx, in)
	if err != nil {
		m.settle(call, StatusError, out, err)
		m.c.logger.DebugContext(ctx, "Mutation failed", log.FieldMutationID, call, log.FieldError, err.Error())
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return out, err
	}

	if m.effects != nil {
		m.c.Invalidate(m.effects(in, out)...)
	}
	m.settle(call, StatusSuccess, out, nil)
	if cb.OnSuccess != nil {
		cb.OnSuccess(out)
	}
	return out, nil
}

func (m *Mutation[In, Out]) settle(call uint64, status Status, out Out, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if call != m.latest {
		return
	}
	m.status = status
	m.err = err
	if err == nil {
		m.data = out
	}
}

func (m *Mutation[In, Out]) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Mutation[In, Out]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Data returns the response of the latest successful call.
func (m *Mutation[In, Out]) Data() Out {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Reset returns the mutation to idle. Calls still in flight no longer
// update its state.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest++
	var zero Out
	m.status = StatusIdle
	m.err = nil
	m.data = zero
}
