package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is what an observer sees of a cached read. Data keeps the last good
// value while a revalidation runs; after an invalidation it is the zero
// value and Status is pending until the refetch settles.
type State[T any] struct {
	Data      T
	HasData   bool
	Err       error
	Status    Status
	Fetching  bool
	Stale     bool
	UpdatedAt time.Time
}

// Observer is a live subscription to one key. Changes delivers the latest
// state only; intermediate states may be skipped.
type Observer[T any] struct {
	c   *Coordinator
	key Key
	id  uint64

	mu      sync.Mutex
	ch      chan State[T]
	lastSeq uint64
	closed  bool
}

// Observe subscribes to key, fetching with fn when no fresh value is
// cached. fn also serves refetches after invalidation while the observer is
// open.
func Observe[T any](c *Coordinator, key Key, fn func(context.Context) (T, error)) *Observer[T] {
	o := &Observer[T]{c: c, key: key, ch: make(chan State[T], 1)}

	c.mu.Lock()
	now := c.now()
	e := c.entryLocked(key, now)
	e.fetcher = wrap(fn)
	c.nextID++
	o.id = c.nextID
	e.observers[o.id] = o

	var notes []notification
	if !e.hasData || now.Sub(e.updatedAt) >= c.staleTime {
		_, notes = c.startFetchLocked(e)
	}
	c.mu.Unlock()

	deliver(notes)
	return o
}

// Snapshot returns the current state without waiting.
func (o *Observer[T]) Snapshot() State[T] {
	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	e, ok := o.c.entries.get(o.key)
	if !ok {
		return State[T]{Status: StatusPending}
	}
	return convert[T](o.c.snapshotLocked(e))
}

// Changes delivers states as they change. The channel is closed by Close.
func (o *Observer[T]) Changes() <-chan State[T] { return o.ch }

// Refetch starts a fetch even if the cached value is fresh. The current
// value stays visible until it settles.
func (o *Observer[T]) Refetch() {
	o.c.mu.Lock()
	e, ok := o.c.entries.get(o.key)
	if !ok || e.fetcher == nil {
		o.c.mu.Unlock()
		return
	}
	_, notes := o.c.startFetchLocked(e)
	o.c.mu.Unlock()
	deliver(notes)
}

// Close detaches the observer. An in-flight fetch is not cancelled and still
// populates the cache.
func (o *Observer[T]) Close() {
	o.c.mu.Lock()
	if e, ok := o.c.entries.get(o.key); ok {
		delete(e.observers, o.id)
		e.lastUsed = o.c.now()
	}
	o.c.mu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

func (o *Observer[T]) deliver(s snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || s.seq <= o.lastSeq {
		return
	}
	o.lastSeq = s.seq
	state := convert[T](s)
	select {
	case <-o.ch:
	default:
	}
	o.ch <- state
}

func convert[T any](s snapshot) State[T] {
	st := State[T]{
		HasData:   s.hasData,
		Err:       s.err,
		Status:    s.status,
		Fetching:  s.fetching,
		Stale:     s.stale,
		UpdatedAt: s.updatedAt,
	}
	if s.hasData && s.data != nil {
		d, ok := s.data.(T)
		if !ok {
			st.HasData = false
			st.Err = fmt.Errorf("%w: holds %T, observed as %T", ErrKeyType, s.data, d)
			st.Status = StatusError
			return st
		}
		st.Data = d
	}
	return st
}
