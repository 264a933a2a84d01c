package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor drains Changes until cond holds.
func waitFor[T any](t *testing.T, o *Observer[T], cond func(State[T]) bool) State[T] {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		if s := o.Snapshot(); cond(s) {
			return s
		}
		select {
		case s, ok := <-o.Changes():
			if !ok {
				t.Fatal("observer closed")
			}
			if cond(s) {
				return s
			}
		case <-timeout:
			t.Fatalf("condition not reached, last state %+v", o.Snapshot())
		}
	}
}

func TestObserveFetchesAndDelivers(t *testing.T) {
	c := New()
	defer c.Close()
	fetcher := &counter{gate: make(chan struct{})}

	o := Observe(c, walletKey("a1"), fetcher.fetch)
	defer o.Close()

	s := o.Snapshot()
	assert.Equal(t, StatusPending, s.Status)
	assert.True(t, s.Fetching)
	assert.False(t, s.HasData)

	close(fetcher.gate)
	s = waitFor(t, o, func(s State[int]) bool { return s.Status == StatusSuccess })
	assert.Equal(t, 1, s.Data)
	assert.False(t, s.Fetching)
}

func TestObserveUsesFreshCache(t *testing.T) {
	c := New()
	defer c.Close()
	fetcher := &counter{}
	_, err := Fetch(context.Background(), c, walletKey("a1"), fetcher.fetch)
	require.NoError(t, err)

	o := Observe(c, walletKey("a1"), fetcher.fetch)
	defer o.Close()
	s := o.Snapshot()
	assert.Equal(t, StatusSuccess, s.Status)
	assert.Equal(t, 1, s.Data)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestObserveStaleWhileRevalidate(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	defer c.Close()
	fetcher := &counter{}
	_, err := Fetch(context.Background(), c, walletKey("a1"), fetcher.fetch)
	require.NoError(t, err)

	fetcher.gate = make(chan struct{})
	clock.Advance(6 * time.Minute)
	o := Observe(c, walletKey("a1"), fetcher.fetch)
	defer o.Close()

	s := o.Snapshot()
	assert.Equal(t, 1, s.Data, "old value stays visible")
	assert.True(t, s.Stale)
	assert.True(t, s.Fetching)

	close(fetcher.gate)
	s = waitFor(t, o, func(s State[int]) bool { return s.Data == 2 && !s.Fetching })
	assert.False(t, s.Stale)
}

func TestObserverRefetchesAfterInvalidation(t *testing.T) {
	c := New()
	defer c.Close()
	var calls atomic.Int32
	gate := make(chan struct{})
	fn := func(context.Context) (string, error) {
		if calls.Add(1) == 2 {
			<-gate
			return "after", nil
		}
		return "before", nil
	}

	o := Observe(c, walletKey("a1"), fn)
	defer o.Close()
	waitFor(t, o, func(s State[string]) bool { return s.Data == "before" })

	c.Invalidate(All(KindWallet, "a1"))
	s := o.Snapshot()
	assert.False(t, s.HasData, "invalidated value is treated as absent")
	assert.Equal(t, "", s.Data)
	assert.Equal(t, StatusPending, s.Status)
	assert.True(t, s.Fetching)

	close(gate)
	waitFor(t, o, func(s State[string]) bool { return s.Data == "after" })
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, c.Len(), "observed entry is kept")
}

func TestObserverError(t *testing.T) {
	c := New()
	defer c.Close()
	boom := errors.New("offline")
	o := Observe(c, walletKey("a1"), func(context.Context) (int, error) { return 0, boom })
	defer o.Close()

	s := waitFor(t, o, func(s State[int]) bool { return s.Status == StatusError })
	assert.ErrorIs(t, s.Err, boom)
}

func TestObserverRefetch(t *testing.T) {
	c := New()
	defer c.Close()
	fetcher := &counter{}
	o := Observe(c, walletKey("a1"), fetcher.fetch)
	defer o.Close()
	waitFor(t, o, func(s State[int]) bool { return s.Data == 1 })

	o.Refetch()
	waitFor(t, o, func(s State[int]) bool { return s.Data == 2 })
}

func TestObserverCloseKeepsFetchAndClosesChannel(t *testing.T) {
	c := New()
	defer c.Close()
	fetcher := &counter{gate: make(chan struct{})}
	o := Observe(c, walletKey("a1"), fetcher.fetch)
	o.Close()
	o.Close()

	_, ok := <-o.Changes()
	assert.False(t, ok)

	close(fetcher.gate)
	v, err := Fetch(context.Background(), c, walletKey("a1"), fetcher.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "in-flight fetch still populates the cache")
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestClearResetsObservers(t *testing.T) {
	c := New()
	defer c.Close()
	fetcher := &counter{}
	o := Observe(c, walletKey("a1"), fetcher.fetch)
	defer o.Close()
	waitFor(t, o, func(s State[int]) bool { return s.Status == StatusSuccess })

	c.Clear()
	s := o.Snapshot()
	assert.False(t, s.HasData)
	assert.False(t, s.Fetching, "clear does not refetch")
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestResumeRefetchesClearedObservers(t *testing.T) {
	c := New()
	defer c.Close()
	mine, other := &counter{}, &counter{}
	o := Observe(c, walletKey("a1"), mine.fetch)
	defer o.Close()
	o2 := Observe(c, walletKey("a2"), other.fetch)
	defer o2.Close()
	waitFor(t, o, func(s State[int]) bool { return s.Status == StatusSuccess })
	waitFor(t, o2, func(s State[int]) bool { return s.Status == StatusSuccess })

	c.Clear()
	c.Resume("a1")
	s := waitFor(t, o, func(s State[int]) bool { return s.Status == StatusSuccess })
	assert.Equal(t, 2, s.Data)
	assert.False(t, o2.Snapshot().HasData, "other accounts stay cleared")
	assert.Equal(t, int32(1), other.calls.Load())

	c.Resume("a1")
	assert.Equal(t, int32(2), mine.calls.Load(), "entries holding a value are left alone")
}
