// Package cache is the read cache and mutation coordinator. Reads are keyed
// by (kind, account, scope, variant), de-duplicated while in flight, served
// from memory within a freshness window and revalidated in the background
// after it. Successful mutations invalidate the keys that depend on them.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"finsync/internal/log"
)

const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultGCTime     = 10 * time.Minute
	DefaultMaxEntries = 512
)

// ErrKeyType is returned when a key is read as a type other than the one
// its fetcher produces.
var ErrKeyType = errors.New("cache key read as wrong type")

// Status of a read or mutation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type fetchFunc func(ctx context.Context) (any, error)

// entry is one cached read. All fields are guarded by Coordinator.mu.
type entry struct {
	key       Key
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	lastUsed  time.Time

	// gen advances on every invalidation. A fetch settles into the entry
	// only if the generation it started under is still current.
	gen       uint64
	active    bool
	activeGen uint64

	// seq orders snapshots delivered to observers.
	seq       uint64
	fetcher   fetchFunc
	observers map[uint64]sink
}

func (e *entry) fetching() bool { return e.active && e.activeGen == e.gen }

func (e *entry) status() Status {
	switch {
	case e.err != nil:
		return StatusError
	case e.hasData:
		return StatusSuccess
	}
	return StatusPending
}

// snapshot is the untyped view of an entry handed to observers.
type snapshot struct {
	seq       uint64
	data      any
	hasData   bool
	err       error
	status    Status
	fetching  bool
	stale     bool
	updatedAt time.Time
}

type sink interface {
	deliver(snapshot)
}

type notification struct {
	sink sink
	snap snapshot
}

type Coordinator struct {
	mu       sync.Mutex
	entries  *lruIndex
	group    singleflight.Group
	nextID   uint64
	hooks    map[uint64]func([]Target)
	base     context.Context
	cancel   context.CancelFunc

	staleTime  time.Duration
	gcTime     time.Duration
	maxEntries int
	now        func() time.Time
	logger     *log.Logger
}

type Option func(*Coordinator)

// WithStaleTime sets how long a result is served without revalidation.
func WithStaleTime(d time.Duration) Option {
	return func(c *Coordinator) { c.staleTime = d }
}

// WithGCTime sets how long an unobserved entry survives after its last use.
func WithGCTime(d time.Duration) Option {
	return func(c *Coordinator) { c.gcTime = d }
}

// WithMaxEntries caps the number of idle entries kept after a cleanup pass.
func WithMaxEntries(n int) Option {
	return func(c *Coordinator) { c.maxEntries = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func New(opts ...Option) *Coordinator {
	base, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		entries:    newLRUIndex(),
		hooks:      make(map[uint64]func([]Target)),
		base:       base,
		cancel:     cancel,
		staleTime:  DefaultStaleTime,
		gcTime:     DefaultGCTime,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentCache)
	return c
}

// Close cancels background fetches. The coordinator must not be used after.
func (c *Coordinator) Close() {
	c.cancel()
}

// Fetch returns the value for key, calling fn at most once per in-flight
// window no matter how many callers ask. A fresh cached value is returned
// without a call; a stale one is returned immediately while a background
// refetch runs. ctx bounds only the caller's wait; the shared fetch keeps
// running so other waiters and the cache still get its result.
func Fetch[T any](ctx context.Context, c *Coordinator, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	data, hit, ch := c.read(key, wrap(fn))
	if hit {
		return typed[T](key, data)
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return typed[T](key, res.Val)
	}
}

// typed asserts a cached value back to T. A key holds one type for its
// lifetime; reading it as another is a programming error.
func typed[T any](key Key, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T, read as %T", ErrKeyType, key, v, zero)
	}
	return t, nil
}

func wrap[T any](fn func(context.Context) (T, error)) fetchFunc {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

func (c *Coordinator) read(key Key, fn fetchFunc) (any, bool, <-chan singleflight.Result) {
	c.mu.Lock()
	now := c.now()
	e := c.entryLocked(key, now)
	e.fetcher = fn

	if e.hasData {
		data := e.data
		var notes []notification
		if now.Sub(e.updatedAt) >= c.staleTime && !e.fetching() {
			c.logger.Debug("Serving stale value, revalidating", log.FieldCacheKey, key.String())
			_, notes = c.startFetchLocked(e)
		}
		c.mu.Unlock()
		deliver(notes)
		return data, true, nil
	}

	ch, notes := c.startFetchLocked(e)
	c.mu.Unlock()
	deliver(notes)
	return nil, false, ch
}

// entryLocked returns the entry for key, creating it if absent, and marks
// it used.
func (c *Coordinator) entryLocked(key Key, now time.Time) *entry {
	e, ok := c.entries.get(key)
	if !ok {
		e = &entry{key: key, observers: make(map[uint64]sink)}
		c.entries.add(e)
	} else {
		c.entries.touch(key)
	}
	e.lastUsed = now
	return e
}

// startFetchLocked joins the in-flight fetch of the current generation or
// starts a new one with the entry's fetcher.
func (c *Coordinator) startFetchLocked(e *entry) (<-chan singleflight.Result, []notification) {
	var notes []notification
	if !e.fetching() {
		e.active = true
		e.activeGen = e.gen
		notes = c.changedLocked(e)
		// A call that already settled may still sit in the group.
		c.group.Forget(e.key.String())
		c.logger.Debug("Fetch started", log.FieldCacheKey, e.key.String())
	}
	gen := e.gen
	fn := e.fetcher
	ch := c.group.DoChan(e.key.String(), func() (any, error) {
		v, err := fn(c.base)
		c.settle(e, gen, v, err)
		return v, err
	})
	return ch, notes
}

func (c *Coordinator) settle(e *entry, gen uint64, v any, err error) {
	c.mu.Lock()
	current, ok := c.entries.get(e.key)
	if !ok || current != e || gen != e.gen {
		c.mu.Unlock()
		c.logger.Debug("Discarding result of invalidated fetch", log.FieldCacheKey, e.key.String())
		return
	}

	e.active = false
	if err != nil {
		e.err = err
		c.logger.Debug("Fetch failed", log.FieldCacheKey, e.key.String(), log.FieldError, err.Error())
	} else {
		e.data = v
		e.hasData = true
		e.err = nil
		e.updatedAt = c.now()
	}
	notes := c.changedLocked(e)
	c.mu.Unlock()
	deliver(notes)
}

// changedLocked bumps the entry sequence and snapshots it for every
// observer. Delivery happens after the lock is released.
func (c *Coordinator) changedLocked(e *entry) []notification {
	if len(e.observers) == 0 {
		return nil
	}
	e.seq++
	snap := c.snapshotLocked(e)
	notes := make([]notification, 0, len(e.observers))
	for _, s := range e.observers {
		notes = append(notes, notification{sink: s, snap: snap})
	}
	return notes
}

func (c *Coordinator) snapshotLocked(e *entry) snapshot {
	return snapshot{
		seq:       e.seq,
		data:      e.data,
		hasData:   e.hasData,
		err:       e.err,
		status:    e.status(),
		fetching:  e.fetching(),
		stale:     e.hasData && c.now().Sub(e.updatedAt) >= c.staleTime,
		updatedAt: e.updatedAt,
	}
}

func deliver(notes []notification) {
	for _, n := range notes {
		n.sink.deliver(n.snap)
	}
}

// Invalidate marks every key matched by targets as known-stale. Observed
// entries lose their value and refetch; unobserved ones are dropped. The
// OnInvalidate hooks run afterwards.
func (c *Coordinator) Invalidate(targets ...Target) {
	if len(targets) == 0 {
		return
	}
	c.invalidate(targets)
	c.runHooks(targets)
}

// ApplyRemote invalidates like Invalidate but does not run the hooks. It is
// used for invalidations that originated in another process.
func (c *Coordinator) ApplyRemote(targets ...Target) {
	if len(targets) == 0 {
		return
	}
	c.invalidate(targets)
}

// InvalidateAccount invalidates every kind cached for the account.
func (c *Coordinator) InvalidateAccount(accountID string) {
	targets := make([]Target, 0, len(Kinds))
	for _, k := range Kinds {
		targets = append(targets, All(k, accountID))
	}
	c.Invalidate(targets...)
}

func matchesAny(targets []Target, k Key) bool {
	for _, t := range targets {
		if t.Matches(k) {
			return true
		}
	}
	return false
}

func (c *Coordinator) invalidate(targets []Target) {
	c.mu.Lock()
	var notes []notification
	var dropped, refetched int
	c.entries.each(func(e *entry) {
		if !matchesAny(targets, e.key) {
			return
		}
		c.resetLocked(e)
		if len(e.observers) == 0 {
			c.entries.remove(e.key)
			dropped++
			return
		}
		refetched++
		if e.fetcher != nil {
			_, n := c.startFetchLocked(e)
			notes = append(notes, n...)
		} else {
			notes = append(notes, c.changedLocked(e)...)
		}
	})
	c.mu.Unlock()

	c.logger.Debug("Invalidated",
		log.FieldTargets, targetStrings(targets), "dropped", dropped, "refetched", refetched)
	deliver(notes)
}

// resetLocked forgets the entry value and detaches any in-flight fetch so
// its result is not stored.
func (c *Coordinator) resetLocked(e *entry) {
	e.gen++
	e.data = nil
	e.hasData = false
	e.err = nil
	e.updatedAt = time.Time{}
	c.group.Forget(e.key.String())
}

// Clear empties the cache. Observed entries are kept but reset to pending
// without refetching; nothing fires the OnInvalidate hooks.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	var notes []notification
	c.entries.each(func(e *entry) {
		c.resetLocked(e)
		if len(e.observers) == 0 {
			c.entries.remove(e.key)
			return
		}
		notes = append(notes, c.changedLocked(e)...)
	})
	c.mu.Unlock()

	c.logger.Debug("Cache cleared")
	deliver(notes)
}

// Resume restarts fetches for observed entries of accountID that hold no
// value, such as those reset by Clear while the account was signed out.
func (c *Coordinator) Resume(accountID string) {
	c.mu.Lock()
	var notes []notification
	var resumed int
	c.entries.each(func(e *entry) {
		if e.key.AccountID != accountID || len(e.observers) == 0 || e.hasData || e.fetching() || e.fetcher == nil {
			return
		}
		_, n := c.startFetchLocked(e)
		notes = append(notes, n...)
		resumed++
	})
	c.mu.Unlock()

	if resumed > 0 {
		c.logger.Debug("Resumed observed reads", log.FieldAccountID, accountID, "count", resumed)
	}
	deliver(notes)
}

// OnInvalidate registers fn to run after every local Invalidate.
func (c *Coordinator) OnInvalidate(fn func([]Target)) (remove func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.hooks[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.hooks, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) runHooks(targets []Target) {
	c.mu.Lock()
	hooks := make([]func([]Target), 0, len(c.hooks))
	for _, h := range c.hooks {
		hooks = append(hooks, h)
	}
	c.mu.Unlock()
	for _, h := range hooks {
		h(targets)
	}
}

// CleanExpired evicts unobserved, idle entries older than the GC time, then
// trims idle entries beyond the size cap, least recently used first.
func (c *Coordinator) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	idle := func(e *entry) bool { return len(e.observers) == 0 && !e.fetching() }

	removed := 0
	c.entries.each(func(e *entry) {
		if idle(e) && now.Sub(e.lastUsed) > c.gcTime {
			c.entries.remove(e.key)
			removed++
		}
	})

	if c.maxEntries > 0 && c.entries.len() > c.maxEntries {
		excess := c.entries.len() - c.maxEntries
		c.entries.oldestFirst(func(e *entry) bool {
			if idle(e) {
				c.entries.remove(e.key)
				removed++
				excess--
			}
			return excess > 0
		})
	}

	if removed > 0 {
		c.logger.Debug("Evicted idle entries", "count", removed)
	}
	return removed
}

// Len returns the number of cached entries.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.len()
}

func targetStrings(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.String()
	}
	return out
}
