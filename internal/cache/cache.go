// Package cache is the process-wide query cache behind every screen: keyed
// results with a freshness window, in-flight deduplication, a single retry,
// prefix invalidation and polling observers. Entries nobody has used or
// watched for the GC window are dropped.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultRetry      = 1
	DefaultRetryDelay = time.Second
	DefaultGCTime     = 5 * time.Minute
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Fetcher loads the value for one key.
type Fetcher func(ctx context.Context) (interface{}, error)

// Snapshot is a read-only view of one cache entry.
type Snapshot struct {
	Key       Key
	Status    Status
	Data      interface{}
	HasData   bool
	Err       error
	UpdatedAt time.Time
	Stale     bool
	Fetching  bool
}

type entry struct {
	key         Key
	status      Status
	data        interface{}
	hasData     bool
	err         error
	updatedAt   time.Time
	lastUsed    time.Time
	dataSeq     uint64
	invalidated bool
	fetching    int
	fetcher     Fetcher
	observers   map[*Query]struct{}
}

type Cache struct {
	staleTime  time.Duration
	gcTime     time.Duration
	retry      int
	retryDelay time.Duration
	retryIf    func(error) bool
	onError    func(Key, error)
	now        func() time.Time
	logger     *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	gen     uint64

	group singleflight.Group
	bg    sync.WaitGroup
}

type Option func(*Cache)

func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) {
		c.staleTime = d
	}
}

// WithGCTime sets how long an entry with no mounted query is kept after its
// last use. A non-positive d keeps entries until Clear.
func WithGCTime(d time.Duration) Option {
	return func(c *Cache) {
		c.gcTime = d
	}
}

// WithRetry sets how many times a failed fetch is retried and the pause between attempts.
func WithRetry(n int, delay time.Duration) Option {
	return func(c *Cache) {
		c.retry = n
		c.retryDelay = delay
	}
}

// WithRetryIf limits retries to errors for which fn returns true.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Cache) {
		c.retryIf = fn
	}
}

// WithErrorHandler registers fn to run once for every fetch that still fails
// after its retries while a query is mounted on the key.
func WithErrorHandler(fn func(Key, error)) Option {
	return func(c *Cache) {
		c.onError = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		staleTime:  DefaultStaleTime,
		gcTime:     DefaultGCTime,
		retry:      DefaultRetry,
		retryDelay: DefaultRetryDelay,
		retryIf:    func(error) bool { return true },
		now:        time.Now,
		logger:     logger,
		entries:    make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch returns fresh cached data for key, or runs fn and caches its result.
// Concurrent calls for the same key share one in-flight fetch.
func (c *Cache) Fetch(ctx context.Context, key Key, fn Fetcher) (interface{}, error) {
	c.mu.Lock()
	c.collectLocked()
	e := c.entryLocked(key)
	e.fetcher = fn
	e.lastUsed = c.now()
	if e.hasData && !c.staleLocked(e) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	return c.run(ctx, key, fn)
}

// Refetch runs fn for key regardless of freshness.
func (c *Cache) Refetch(ctx context.Context, key Key, fn Fetcher) (interface{}, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetcher = fn
	e.lastUsed = c.now()
	c.mu.Unlock()

	return c.run(ctx, key, fn)
}

// Get returns the current snapshot for key.
func (c *Cache) Get(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return c.snapshotLocked(e), true
}

// SetData stores data for key as a fresh successful result.
func (c *Cache) SetData(key Key, data interface{}) {
	c.mu.Lock()
	e := c.entryLocked(key)
	c.seq++
	c.storeSuccessLocked(e, data, c.seq)
	observers := observersOf(e)
	c.mu.Unlock()

	notify(observers)
}

// Invalidate marks every entry whose key starts with one of prefixes as stale.
// Entries with mounted queries are refetched before Invalidate returns; the
// rest are refetched in the background unless they outlived the GC window,
// in which case they are dropped.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...Key) error {
	type target struct {
		key Key
		fn  Fetcher
	}
	var active, inactive []target

	c.mu.Lock()
	c.collectLocked()
	for k, e := range c.entries {
		if !matchesAny(e.key, prefixes) {
			continue
		}
		e.invalidated = true
		// A flight started before the invalidation must not satisfy the refetch.
		c.group.Forget(k)
		if e.fetcher == nil {
			continue
		}
		if len(e.observers) > 0 {
			active = append(active, target{e.key, e.fetcher})
		} else {
			inactive = append(inactive, target{e.key, e.fetcher})
		}
	}
	c.mu.Unlock()

	c.logger.Debug("Invalidated queries",
		zap.Int("active", len(active)),
		zap.Int("inactive", len(inactive)),
	)

	for _, t := range inactive {
		t := t
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			if _, err := c.run(context.Background(), t.key, t.fn); err != nil {
				c.logger.Debug("Background refetch failed", zap.String("key", t.key.String()), zap.Error(err))
			}
		}()
	}

	var g errgroup.Group
	for _, t := range active {
		t := t
		g.Go(func() error {
			_, err := c.run(ctx, t.key, t.fn)
			return err
		})
	}
	return g.Wait()
}

// Clear drops every entry, e.g. when the session ends.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for k, e := range c.entries {
		c.group.Forget(k)
		if len(e.observers) > 0 {
			// mounted queries keep their entry, only the data goes
			e.data, e.hasData, e.err, e.status = nil, false, nil, StatusIdle
			e.invalidated = true
			continue
		}
		delete(c.entries, k)
	}
}

// Wait blocks until background refetches started by Invalidate finish.
func (c *Cache) Wait() {
	c.bg.Wait()
}

func (c *Cache) run(ctx context.Context, key Key, fn Fetcher) (interface{}, error) {
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		// Callers going away must not abort the shared fetch.
		return c.execute(context.WithoutCancel(ctx), key, fn)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Cache) execute(ctx context.Context, key Key, fn Fetcher) (interface{}, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	c.seq++
	issued := c.seq
	gen := c.gen
	e.fetching++
	if !e.hasData {
		e.status = StatusLoading
	}
	observers := observersOf(e)
	c.mu.Unlock()
	notify(observers)

	var (
		data interface{}
		err  error
	)
	for attempt := 0; attempt <= c.retry; attempt++ {
		data, err = fn(ctx)
		if err == nil || !c.retryIf(err) {
			break
		}
		if attempt < c.retry {
			c.logger.Debug("Retrying query", zap.String("key", key.String()), zap.Error(err))
			if c.retryDelay > 0 {
				time.Sleep(c.retryDelay)
			}
		}
	}

	c.mu.Lock()
	if gen != c.gen {
		// Cleared while in flight: the result belongs to an ended session.
		if e, ok := c.entries[key.String()]; ok && e.fetching > 0 {
			e.fetching--
		}
		c.mu.Unlock()
		return data, err
	}
	e = c.entryLocked(key)
	e.fetching--
	report := false
	if err != nil {
		if issued >= e.dataSeq {
			e.err = err
			e.status = StatusError
			report = c.onError != nil && len(e.observers) > 0
		}
	} else if issued >= e.dataSeq {
		c.storeSuccessLocked(e, data, issued)
	} else {
		// A newer fetch already landed; keep its data.
		data = e.data
	}
	observers = observersOf(e)
	c.mu.Unlock()
	notify(observers)
	if report {
		c.onError(key, err)
	}

	return data, err
}

// collectLocked drops unwatched entries unused for longer than the GC window.
func (c *Cache) collectLocked() {
	if c.gcTime <= 0 {
		return
	}
	now := c.now()
	for k, e := range c.entries {
		if len(e.observers) > 0 || e.fetching > 0 || now.Sub(e.lastUsed) < c.gcTime {
			continue
		}
		c.group.Forget(k)
		delete(c.entries, k)
	}
}

func (c *Cache) entryLocked(key Key) *entry {
	k := key.String()
	e, ok := c.entries[k]
	if !ok {
		e = &entry{key: key, lastUsed: c.now(), observers: make(map[*Query]struct{})}
		c.entries[k] = e
	}
	return e
}

func (c *Cache) storeSuccessLocked(e *entry, data interface{}, seq uint64) {
	e.data = data
	e.hasData = true
	e.err = nil
	e.status = StatusSuccess
	e.updatedAt = c.now()
	e.dataSeq = seq
	e.invalidated = false
}

func (c *Cache) staleLocked(e *entry) bool {
	return e.invalidated || c.now().Sub(e.updatedAt) >= c.staleTime
}

func (c *Cache) snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		Key:       e.key,
		Status:    e.status,
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Stale:     !e.hasData || c.staleLocked(e),
		Fetching:  e.fetching > 0,
	}
}

func (c *Cache) attach(key Key, q *Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entryLocked(key).observers[q] = struct{}{}
}

func (c *Cache) detach(key Key, q *Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		delete(e.observers, q)
		if len(e.observers) == 0 {
			e.lastUsed = c.now()
		}
	}
}

func matchesAny(key Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if key.HasPrefix(p) {
			return true
		}
	}
	return false
}

func observersOf(e *entry) []*Query {
	out := make([]*Query, 0, len(e.observers))
	for q := range e.observers {
		out = append(out, q)
	}
	return out
}

func notify(observers []*Query) {
	for _, q := range observers {
		q.changed()
	}
}

// Fetch is the typed form of Cache.Fetch.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, Typed(fn))
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Typed adapts a typed loader to a Fetcher.
func Typed[T any](fn func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (interface{}, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}
