package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// QueryOptions configure a mounted query.
type QueryOptions struct {
	// KeepPrevious shows the last successful data of the previous key while
	// the new key loads, instead of an empty loading state.
	KeepPrevious bool
	// RefetchInterval polls unconditionally when > 0.
	RefetchInterval time.Duration
	// OnChange is called after every state change of the query.
	OnChange func(QueryState)
}

// QueryState is what a screen renders from.
type QueryState struct {
	Key           Key
	Status        Status
	Data          interface{}
	Err           error
	IsPlaceholder bool
	IsFetching    bool
	UpdatedAt     time.Time
}

// Query is a mounted observer of one key at a time. Close unmounts it.
type Query struct {
	cache *Cache
	opts  QueryOptions

	mu          sync.Mutex
	key         Key
	fetch       Fetcher
	placeholder interface{}
	hasPrev     bool
	closed      bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch mounts a query for key, performs the initial fetch (served from cache
// when fresh) and starts polling if requested.
func (c *Cache) Watch(ctx context.Context, key Key, fn Fetcher, opts QueryOptions) *Query {
	pollCtx, cancel := context.WithCancel(context.Background())
	q := &Query{
		cache:  c,
		opts:   opts,
		key:    key,
		fetch:  fn,
		cancel: cancel,
	}

	c.attach(key, q)
	q.load(ctx)

	if opts.RefetchInterval > 0 {
		q.wg.Add(1)
		go q.poll(pollCtx)
	}

	return q
}

// Key returns the key the query currently observes.
func (q *Query) Key() Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// SetKey switches the query to a new key, e.g. after a page or filter change.
func (q *Query) SetKey(ctx context.Context, key Key, fn Fetcher) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	old := q.key
	if old.Equal(key) {
		q.fetch = fn
		q.mu.Unlock()
		q.load(ctx)
		return
	}

	if q.opts.KeepPrevious {
		if snap, ok := q.cache.Get(old); ok && snap.HasData {
			q.placeholder = snap.Data
			q.hasPrev = true
		}
	}
	q.key = key
	q.fetch = fn
	q.mu.Unlock()

	q.cache.detach(old, q)
	q.cache.attach(key, q)
	q.load(ctx)
}

// Refetch re-issues the current fetch regardless of freshness ("Try again").
func (q *Query) Refetch(ctx context.Context) error {
	key, fn, ok := q.current()
	if !ok {
		return nil
	}
	_, err := q.cache.Refetch(ctx, key, fn)
	return err
}

// State returns the current render state.
func (q *Query) State() QueryState {
	q.mu.Lock()
	key := q.key
	placeholder, hasPrev := q.placeholder, q.hasPrev
	q.mu.Unlock()

	snap, ok := q.cache.Get(key)
	st := QueryState{Key: key, Status: StatusIdle}
	if !ok {
		return st
	}

	st.Status = snap.Status
	st.Data = snap.Data
	st.Err = snap.Err
	st.IsFetching = snap.Fetching
	st.UpdatedAt = snap.UpdatedAt

	if !snap.HasData && snap.Status == StatusLoading && hasPrev {
		st.Data = placeholder
		st.IsPlaceholder = true
	}
	return st
}

// Close stops polling and detaches the query. Fetches still in flight complete
// into the cache but are no longer reported to this query.
func (q *Query) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	key := q.key
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.cache.detach(key, q)
}

func (q *Query) load(ctx context.Context) {
	key, fn, ok := q.current()
	if !ok {
		return
	}
	if _, err := q.cache.Fetch(ctx, key, fn); err != nil {
		q.cache.logger.Debug("Query fetch failed", zap.String("key", key.String()), zap.Error(err))
	}

	q.mu.Lock()
	if q.key.Equal(key) {
		if snap, ok := q.cache.Get(key); ok && snap.HasData {
			q.placeholder, q.hasPrev = nil, false
		}
	}
	q.mu.Unlock()
}

func (q *Query) poll(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.RefetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			key, fn, ok := q.current()
			if !ok {
				return
			}
			if _, err := q.cache.Refetch(ctx, key, fn); err != nil && ctx.Err() == nil {
				q.cache.logger.Debug("Poll refetch failed", zap.String("key", key.String()), zap.Error(err))
			}
		}
	}
}

func (q *Query) current() (Key, Fetcher, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key, q.fetch, !q.closed
}

func (q *Query) changed() {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed || q.opts.OnChange == nil {
		return
	}
	q.opts.OnChange(q.State())
}

// Data extracts typed data from a query state.
func Data[T any](st QueryState) (T, bool) {
	v, ok := st.Data.(T)
	return v, ok
}
