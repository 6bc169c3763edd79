// Package screens holds the state of each admin screen independent of how it is
// drawn: filters, page index, selection, polling and the query it observes.
package screens

import (
	"context"
	"sync"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// list is the part every list screen shares: one mounted query whose key
// follows the screen's filter and page.
type list struct {
	ctx   context.Context
	cfg   ScreenConfig
	query *cache.Query

	switching *sync.Mutex
}

func mount(ctx context.Context, c *cache.Cache, cfg ScreenConfig, q service.Query, onChange func(cache.QueryState)) list {
	return list{
		ctx:       ctx,
		cfg:       cfg,
		switching: &sync.Mutex{},
		query: c.Watch(ctx, q.Key, q.Fetch, cache.QueryOptions{
			KeepPrevious:    cfg.KeepPrevious,
			RefetchInterval: cfg.PollInterval,
			OnChange:        onChange,
		}),
	}
}

// show moves the query to the read built by next. Switches are serialized so
// the last filter change always wins.
func (l *list) show(next func() service.Query) {
	l.switching.Lock()
	defer l.switching.Unlock()

	q := next()
	l.query.SetKey(l.ctx, q.Key, q.Fetch)
}

// State is the render state: loading, data (or placeholder data), or error.
func (l *list) State() cache.QueryState {
	return l.query.State()
}

// Refetch is the "Try again" action.
func (l *list) Refetch(ctx context.Context) error {
	return l.query.Refetch(ctx)
}

// Close unmounts the screen and stops polling.
func (l *list) Close() {
	l.query.Close()
}

// PageOf returns the server page carried by st, or an empty page.
func PageOf[T any](st cache.QueryState) apiclient.Page[T] {
	p, _ := cache.Data[apiclient.Page[T]](st)
	return p
}
