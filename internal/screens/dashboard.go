package screens

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// DashboardSource provides the three aggregate reads.
type DashboardSource interface {
	SummaryQuery() service.Query
	SalesLast7DaysQuery() service.Query
	SalesComparisonQuery() service.Query
}

// Dashboard mounts the summary tiles and both sales charts.
type Dashboard struct {
	summary    *cache.Query
	sales      *cache.Query
	comparison *cache.Query
}

// NewDashboard loads the three aggregates in parallel.
func NewDashboard(ctx context.Context, c *cache.Cache, src DashboardSource, cfg ScreenConfig) *Dashboard {
	d := &Dashboard{}
	opts := cache.QueryOptions{RefetchInterval: cfg.PollInterval}
	watch := func(q service.Query) *cache.Query {
		return c.Watch(ctx, q.Key, q.Fetch, opts)
	}

	var g errgroup.Group
	g.Go(func() error { d.summary = watch(src.SummaryQuery()); return nil })
	g.Go(func() error { d.sales = watch(src.SalesLast7DaysQuery()); return nil })
	g.Go(func() error { d.comparison = watch(src.SalesComparisonQuery()); return nil })
	g.Wait()

	return d
}

type DashboardView struct {
	Summary         cache.QueryState
	SalesLast7Days  cache.QueryState
	SalesComparison cache.QueryState
}

func (d *Dashboard) View() DashboardView {
	return DashboardView{
		Summary:         d.summary.State(),
		SalesLast7Days:  d.sales.State(),
		SalesComparison: d.comparison.State(),
	}
}

// SummaryData is a typed accessor for the summary tiles.
func (v DashboardView) SummaryData() (domain.DashboardSummary, bool) {
	return cache.Data[domain.DashboardSummary](v.Summary)
}

func (v DashboardView) SalesData() ([]domain.DailySalesData, bool) {
	return cache.Data[[]domain.DailySalesData](v.SalesLast7Days)
}

func (v DashboardView) ComparisonData() (domain.SalesComparison, bool) {
	return cache.Data[domain.SalesComparison](v.SalesComparison)
}

// Refetch retries all three aggregates.
func (d *Dashboard) Refetch(ctx context.Context) error {
	var g errgroup.Group
	for _, q := range []*cache.Query{d.summary, d.sales, d.comparison} {
		q := q
		g.Go(func() error { return q.Refetch(ctx) })
	}
	return g.Wait()
}

func (d *Dashboard) Close() {
	d.summary.Close()
	d.sales.Close()
	d.comparison.Close()
}
