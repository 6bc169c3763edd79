package service

import (
	"context"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
)

type dashboardService struct {
	deps *Deps
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(deps *Deps) *dashboardService {
	return &dashboardService{deps: deps}
}

func (s *dashboardService) SummaryQuery() Query {
	return Query{
		Key: cache.K(KeyDashboardSummary),
		Fetch: cache.Typed(func(ctx context.Context) (domain.DashboardSummary, error) {
			return apiclient.Get[domain.DashboardSummary](ctx, s.deps.API, "/admin/dashboard/summary", nil)
		}),
	}
}

func (s *dashboardService) SalesLast7DaysQuery() Query {
	return Query{
		Key: cache.K(KeySales7Days),
		Fetch: cache.Typed(func(ctx context.Context) ([]domain.DailySalesData, error) {
			return apiclient.Get[[]domain.DailySalesData](ctx, s.deps.API, "/admin/analytics/sales/7-days", nil)
		}),
	}
}

func (s *dashboardService) SalesComparisonQuery() Query {
	return Query{
		Key: cache.K(KeySalesComparison),
		Fetch: cache.Typed(func(ctx context.Context) (domain.SalesComparison, error) {
			return apiclient.Get[domain.SalesComparison](ctx, s.deps.API, "/admin/analytics/sales/today-vs-yesterday", nil)
		}),
	}
}

func (s *dashboardService) Summary(ctx context.Context) (domain.DashboardSummary, error) {
	q := s.SummaryQuery()
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	out, _ := v.(domain.DashboardSummary)
	return out, nil
}

func (s *dashboardService) SalesLast7Days(ctx context.Context) ([]domain.DailySalesData, error) {
	q := s.SalesLast7DaysQuery()
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return nil, err
	}
	out, _ := v.([]domain.DailySalesData)
	return out, nil
}

func (s *dashboardService) SalesComparison(ctx context.Context) (domain.SalesComparison, error) {
	q := s.SalesComparisonQuery()
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return domain.SalesComparison{}, err
	}
	out, _ := v.(domain.SalesComparison)
	return out, nil
}
