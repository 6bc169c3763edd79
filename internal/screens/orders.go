package screens

import (
	"context"
	"sync"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/filter"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// OrderSource provides the paginated order read.
type OrderSource interface {
	ListQuery(f service.OrderFilter) service.Query
}

// Orders is the server-paginated order board. The phone search is debounced;
// status and date filters apply at once. Every filter change resets the page.
type Orders struct {
	list
	src      OrderSource
	debounce *filter.Debouncer[string]

	mu     sync.Mutex
	filter service.OrderFilter
	phone  string // raw search input, applied after the debounce
}

func NewOrders(ctx context.Context, c *cache.Cache, src OrderSource, cfg ScreenConfig) *Orders {
	s := &Orders{
		src:    src,
		filter: service.OrderFilter{Size: cfg.PageSize},
	}
	s.debounce = filter.NewDebouncer(cfg.Debounce, s.applyPhone)
	s.list = mount(ctx, c, cfg, src.ListQuery(s.filter), nil)
	return s
}

// OrdersView is what the Orders screen renders.
type OrdersView struct {
	State       cache.QueryState
	Filter      service.OrderFilter
	SearchInput string
}

func (s *Orders) Filter() service.OrderFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Orders) View() OrdersView {
	s.mu.Lock()
	f, phone := s.filter, s.phone
	s.mu.Unlock()
	return OrdersView{State: s.State(), Filter: f, SearchInput: phone}
}

// SetStatus selects a status tab; "" shows all.
func (s *Orders) SetStatus(status domain.OrderStatus) {
	s.apply(func(f *service.OrderFilter) { f.Status = status })
}

// SetDateRange filters by ISO dates, either may be empty.
func (s *Orders) SetDateRange(from, to string) {
	s.apply(func(f *service.OrderFilter) { f.From, f.To = from, to })
}

// SetPhoneSearch records keystrokes; the query follows once typing pauses.
func (s *Orders) SetPhoneSearch(phone string) {
	s.mu.Lock()
	s.phone = phone
	s.mu.Unlock()
	s.debounce.Trigger(phone)
}

// FlushSearch applies a pending phone search immediately.
func (s *Orders) FlushSearch() {
	s.debounce.Flush()
}

func (s *Orders) applyPhone(phone string) {
	s.apply(func(f *service.OrderFilter) { f.Phone = phone })
}

func (s *Orders) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.filter.Page = page
		return s.src.ListQuery(s.filter)
	})
}

func (s *Orders) apply(fn func(*service.OrderFilter)) {
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(&s.filter)
		s.filter.Page = 0
		return s.src.ListQuery(s.filter)
	})
}

func (s *Orders) Close() {
	s.debounce.Stop()
	s.list.Close()
}
