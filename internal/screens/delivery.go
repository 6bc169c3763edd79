package screens

import (
	"context"
	"sort"
	"sync"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// DeliverySource provides the delivery board read and assignment.
type DeliverySource interface {
	DeliveryQuery(page, size int, status domain.OrderStatus) service.Query
	BulkAssign(ctx context.Context, ids []int64, phone string) (service.BulkAssignResult, error)
}

// Delivery is the delivery board: a server-paginated order list with a
// selection that can be assigned to one delivery person in bulk.
type Delivery struct {
	list
	src DeliverySource

	mu       sync.Mutex
	page     int
	status   domain.OrderStatus
	selected map[int64]struct{}
}

// NewDelivery mounts the board on the PACKED tab, the orders waiting for a driver.
func NewDelivery(ctx context.Context, c *cache.Cache, src DeliverySource, cfg ScreenConfig) *Delivery {
	s := &Delivery{
		src:      src,
		status:   domain.OrderStatusPacked,
		selected: make(map[int64]struct{}),
	}
	s.list = mount(ctx, c, cfg, src.DeliveryQuery(0, cfg.PageSize, s.status), nil)
	return s
}

type DeliveryView struct {
	State    cache.QueryState
	Status   domain.OrderStatus
	Page     int
	Selected []int64
}

func (s *Delivery) View() DeliveryView {
	s.mu.Lock()
	v := DeliveryView{Status: s.status, Page: s.page, Selected: s.selectedLocked()}
	s.mu.Unlock()
	v.State = s.State()
	return v
}

// SetStatus switches the tab, resets the page and clears the selection.
func (s *Delivery) SetStatus(status domain.OrderStatus) {
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.status = status
		s.page = 0
		s.selected = make(map[int64]struct{})
		return s.src.DeliveryQuery(s.page, s.cfg.PageSize, s.status)
	})
}

func (s *Delivery) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.page = page
		return s.src.DeliveryQuery(s.page, s.cfg.PageSize, s.status)
	})
}

// Toggle adds or removes one order from the selection.
func (s *Delivery) Toggle(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return
	}
	s.selected[id] = struct{}{}
}

// SelectAll selects every order on the current page.
func (s *Delivery) SelectAll() {
	orders := PageOf[domain.Order](s.State()).Content

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		s.selected[o.ID] = struct{}{}
	}
}

func (s *Delivery) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[int64]struct{})
}

func (s *Delivery) Selected() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Delivery) selectedLocked() []int64 {
	ids := make([]int64, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AssignSelected assigns the whole selection to phone. The selection is
// cleared only when every assignment succeeded, so a failed batch can be
// retried as is.
func (s *Delivery) AssignSelected(ctx context.Context, phone string) (service.BulkAssignResult, error) {
	ids := s.Selected()
	res, err := s.src.BulkAssign(ctx, ids, phone)
	if err != nil {
		return res, err
	}
	s.ClearSelection()
	return res, nil
}
