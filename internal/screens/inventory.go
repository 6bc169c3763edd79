package screens

import (
	"context"
	"sync"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/filter"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// ProductSource provides the catalogue read.
type ProductSource interface {
	ListQuery() service.Query
}

// Inventory loads the whole catalogue once and filters and pages it locally.
// Filter changes apply immediately and reset the page to 0.
type Inventory struct {
	list

	mu       sync.Mutex
	criteria filter.ProductCriteria
	page     int
}

func NewInventory(ctx context.Context, c *cache.Cache, products ProductSource, cfg ScreenConfig) *Inventory {
	s := &Inventory{
		criteria: filter.ProductCriteria{Threshold: cfg.LowStockThreshold},
	}
	s.list = mount(ctx, c, cfg, products.ListQuery(), nil)
	return s
}

// InventoryView is what the Inventory screen renders.
type InventoryView struct {
	State      cache.QueryState
	Criteria   filter.ProductCriteria
	Page       filter.PageResult[domain.Product]
	Categories []string
	LowStock   int
	OutOfStock int
}

func (s *Inventory) SetSearch(term string) {
	s.update(func(c *filter.ProductCriteria) { c.Search = term })
}

func (s *Inventory) SetCategory(category string) {
	s.update(func(c *filter.ProductCriteria) { c.Category = category })
}

// SetPriceRange takes a bracket label such as "Under $5"; "" clears it.
func (s *Inventory) SetPriceRange(label string) {
	s.update(func(c *filter.ProductCriteria) { c.PriceRange = label })
}

func (s *Inventory) SetStockStatus(status domain.StockStatus) {
	s.update(func(c *filter.ProductCriteria) { c.Stock = status })
}

func (s *Inventory) ClearFilters() {
	s.update(func(c *filter.ProductCriteria) {
		*c = filter.ProductCriteria{Threshold: c.Threshold}
	})
}

func (s *Inventory) update(fn func(*filter.ProductCriteria)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.criteria)
	s.page = 0
}

func (s *Inventory) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 {
		page = 0
	}
	s.page = page
}

func (s *Inventory) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// View recomputes the visible page from the cached catalogue.
func (s *Inventory) View() InventoryView {
	s.mu.Lock()
	criteria, page := s.criteria, s.page
	s.mu.Unlock()

	st := s.State()
	products, _ := cache.Data[[]domain.Product](st)
	matched := filter.Products(products, criteria)
	counts := filter.CountByStock(products, criteria.Threshold)

	return InventoryView{
		State:      st,
		Criteria:   criteria,
		Page:       filter.Paginate(matched, page, s.cfg.PageSize),
		Categories: filter.Categories(products),
		LowStock:   counts[domain.StockStatusLow],
		OutOfStock: counts[domain.StockStatusOut],
	}
}
