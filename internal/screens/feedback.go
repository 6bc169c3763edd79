package screens

import (
	"context"
	"sync"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/filter"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// FeedbackSource provides the paginated suggestions read.
type FeedbackSource interface {
	ListQuery(page, size int, phone string) service.Query
}

// Feedback is the customer suggestions archive with a debounced phone search.
type Feedback struct {
	list
	src      FeedbackSource
	debounce *filter.Debouncer[string]

	mu    sync.Mutex
	page  int
	phone string
	input string
}

func NewFeedback(ctx context.Context, c *cache.Cache, src FeedbackSource, cfg ScreenConfig) *Feedback {
	s := &Feedback{src: src}
	s.debounce = filter.NewDebouncer(cfg.Debounce, s.applyPhone)
	s.list = mount(ctx, c, cfg, src.ListQuery(0, cfg.PageSize, ""), nil)
	return s
}

type FeedbackView struct {
	State       cache.QueryState
	Page        int
	Phone       string
	SearchInput string
}

func (s *Feedback) View() FeedbackView {
	s.mu.Lock()
	v := FeedbackView{Page: s.page, Phone: s.phone, SearchInput: s.input}
	s.mu.Unlock()
	v.State = s.State()
	return v
}

func (s *Feedback) SetPhoneSearch(phone string) {
	s.mu.Lock()
	s.input = phone
	s.mu.Unlock()
	s.debounce.Trigger(phone)
}

func (s *Feedback) FlushSearch() {
	s.debounce.Flush()
}

func (s *Feedback) applyPhone(phone string) {
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.phone = phone
		s.page = 0
		return s.src.ListQuery(s.page, s.cfg.PageSize, s.phone)
	})
}

func (s *Feedback) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.page = page
		return s.src.ListQuery(s.page, s.cfg.PageSize, s.phone)
	})
}

func (s *Feedback) Close() {
	s.debounce.Stop()
	s.list.Close()
}
