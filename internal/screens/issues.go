package screens

import (
	"context"
	"sync"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// IssueSource provides the paginated support ticket read.
type IssueSource interface {
	ListQuery(page, size int, status domain.IssueStatus, severity domain.Severity) service.Query
}

// Issues is the support ticket board with status and severity tabs.
type Issues struct {
	list
	src IssueSource

	mu       sync.Mutex
	page     int
	status   domain.IssueStatus
	severity domain.Severity
}

func NewIssues(ctx context.Context, c *cache.Cache, src IssueSource, cfg ScreenConfig) *Issues {
	s := &Issues{src: src}
	s.list = mount(ctx, c, cfg, src.ListQuery(0, cfg.PageSize, "", ""), nil)
	return s
}

type IssuesView struct {
	State    cache.QueryState
	Page     int
	Status   domain.IssueStatus
	Severity domain.Severity
}

func (s *Issues) View() IssuesView {
	s.mu.Lock()
	v := IssuesView{Page: s.page, Status: s.status, Severity: s.severity}
	s.mu.Unlock()
	v.State = s.State()
	return v
}

func (s *Issues) SetStatus(status domain.IssueStatus) {
	s.apply(func() { s.status = status })
}

func (s *Issues) SetSeverity(severity domain.Severity) {
	s.apply(func() { s.severity = severity })
}

func (s *Issues) apply(fn func()) {
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
		s.page = 0
		return s.src.ListQuery(s.page, s.cfg.PageSize, s.status, s.severity)
	})
}

func (s *Issues) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	s.show(func() service.Query {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.page = page
		return s.src.ListQuery(s.page, s.cfg.PageSize, s.status, s.severity)
	})
}
