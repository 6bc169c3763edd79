package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

type issueService struct {
	deps *Deps
}

// NewIssueService creates a new support ticket service
func NewIssueService(deps *Deps) *issueService {
	return &issueService{deps: deps}
}

func issuePath(id int64, suffix string) string {
	return "/admin/issues/" + strconv.FormatInt(id, 10) + suffix
}

func (s *issueService) ListQuery(page, size int, status domain.IssueStatus, severity domain.Severity) Query {
	return Query{
		Key: IssuesKey(page, size, status, severity),
		Fetch: cache.Typed(func(ctx context.Context) (apiclient.Page[domain.Issue], error) {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			if size > 0 {
				q.Set("size", strconv.Itoa(size))
			}
			if status != "" {
				q.Set("status", string(status))
			}
			if severity != "" {
				q.Set("severity", string(severity))
			}
			return apiclient.Get[apiclient.Page[domain.Issue]](ctx, s.deps.API, "/admin/issues", q)
		}),
	}
}

func (s *issueService) List(ctx context.Context, page, size int, status domain.IssueStatus, severity domain.Severity) (apiclient.Page[domain.Issue], error) {
	q := s.ListQuery(page, size, status, severity)
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return apiclient.Page[domain.Issue]{}, err
	}
	out, _ := v.(apiclient.Page[domain.Issue])
	return out, nil
}

// Acknowledge picks up an OPEN ticket.
func (s *issueService) Acknowledge(ctx context.Context, id int64, current domain.IssueStatus) error {
	if !current.CanAcknowledge() {
		return &errors.ErrInvalidStateTransition{From: string(current), To: string(domain.IssueStatusInProgress)}
	}
	return s.transition(ctx, id, "/acknowledge", "Issue acknowledged", "Failed to acknowledge issue")
}

// Resolve closes an OPEN or IN_PROGRESS ticket.
func (s *issueService) Resolve(ctx context.Context, id int64, current domain.IssueStatus) error {
	if !current.CanResolve() {
		return &errors.ErrInvalidStateTransition{From: string(current), To: string(domain.IssueStatusResolved)}
	}
	return s.transition(ctx, id, "/resolve", "Issue resolved", "Failed to resolve issue")
}

func (s *issueService) transition(ctx context.Context, id int64, suffix, success, fallback string) error {
	return s.deps.mutate(ctx, mutation{
		action:     "issue" + suffix,
		target:     "issue:" + strconv.FormatInt(id, 10),
		success:    success,
		fallback:   fallback,
		invalidate: []cache.Key{cache.K(KeyIssues), cache.K(KeyDashboardSummary)},
	}, func(ctx context.Context) error {
		return s.deps.API.Do(ctx, http.MethodPatch, issuePath(id, suffix), nil, nil, nil)
	})
}
