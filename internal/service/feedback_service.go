package service

import (
	"context"
	"net/url"
	"strconv"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
)

type feedbackService struct {
	deps *Deps
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(deps *Deps) *feedbackService {
	return &feedbackService{deps: deps}
}

// ListQuery loads one page of customer suggestions, optionally by phone.
func (s *feedbackService) ListQuery(page, size int, phone string) Query {
	return Query{
		Key: SuggestionsKey(page, size, phone),
		Fetch: cache.Typed(func(ctx context.Context) (apiclient.Page[domain.Suggestion], error) {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			if size > 0 {
				q.Set("size", strconv.Itoa(size))
			}
			if phone != "" {
				q.Set("phone", phone)
			}
			return apiclient.Get[apiclient.Page[domain.Suggestion]](ctx, s.deps.API, "/admin/suggestions", q)
		}),
	}
}

func (s *feedbackService) List(ctx context.Context, page, size int, phone string) (apiclient.Page[domain.Suggestion], error) {
	q := s.ListQuery(page, size, phone)
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return apiclient.Page[domain.Suggestion]{}, err
	}
	out, _ := v.(apiclient.Page[domain.Suggestion])
	return out, nil
}
