package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

// ErrBulkAssignFailed is returned when any order of a bulk assignment failed.
var ErrBulkAssignFailed = stderrors.New("bulk assignment failed")

// maxParallelAssign bounds concurrent assign requests of one bulk assignment.
const maxParallelAssign = 8

type orderService struct {
	deps *Deps
}

// NewOrderService creates a new order service
func NewOrderService(deps *Deps) *orderService {
	return &orderService{deps: deps}
}

func orderPath(id int64, suffix string) string {
	return "/admin/orders/" + strconv.FormatInt(id, 10) + suffix
}

func orderTarget(id int64) string {
	return "order:" + strconv.FormatInt(id, 10)
}

func orderQuery(page, size int, status domain.OrderStatus, phone, from, to string) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	if status != "" {
		q.Set("status", string(status))
	}
	if phone != "" {
		q.Set("phone", phone)
	}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return q
}

// ListQuery loads one server-side page of orders.
func (s *orderService) ListQuery(f OrderFilter) Query {
	return Query{
		Key: OrdersKey(f),
		Fetch: cache.Typed(func(ctx context.Context) (apiclient.Page[domain.Order], error) {
			return apiclient.Get[apiclient.Page[domain.Order]](ctx, s.deps.API, "/admin/orders",
				orderQuery(f.Page, f.Size, f.Status, f.Phone, f.From, f.To))
		}),
	}
}

// DeliveryQuery loads one page of the delivery board.
func (s *orderService) DeliveryQuery(page, size int, status domain.OrderStatus) Query {
	return Query{
		Key: DeliveryOrdersKey(page, size, status),
		Fetch: cache.Typed(func(ctx context.Context) (apiclient.Page[domain.Order], error) {
			return apiclient.Get[apiclient.Page[domain.Order]](ctx, s.deps.API, "/admin/orders",
				orderQuery(page, size, status, "", "", ""))
		}),
	}
}

func (s *orderService) DetailsQuery(id int64) Query {
	return Query{
		Key: OrderDetailsKey(id),
		Fetch: cache.Typed(func(ctx context.Context) (domain.OrderDetails, error) {
			return apiclient.Get[domain.OrderDetails](ctx, s.deps.API, "/admin/orders/getdetails/"+strconv.FormatInt(id, 10), nil)
		}),
	}
}

func (s *orderService) TimelineQuery(id int64) Query {
	return Query{
		Key: OrderTimelineKey(id),
		Fetch: cache.Typed(func(ctx context.Context) ([]domain.TimelineEvent, error) {
			return apiclient.Get[[]domain.TimelineEvent](ctx, s.deps.API, orderPath(id, "/timeline"), nil)
		}),
	}
}

func (s *orderService) List(ctx context.Context, f OrderFilter) (apiclient.Page[domain.Order], error) {
	q := s.ListQuery(f)
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return apiclient.Page[domain.Order]{}, err
	}
	page, _ := v.(apiclient.Page[domain.Order])
	return page, nil
}

// Delivery reads one page of the delivery board.
func (s *orderService) Delivery(ctx context.Context, page, size int, status domain.OrderStatus) (apiclient.Page[domain.Order], error) {
	q := s.DeliveryQuery(page, size, status)
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return apiclient.Page[domain.Order]{}, err
	}
	out, _ := v.(apiclient.Page[domain.Order])
	return out, nil
}

func (s *orderService) Details(ctx context.Context, id int64) (*domain.OrderDetails, error) {
	q := s.DetailsQuery(id)
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return nil, err
	}
	details, _ := v.(domain.OrderDetails)
	return &details, nil
}

func (s *orderService) Timeline(ctx context.Context, id int64) ([]domain.TimelineEvent, error) {
	q := s.TimelineQuery(id)
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return nil, err
	}
	events, _ := v.([]domain.TimelineEvent)
	return events, nil
}

// AdvanceStatus moves the order one step along
// ORDER_PLACED -> PACKED -> OUT_FOR_DELIVERY -> DELIVERED. No request is made
// from a terminal state.
func (s *orderService) AdvanceStatus(ctx context.Context, id int64, current domain.OrderStatus) (domain.OrderStatus, error) {
	next, ok := current.Next()
	if !ok {
		return current, errors.NewOrderTransitionError(current, "")
	}
	if err := s.UpdateStatus(ctx, id, current, next); err != nil {
		return current, err
	}
	return next, nil
}

// UpdateStatus requests a forward transition. Cancellation has its own endpoint.
func (s *orderService) UpdateStatus(ctx context.Context, id int64, current, target domain.OrderStatus) error {
	if target == domain.OrderStatusCancelled || !current.CanTransitionTo(target) {
		return errors.NewOrderTransitionError(current, target)
	}

	return s.deps.mutate(ctx, mutation{
		action:     "order.status",
		target:     orderTarget(id),
		success:    fmt.Sprintf("Order status updated to %s", target),
		fallback:   "Failed to update order status",
		invalidate: orderKeys(id),
	}, func(ctx context.Context) error {
		return s.deps.API.Do(ctx, http.MethodPatch, orderPath(id, "/status"), nil, StatusUpdateRequest{Status: target}, nil)
	})
}

// Cancel cancels a non-terminal order.
func (s *orderService) Cancel(ctx context.Context, id int64, current domain.OrderStatus) error {
	if !current.CanCancel() {
		return errors.NewOrderTransitionError(current, domain.OrderStatusCancelled)
	}

	return s.deps.mutate(ctx, mutation{
		action:     "order.cancel",
		target:     orderTarget(id),
		success:    "Order cancelled",
		fallback:   "Failed to cancel order",
		invalidate: orderKeys(id),
	}, func(ctx context.Context) error {
		return s.deps.API.Do(ctx, http.MethodPatch, orderPath(id, "/cancel"), nil, nil, nil)
	})
}

func validatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", &errors.ErrValidation{Field: "deliveryPhone", Message: "delivery person phone is required"}
	}
	return phone, nil
}

func (s *orderService) assign(ctx context.Context, id int64, phone string) error {
	q := url.Values{}
	q.Set("deliveryPhone", phone)
	return s.deps.API.Do(ctx, http.MethodPatch, orderPath(id, "/assign"), q, nil, nil)
}

// Assign gives one order to a delivery person.
func (s *orderService) Assign(ctx context.Context, id int64, phone string) error {
	phone, err := validatePhone(phone)
	if err != nil {
		return err
	}

	return s.deps.mutate(ctx, mutation{
		action:     "order.assign",
		target:     orderTarget(id),
		success:    "Delivery person assigned",
		fallback:   "Failed to assign delivery person",
		invalidate: orderKeys(id),
	}, func(ctx context.Context) error {
		return s.assign(ctx, id, phone)
	})
}

// BulkAssign assigns every order in ids to phone in parallel. Success is
// reported only when every request succeeded; otherwise one aggregate error
// notification is emitted and ErrBulkAssignFailed is returned together with
// the per-order results.
func (s *orderService) BulkAssign(ctx context.Context, ids []int64, phone string) (BulkAssignResult, error) {
	result := BulkAssignResult{Phone: phone}

	phone, err := validatePhone(phone)
	if err != nil {
		return result, err
	}
	if len(ids) == 0 {
		return result, &errors.ErrValidation{Field: "orders", Message: "select at least one order"}
	}
	result.Phone = phone

	var (
		results = make([]AssignResult, len(ids))
		g       errgroup.Group
	)
	g.SetLimit(maxParallelAssign)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			err := s.assign(ctx, id, phone)
			results[i] = AssignResult{OrderID: id, Err: err}
			return err
		})
	}
	firstErr := g.Wait()
	result.Results = results

	keys := []cache.Key{cache.K(KeyOrders), cache.K(KeyDeliveryOrders), cache.K(KeyOrderDetails), cache.K(KeyDashboardSummary)}
	target := fmt.Sprintf("orders:%d", len(ids))

	if firstErr == nil {
		s.deps.invalidate(ctx, keys...)
		msg := fmt.Sprintf("%d orders assigned to %s", len(ids), phone)
		s.deps.Notifier.Success(msg)
		s.deps.record(ctx, "order.bulk_assign", target, domain.AuditOutcomeSuccess, msg)
		return result, nil
	}

	failed := result.Failed()
	succeeded := result.Succeeded()
	s.deps.Logger.Warn("Bulk assignment failed",
		zap.Int64s("failed", failed),
		zap.Int64s("succeeded", succeeded),
		zap.Error(firstErr),
	)

	// Orders that did succeed changed on the server; refresh the boards.
	if len(succeeded) > 0 {
		s.deps.invalidate(ctx, keys...)
	}

	msg := apiclient.MessageOf(firstErr, "Failed to assign orders")
	if !apiclient.IsUnauthorized(firstErr) {
		s.deps.Notifier.Error(msg)
	}

	outcome := domain.AuditOutcomeFailure
	if len(succeeded) > 0 {
		outcome = domain.AuditOutcomePartial
	}
	s.deps.record(ctx, "order.bulk_assign", target, outcome,
		fmt.Sprintf("%s (failed: %s)", msg, joinIDs(failed)))

	return result, fmt.Errorf("%w: %d of %d orders: %w", ErrBulkAssignFailed, len(failed), len(ids), firstErr)
}

// Receipt downloads the invoice for an order.
func (s *orderService) Receipt(ctx context.Context, id int64) ([]byte, string, error) {
	data, contentType, err := s.deps.API.Download(ctx, orderPath(id, "/receipt"))
	if err != nil {
		if !apiclient.IsUnauthorized(err) {
			s.deps.Notifier.Error(apiclient.MessageOf(err, "Failed to download receipt"))
		}
		return nil, "", err
	}
	return data, contentType, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
