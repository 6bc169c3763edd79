// Package service holds the domain reads and writes behind each screen. Reads
// go through the query cache; writes notify, invalidate the reads they affect
// and leave an audit record.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/notify"
	"github.com/jafarshop/groceryadmin/internal/session"
)

// GenericError is shown when the backend gave no message.
const GenericError = "Something went wrong. Please try again."

// ErrNoChanges is returned by updates that would send an empty patch.
var ErrNoChanges = errors.New("no changes to save")

// AuditLog stores the outcome of admin mutations.
type AuditLog interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

// Query pairs a cache key with the loader for it.
type Query struct {
	Key   cache.Key
	Fetch cache.Fetcher
}

// Deps are shared by every service.
type Deps struct {
	API      *apiclient.Client
	Cache    *cache.Cache
	Sessions *session.Manager
	Notifier notify.Notifier
	Audit    AuditLog // optional
	Logger   *zap.Logger
}

// mutation describes one write for mutate.
type mutation struct {
	action     string
	target     string
	success    string
	fallback   string
	invalidate []cache.Key
}

// mutate runs fn and applies the shared outcome handling: on success the
// affected keys are invalidated and a success notification is emitted; on
// failure an error notification carries the backend message or the fallback.
// A 401 is not notified since the session has already ended.
func (d *Deps) mutate(ctx context.Context, m mutation, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		msg := apiclient.MessageOf(err, m.fallback)
		if !apiclient.IsUnauthorized(err) {
			d.Notifier.Error(msg)
		}
		d.Logger.Warn("Mutation failed",
			zap.String("action", m.action),
			zap.String("target", m.target),
			zap.Error(err),
		)
		d.record(ctx, m.action, m.target, domain.AuditOutcomeFailure, msg)
		return err
	}

	d.invalidate(ctx, m.invalidate...)
	d.Notifier.Success(m.success)
	d.record(ctx, m.action, m.target, domain.AuditOutcomeSuccess, m.success)
	return nil
}

func (d *Deps) invalidate(ctx context.Context, keys ...cache.Key) {
	if len(keys) == 0 {
		return
	}
	if err := d.Cache.Invalidate(ctx, keys...); err != nil {
		// the mounted query now shows its own error state
		d.Logger.Debug("Refetch after invalidation failed", zap.Error(err))
	}
}

func (d *Deps) record(ctx context.Context, action, target, outcome, message string) {
	if d.Audit == nil {
		return
	}

	entry := &domain.AuditEntry{
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if d.Sessions != nil {
		entry.Role = d.Sessions.Role()
	}

	if err := d.Audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		d.Logger.Error("Failed to write audit entry", zap.String("action", action), zap.Error(err))
	}
}

// Services bundles every domain service.
type Services struct {
	Auth      *authService
	Products  *productService
	Orders    *orderService
	Feedback  *feedbackService
	Issues    *issueService
	Dashboard *dashboardService
}

// New creates all services over the same dependencies.
func New(deps *Deps) *Services {
	return &Services{
		Auth:      NewAuthService(deps),
		Products:  NewProductService(deps),
		Orders:    NewOrderService(deps),
		Feedback:  NewFeedbackService(deps),
		Issues:    NewIssueService(deps),
		Dashboard: NewDashboardService(deps),
	}
}
