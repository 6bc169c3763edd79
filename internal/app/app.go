// Package app wires the admin client from configuration. Both the CLI and the
// console server start from here.
package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/config"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/notify"
	"github.com/jafarshop/groceryadmin/internal/repository/postgres"
	"github.com/jafarshop/groceryadmin/internal/screens"
	"github.com/jafarshop/groceryadmin/internal/service"
	"github.com/jafarshop/groceryadmin/internal/session"
)

// AuditStore records mutations and lists them back.
type AuditStore interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

// App holds the long-lived pieces of a running admin client.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sessions *session.Manager
	Cache    *cache.Cache
	Services *service.Services
	Screens  *screens.Config
	Notes    *notify.Recorder
	Audit    AuditStore // nil unless AUDIT_ENABLED=true

	closers []io.Closer
	stop    context.CancelFunc
}

// New builds the session, API client, cache and services. opts are passed to
// the API client.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...apiclient.Option) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := a.sessionStore()
	if err != nil {
		return nil, err
	}

	a.Sessions, err = session.NewManager(ctx, store, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	a.Screens, err = screens.LoadConfig(cfg.ScreensFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Notes = notify.NewRecorder(100)
	notifier := notify.Multi{notify.NewLogNotifier(logger), a.Notes}

	a.Cache = cache.New(logger,
		cache.WithStaleTime(cfg.Cache.StaleTime),
		cache.WithGCTime(cfg.Cache.GCTime),
		cache.WithRetry(cfg.Cache.Retry, cfg.Cache.RetryDelay),
		cache.WithRetryIf(apiclient.Retryable),
		cache.WithErrorHandler(queryErrorNotifier(notifier)),
	)

	deps := &service.Deps{
		API:      apiclient.NewClient(cfg.API, a.Sessions, logger, opts...),
		Cache:    a.Cache,
		Sessions: a.Sessions,
		Notifier: notifier,
		Logger:   logger,
	}

	if cfg.Database.Enabled {
		if err := a.openAudit(ctx); err != nil {
			a.Close()
			return nil, err
		}
		deps.Audit = a.Audit
	}

	a.Services = service.New(deps)

	watchCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	a.stop = stop
	go service.ClearOnSignOut(watchCtx, a.Sessions, a.Cache, logger)

	return a, nil
}

// queryErrorNotifier tells the user about failed screen loads that were the
// network's or the server's fault. Other failures show inline on the screen.
func queryErrorNotifier(n notify.Notifier) func(cache.Key, error) {
	return func(_ cache.Key, err error) {
		if apiclient.Transient(err) {
			n.Error(service.GenericError)
		}
	}
}

func (a *App) sessionStore() (session.Store, error) {
	switch a.Config.Session.Store {
	case "redis":
		store, err := session.NewRedisStore(a.Config.Session.RedisURL, a.Config.Session.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to session redis: %w", err)
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return session.NewFileStore(a.Config.Session.FilePath), nil
	}
}

func (a *App) openAudit(ctx context.Context) error {
	db, err := postgres.NewConnection(a.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to audit database: %w", err)
	}
	a.closers = append(a.closers, db)

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	a.Audit = postgres.NewAuditRepository(db, a.Logger)
	return nil
}

// Close stops background work and releases the session store and database.
func (a *App) Close() error {
	if a.stop != nil {
		a.stop()
	}
	if a.Cache != nil {
		a.Cache.Wait()
	}

	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewLogger returns a development logger outside production, honouring LOG_LEVEL.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level

	return zcfg.Build()
}
