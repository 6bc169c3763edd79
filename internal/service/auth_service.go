package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/session"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

type authService struct {
	deps *Deps
}

// NewAuthService creates a new auth service
func NewAuthService(deps *Deps) *authService {
	return &authService{deps: deps}
}

// Login exchanges phone and password for a session and persists it.
func (s *authService) Login(ctx context.Context, phone, password string) (*session.Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, &errors.ErrValidation{Field: "phone", Message: "phone is required"}
	}
	if password == "" {
		return nil, &errors.ErrValidation{Field: "password", Message: "password is required"}
	}

	var resp LoginResponse
	err := s.deps.API.Do(ctx, http.MethodPost, "/auth/login", nil, LoginRequest{Phone: phone, Password: password}, &resp)
	if err != nil {
		s.deps.Logger.Warn("Login failed", zap.Error(err))
		return nil, err
	}

	sess := session.Session{Token: resp.Token, Role: resp.Role}
	if err := s.deps.Sessions.Login(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.deps.record(ctx, "login", phone, domain.AuditOutcomeSuccess, "signed in")
	return &sess, nil
}

// Logout ends the session and drops every cached read.
func (s *authService) Logout(ctx context.Context) error {
	s.deps.Cache.Clear()
	return s.deps.Sessions.Logout(ctx)
}

// ClearOnSignOut drops cached data whenever the session ends, including the
// 401 path where the API client expires it. It returns when ctx is done.
func ClearOnSignOut(ctx context.Context, sessions *session.Manager, c *cache.Cache, logger *zap.Logger) {
	events, stop := sessions.Subscribe()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == session.EventSignedOut || ev.Kind == session.EventExpired {
				c.Clear()
				logger.Info("Cleared query cache", zap.String("reason", string(ev.Kind)))
			}
		}
	}
}
