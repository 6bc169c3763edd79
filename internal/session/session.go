// Package session holds the signed-in operator's credentials. The Manager is
// the only writer of the durable store and the single source the API client
// reads the bearer token from.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Storage field names shared by every Store implementation.
const (
	TokenField = "token"
	RoleField  = "role"
)

// ErrNoSession is returned by a Store when nothing has been persisted.
var ErrNoSession = errors.New("no session stored")

// Session is created on login and destroyed on logout or any 401.
type Session struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Store persists the session across process restarts.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Clear removes everything the store holds, not only the session fields.
	Clear(ctx context.Context) error
}

type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
	EventExpired   EventKind = "expired"
)

// Event is published whenever the authenticated session changes.
type Event struct {
	Kind EventKind
	Role string
}

// Manager owns the current session.
type Manager struct {
	store  Store
	logger *zap.Logger

	mu      sync.RWMutex
	current *Session

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewManager restores any persisted session from the store.
func NewManager(ctx context.Context, store Store, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		store:  store,
		logger: logger,
		subs:   make(map[int]chan Event),
	}

	s, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
	case err != nil:
		return nil, fmt.Errorf("failed to load session: %w", err)
	default:
		m.current = s
	}

	return m, nil
}

// Token returns the bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// Role returns the operator role, or "" when signed out.
func (m *Manager) Role() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Role
}

func (m *Manager) SignedIn() bool {
	return m.Token() != ""
}

// Login persists s and makes it current.
func (m *Manager) Login(ctx context.Context, s Session) error {
	if s.Token == "" {
		return errors.New("login response carried no token")
	}
	if err := m.store.Save(ctx, &s); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()

	m.logger.Info("Session started", zap.String("role", s.Role))
	m.publish(Event{Kind: EventSignedIn, Role: s.Role})
	return nil
}

// Logout clears the store and the in-memory session.
func (m *Manager) Logout(ctx context.Context) error {
	return m.end(ctx, EventSignedOut)
}

// Expire is the 401 path: same as Logout but reported as an expiry.
func (m *Manager) Expire(ctx context.Context) error {
	return m.end(ctx, EventExpired)
}

func (m *Manager) end(ctx context.Context, kind EventKind) error {
	m.mu.Lock()
	role := ""
	if m.current != nil {
		role = m.current.Role
	}
	m.current = nil
	m.mu.Unlock()

	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.Error("Failed to clear session store", zap.Error(err))
	}

	m.logger.Info("Session ended", zap.String("reason", string(kind)))
	m.publish(Event{Kind: kind, Role: role})

	if err != nil {
		return fmt.Errorf("failed to clear session store: %w", err)
	}
	return nil
}

// Subscribe returns a channel of session events and a function that stops
// delivery. Slow subscribers miss events rather than block the publisher.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

func (m *Manager) publish(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.logger.Warn("Dropping session event for slow subscriber", zap.String("kind", string(ev.Kind)))
		}
	}
}
