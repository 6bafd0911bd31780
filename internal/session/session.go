// Package session holds the authenticated identity of a client process.
// A Manager is created once, hydrated from its Store at startup and
// passed explicitly to everything that issues authenticated calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/models"
)

// LoginTimeout is the longest a login attempt may wait for the server.
const LoginTimeout = 10 * time.Second

var (
	ErrNoSession    = errors.New("no hay una sesión activa")
	ErrLoginTimeout = errors.New("el servidor no respondió a tiempo, intente nuevamente")
	ErrMissingInput = errors.New("usuario y contraseña son obligatorios")
)

// Session is what gets persisted between runs.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"usuario"`
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
}

// Manager owns the current session.
type Manager struct {
	mu      sync.RWMutex
	store   Store
	current *Session
	timeout time.Duration
}

// NewManager creates a manager backed by store. Call Hydrate before use.
func NewManager(store Store) *Manager {
	return &Manager{store: store, timeout: LoginTimeout}
}

// Hydrate loads the persisted session, if any.
func (m *Manager) Hydrate() error {
	s, err := m.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s.Token == "" {
		return nil
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

// Login authenticates and persists the new session. The call is abandoned
// with ErrLoginTimeout when the server takes longer than LoginTimeout.
func (m *Manager) Login(ctx context.Context, auth Authenticator, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingInput
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := auth.Login(ctx, username, password)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrLoginTimeout
		}
		return nil, err
	}

	s := &Session{Token: resp.Token, User: resp.User}
	if err := m.store.Save(*s); err != nil {
		log.WithError(err).Warn("Failed to persist session")
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

// Logout clears the session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	return m.store.Clear()
}

// Expire clears the session after the server rejected its token. It
// returns true only for the call that actually ended an active session,
// so concurrent rejections notify the user once.
func (m *Manager) Expire() bool {
	m.mu.Lock()
	active := m.current != nil
	m.current = nil
	m.mu.Unlock()
	if !active {
		return false
	}
	if err := m.store.Clear(); err != nil {
		log.WithError(err).Warn("Failed to clear persisted session")
	}
	return true
}

// Token returns the bearer token, empty when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// User returns the logged-in user.
func (m *Manager) User() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return models.User{}, false
	}
	return m.current.User, true
}

// Authenticated reports whether a session is active.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// CanWrite reports whether mutating controls should be offered. The
// server enforces the same rule.
func (m *Manager) CanWrite() bool {
	u, ok := m.User()
	return ok && u.Role.CanWrite()
}
