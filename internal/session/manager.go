package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

// InvalidateFunc observes logout. The session is the one being discarded, nil when the
// stored token no longer decoded.
type InvalidateFunc func(ctx context.Context, key string, session *models.Session)

// Manager is the session context shared by every page. It owns the only writes to the
// token store and is the only place tokens are decoded.
type Manager struct {
	store  Store
	parser *Parser
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.RWMutex
	listeners []InvalidateFunc
}

// NewManager wires a store and parser.
func NewManager(store Store, parser *Parser, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = NewParser("")
	}
	return &Manager{store: store, parser: parser, ttl: ttl, logger: logger}
}

// Parser exposes the decoder for bearer tokens that bypass the store.
func (m *Manager) Parser() *Parser {
	return m.parser
}

// Token returns the raw stored token for key, "" when absent.
func (m *Manager) Token(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	token, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("session store read failed", zap.Error(err))
		return ""
	}
	return token
}

// Current decodes the stored token on every call. Absent and undecodable tokens both yield nil.
func (m *Manager) Current(ctx context.Context, key string) *models.Session {
	token := m.Token(ctx, key)
	if token == "" {
		return nil
	}
	session, err := m.parser.Decode(token)
	if err != nil {
		m.logger.Debug("stored token rejected", zap.Error(err))
		return nil
	}
	return session
}

// Establish stores token under key after checking that it decodes.
func (m *Manager) Establish(ctx context.Context, key, token string) (*models.Session, error) {
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrInternal, "missing session key")
	}
	session, err := m.parser.Decode(token)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, key, token, m.ttl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store session")
	}
	return session, nil
}

// Invalidate clears the token for key and notifies subscribers.
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	session := m.Current(ctx, key)
	if err := m.store.Delete(ctx, key); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "clear session")
	}

	m.mu.RLock()
	listeners := append([]InvalidateFunc(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, key, session)
	}
	return nil
}

// OnInvalidate subscribes fn to logout events.
func (m *Manager) OnInvalidate(fn InvalidateFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}
