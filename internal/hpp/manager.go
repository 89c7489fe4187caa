package hpp

import (
	"context"
	"log/slog"
	"sync"
)

// Manager tracks the live bridge for each wizard session. Re-entering the
// payment step replaces the session's bridge with a fresh one (a new form is
// mounted in a new container); the script bootstrap and token cache are
// shared across all bridges.
type Manager struct {
	loader  *ScriptLoader
	tokens  *TokenCache
	prov    SubscriptionProvisioner
	handler slog.Handler

	mu      sync.Mutex
	bridges map[string]*Bridge
}

// NewManager creates a bridge manager.
func NewManager(loader *ScriptLoader, tokens *TokenCache, prov SubscriptionProvisioner, handler slog.Handler) *Manager {
	return &Manager{
		loader:  loader,
		tokens:  tokens,
		prov:    prov,
		handler: handler,
		bridges: make(map[string]*Bridge),
	}
}

// Enter creates and starts a bridge for the session's payment step,
// replacing any previous bridge for that session.
func (m *Manager) Enter(ctx context.Context, cfg BridgeConfig) (*Bridge, error) {
	bridge, err := NewBridge(cfg, m.loader, m.tokens, m.prov, m.handler)
	if err != nil {
		return nil, err
	}
	if err := bridge.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.bridges[cfg.SessionID] = bridge
	m.mu.Unlock()
	return bridge, nil
}

// Get returns the live bridge for a session.
func (m *Manager) Get(sessionID string) (*Bridge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bridges[sessionID]
	return b, ok
}

// Remove drops the session's bridge, typically on completion or reset.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	delete(m.bridges, sessionID)
	m.mu.Unlock()
}
