// Package channels maintains the registry of channel plugins and routes
// pairing-approved notifications to them.
package channels

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/pairgate/internal/config"
)

// Plugin is a channel integration that can deliver a pairing-approved
// notification back to its own transport.
type Plugin interface {
	Name() string
	NotifyPairingApproved(ctx context.Context, id string, cfg *config.Config) error
}

// Manager is the channel plugin registry.
type Manager struct {
	mu      sync.RWMutex
	order   []string
	plugins map[string]Plugin
}

func NewManager() *Manager {
	return &Manager{plugins: make(map[string]Plugin)}
}

// Register adds a plugin. Registration order is preserved in listings.
func (m *Manager) Register(p Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plugins[p.Name()]; !exists {
		m.order = append(m.order, p.Name())
	}
	m.plugins[p.Name()] = p
}

// ListPairingChannels returns the known channel identifiers in registration
// order.
func (m *Manager) ListPairingChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]string, len(m.order))
	copy(result, m.order)
	return result
}

// NotifyPairingApproved dispatches the notification for request id to the
// named channel's plugin. Extension channels have no local plugin; those are
// logged and skipped rather than treated as failures.
func (m *Manager) NotifyPairingApproved(ctx context.Context, channel, id string, cfg *config.Config) error {
	m.mu.RLock()
	plugin, ok := m.plugins[channel]
	m.mu.RUnlock()

	if !ok {
		slog.Warn("no plugin for channel, skipping pairing notification", "channel", channel, "id", id)
		return nil
	}
	return plugin.NotifyPairingApproved(ctx, id, cfg)
}
