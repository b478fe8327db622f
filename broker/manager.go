package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager holds the authenticated adapters the router can dispatch to
type Manager struct {
	adapters map[string]Adapter
	mutex    sync.RWMutex
	logger   *logrus.Entry
}

// NewManager creates a new broker manager
func NewManager(logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		adapters: make(map[string]Adapter),
		logger:   logger.WithField("component", "broker_manager"),
	}
}

// AddAdapter adds an already authenticated adapter to the manager
func (m *Manager) AddAdapter(name string, adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter cannot be nil")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.adapters[name] = adapter
	m.logger.WithField("broker", name).Info("added broker")
	return nil
}

// Remove removes an adapter from the manager. Removing an unknown broker is not an error.
func (m *Manager) Remove(name string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.adapters[name]; exists {
		delete(m.adapters, name)
		m.logger.WithField("broker", name).Info("removed broker")
	}
}

// Get retrieves an adapter by name
func (m *Manager) Get(name string) (Adapter, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	adapter, exists := m.adapters[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBrokerNotFound, name)
	}
	return adapter, nil
}

// Names returns the sorted names of all managed adapters
func (m *Manager) Names() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(m.adapters))
	for name := range m.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configure authenticates the named broker with credentials and makes it
// available for dispatch. An existing adapter is re-authenticated in place.
func (m *Manager) Configure(ctx context.Context, name string, credentials *Credentials) error {
	m.mutex.RLock()
	adapter, exists := m.adapters[name]
	m.mutex.RUnlock()

	if !exists {
		created, err := Create(name)
		if err != nil {
			return fmt.Errorf("failed to create broker %s: %w", name, err)
		}
		adapter = created
	}

	if err := adapter.Authenticate(ctx, credentials); err != nil {
		return fmt.Errorf("failed to authenticate broker %s: %w", name, err)
	}

	return m.AddAdapter(name, adapter)
}

// GetPositions gets positions from a specific broker
func (m *Manager) GetPositions(ctx context.Context, name string) ([]Position, error) {
	adapter, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return adapter.GetPositions(ctx)
}

// CancelOrder cancels an order on a specific broker
func (m *Manager) CancelOrder(ctx context.Context, name, orderID string) error {
	adapter, err := m.Get(name)
	if err != nil {
		return err
	}
	return adapter.CancelOrder(ctx, orderID)
}

// GetAllPositions gets positions from all brokers, logging the ones that fail
func (m *Manager) GetAllPositions(ctx context.Context) map[string][]Position {
	m.mutex.RLock()
	adapters := make(map[string]Adapter, len(m.adapters))
	for name, adapter := range m.adapters {
		adapters[name] = adapter
	}
	m.mutex.RUnlock()

	results := make(map[string][]Position)
	for name, adapter := range adapters {
		positions, err := adapter.GetPositions(ctx)
		if err != nil {
			m.logger.WithError(err).WithField("broker", name).Warn("failed to get positions")
			continue
		}
		results[name] = positions
	}
	return results
}
