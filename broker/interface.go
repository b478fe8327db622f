package broker

import (
	"context"
	"sort"
	"sync"
)

// Adapter is the uniform contract every brokerage integration satisfies.
// The execution pipeline only ever talks to brokers through this interface.
type Adapter interface {
	// Name returns the broker identifier, e.g. "zerodha"
	Name() string

	// Authenticate stores credentials for subsequent calls. Calling it again
	// with the same credentials is a no-op.
	Authenticate(ctx context.Context, credentials *Credentials) error

	// PlaceOrder submits an order and returns the broker assigned id and status
	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)

	// GetPositions returns the open positions held at the broker
	GetPositions(ctx context.Context) ([]Position, error)

	// CancelOrder cancels a previously placed order
	CancelOrder(ctx context.Context, orderID string) error
}

// Factory creates a fresh, unauthenticated adapter
type Factory func() Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register registers an adapter factory under name
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Create creates a new adapter instance by name
func Create(name string) (Adapter, error) {
	registryMu.RLock()
	factory, exists := registry[name]
	registryMu.RUnlock()
	if !exists {
		return nil, ErrBrokerNotFound
	}
	return factory(), nil
}

// RegisteredBrokers returns the sorted names of all registered factories
func RegisteredBrokers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
