package gateway

import (
	"sync"

	"payflow_app/internal/models"
)

// Factory builds a gateway instance from a stored configuration. A fresh
// instance is produced per resolution; factories must not share mutable
// state between the gateways they return.
type Factory func(cfg *models.GatewayConfig) (Gateway, error)

// Registry stores the mapping of gateway tags to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry is the process-wide registry the entry points register into
var DefaultRegistry = NewRegistry()

// Register adds a factory for a gateway tag
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// Get retrieves the factory for a gateway tag
func (r *Registry) Get(tag string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[tag]
	return factory, ok
}

// Tags returns the registered gateway tags
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	return tags
}

// Register is a helper to register to the default registry
func Register(tag string, factory Factory) {
	DefaultRegistry.Register(tag, factory)
}
