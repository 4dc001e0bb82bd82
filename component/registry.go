package component

import (
	"fmt"
	"maps"
	"sync"

	"github.com/openscripts/carrot2/errors"
)

// Factory creates a component instance from constructor parameters. The
// parameters have already been validated against the factory's schema.
// Factories perform no I/O; a lifecycle-capable component defers resource
// acquisition to its Start hook.
type Factory func(params map[string]any) (Component, error)

// Registration holds factory and metadata for a component type
type Registration struct {
	Name        string       `json:"name"` // Factory name (e.g., "search-source")
	Kind        Kind         `json:"kind"`
	Description string       `json:"description"`
	Version     string       `json:"version"`
	Schema      ConfigSchema `json:"schema"`
	Factory     Factory      `json:"-"` // Not serializable
}

// Registry manages component factories. It provides thread-safe
// registration and lookup; chain assembly resolves (factory name,
// parameters) pairs through it exactly once, before any component starts.
type Registry struct {
	factories map[string]*Registration
	mu        sync.RWMutex
}

// NewRegistry creates a new empty component registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Registration),
	}
}

// RegisterFactory registers a component factory with the given name.
// Returns an error if a factory with the same name is already registered.
func (r *Registry) RegisterFactory(name string, registration *Registration) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory name validation")
	}
	if registration == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "registration validation")
	}
	if registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory function validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		msg := fmt.Errorf("%w: %q", errors.ErrDuplicateFactory, name)
		return errors.WrapInvalid(msg, "Registry", "RegisterFactory", "duplicate factory check")
	}

	r.factories[name] = registration
	return nil
}

// Create instantiates a component from the named factory. Parameters are
// validated against the factory's schema before the factory runs, and
// schema defaults are applied for absent parameters.
func (r *Registry) Create(name string, params map[string]any) (Component, error) {
	r.mu.RLock()
	registration, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		msg := fmt.Errorf("%w: %q", errors.ErrUnknownFactory, name)
		return nil, errors.WrapInvalid(msg, "Registry", "Create", "factory lookup")
	}

	resolved := applyDefaults(params, registration.Schema)
	if verrs := ValidateParams(resolved, registration.Schema); len(verrs) > 0 {
		msg := fmt.Errorf("parameter %q: %s", verrs[0].Field, verrs[0].Message)
		return nil, errors.WrapInvalid(msg, "Registry", "Create", "parameter validation")
	}

	comp, err := registration.Factory(resolved)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", "factory execution")
	}
	return comp, nil
}

// Registration returns the registration for a factory name.
func (r *Registry) Registration(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.factories[name]
	return reg, ok
}

// ListFactories returns a copy of all registered factories by name.
func (r *Registry) ListFactories() map[string]*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Registration, len(r.factories))
	maps.Copy(result, r.factories)
	return result
}

// applyDefaults overlays schema defaults onto the supplied parameters
// without mutating the caller's map.
func applyDefaults(params map[string]any, schema ConfigSchema) map[string]any {
	resolved := make(map[string]any, len(params))
	maps.Copy(resolved, params)
	for field, prop := range schema.Properties {
		if prop.Default == nil {
			continue
		}
		if _, present := resolved[field]; !present {
			resolved[field] = prop.Default
		}
	}
	return resolved
}
