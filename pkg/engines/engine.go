// Package engines defines the fitness-evaluator boundary of the search: a
// narrow interface that turns a demographic model plus a parameter assignment
// into a log-likelihood, and a registry of named engine factories. Concrete
// simulators (diffusion, coalescent) live outside this repository and plug in
// through this interface.
package engines

import (
	"context"
	"sync"

	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/errors"
)

// Engine evaluates the fit of a demographic model against observed data.
//
// Evaluate returns a log-likelihood (higher is better). It must be pure:
// identical inputs produce identical outputs, and the model is never mutated.
// grid carries engine-specific resolution parameters (e.g. diffusion grid
// sizes) and may be nil.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, model *demography.Model, values map[string]demography.Value, grid []int) (float64, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc struct {
	name string
	fn   func(ctx context.Context, model *demography.Model, values map[string]demography.Value, grid []int) (float64, error)
}

// NewEngineFunc wraps fn as a named Engine.
func NewEngineFunc(name string, fn func(ctx context.Context, model *demography.Model, values map[string]demography.Value, grid []int) (float64, error)) *EngineFunc {
	return &EngineFunc{name: name, fn: fn}
}

func (e *EngineFunc) Name() string { return e.name }

func (e *EngineFunc) Evaluate(ctx context.Context, model *demography.Model, values map[string]demography.Value, grid []int) (float64, error) {
	return e.fn(ctx, model, values, grid)
}

// Factory creates a fresh Engine instance.
type Factory func() (Engine, error)

// Registry maintains the available engine implementations by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds an engine factory under the given name, replacing any
// previous registration.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates the engine registered under name.
func (r *Registry) Create(name string) (Engine, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()
	if !exists {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "unknown engine"),
			errors.Fields{"engine": name})
	}
	return factory()
}

// All returns the registered engine names.
func (r *Registry) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

var defaultRegistry = NewRegistry()

// Register adds an engine factory to the package-level registry.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}

// Get instantiates an engine from the package-level registry.
func Get(name string) (Engine, error) {
	return defaultRegistry.Create(name)
}

// All lists the names in the package-level registry.
func All() []string {
	return defaultRegistry.All()
}
