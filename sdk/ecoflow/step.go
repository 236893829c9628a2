package ecoflow

import (
	"fmt"
	"sort"
	"sync"
)

// Step is one middleware step the plugin contributes to the host's pipeline.
// Handle must write exactly one outcome into the payload's msg envelope per
// invocation and call next only when its contract allows the pipeline to
// continue.
type Step interface {
	// Name returns the step's type identifier, unique within the plugin.
	Name() string

	// Fields returns the step's declared input schema.
	Fields() []FieldSpec

	// Handle runs the step against one request.
	Handle(c *Context, inputs Inputs, next Next)
}

// Factory builds a step instance for the host.
type Factory func() (Step, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register registers a step factory under a type identifier. Empty names and
// nil factories are ignored; re-registering a name replaces the factory.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[name] = factory
	registryMu.Unlock()
}

// Build constructs the step registered under name.
func Build(name string) (Step, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ecoflow: step type %q is not registered", name)
	}
	step, err := factory()
	if err != nil {
		return nil, fmt.Errorf("ecoflow: failed to build step %q: %w", name, err)
	}
	return step, nil
}

// Registered returns the registered step type identifiers, sorted.
func Registered() []string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)
	return names
}
