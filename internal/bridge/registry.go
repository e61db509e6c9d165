package bridge

import (
	"errors"
	"fmt"
	"sync"
)

type registration struct {
	name     string
	provider ModuleProvider
}

// Registry collects module providers. Module ids follow registration order.
type Registry struct {
	mu      sync.Mutex
	modules []registration
	index   map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a module. Names must be unique and non-empty.
func (r *Registry) Register(name string, provider ModuleProvider) error {
	if name == "" {
		return errors.New("bridge: module name is empty")
	}
	if provider == nil {
		return fmt.Errorf("bridge: module %s: nil provider", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("%w: module %s", ErrDuplicate, name)
	}
	r.index[name] = len(r.modules)
	r.modules = append(r.modules, registration{name: name, provider: provider})
	return nil
}

// MustRegister is Register, panicking on error.
func (r *Registry) MustRegister(name string, provider ModuleProvider) {
	if err := r.Register(name, provider); err != nil {
		panic(err)
	}
}

// Names returns the registered module names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.name
	}
	return names
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modules)
}

func (r *Registry) snapshot() []registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]registration(nil), r.modules...)
}
