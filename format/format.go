// Package format provides the named formatter registry used by schema
// descriptors. Formatter references are resolved by name once at schema build
// time; the engine only ever sees the resolved function.
package format

import (
	"fmt"
	"sort"
	"sync"
)

// Formatter renders a resolved value for output. arg is the optional argument
// configured on the field descriptor (empty when not configured).
type Formatter func(value any, arg string) (any, error)

// UnknownFormatterError is returned when a schema references a formatter name
// that is not registered.
type UnknownFormatterError struct {
	Name string
}

func (e *UnknownFormatterError) Error() string {
	return fmt.Sprintf("unknown formatter %q", e.Name)
}

// Registry maps formatter names to implementations.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Formatter
}

// NewRegistry returns a registry seeded with the built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{m: make(map[string]Formatter, len(builtins))}
	for name, f := range builtins {
		r.m[name] = f
	}
	return r
}

// Register adds or replaces a formatter under name.
func (r *Registry) Register(name string, f Formatter) {
	r.mu.Lock()
	r.m[name] = f
	r.mu.Unlock()
}

// Lookup resolves a formatter by name.
func (r *Registry) Lookup(name string) (Formatter, error) {
	r.mu.RLock()
	f, ok := r.m[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownFormatterError{Name: name}
	}
	return f, nil
}

// Names returns the registered formatter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds a formatter to the default registry.
func Register(name string, f Formatter) { defaultRegistry.Register(name, f) }

// Lookup resolves a formatter from the default registry.
func Lookup(name string) (Formatter, error) { return defaultRegistry.Lookup(name) }
