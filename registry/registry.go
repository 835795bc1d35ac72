// Package registry provides an explicit type-tag → schema mapping, built once
// at startup and passed by reference wherever schemas are dispatched by input
// type. It also adapts the mapping into a polymorphic relationship target.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/okanra/serigraph/schema"
)

// Registry maps type tags to schemas.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*schema.Schema
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{schemas: make(map[string]*schema.Schema)}
}

// Register binds tag to s. Registering the same tag twice is an error.
func (r *Registry) Register(tag string, s *schema.Schema) error {
	if tag == "" {
		return fmt.Errorf("registry: empty type tag")
	}
	if s == nil {
		return fmt.Errorf("registry: nil schema for tag %q", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[tag]; exists {
		return fmt.Errorf("registry: tag %q already registered", tag)
	}
	r.schemas[tag] = s
	return nil
}

// Lookup returns the schema bound to tag.
func (r *Registry) Lookup(tag string) (*schema.Schema, bool) {
	r.mu.RLock()
	s, ok := r.schemas[tag]
	r.mu.RUnlock()
	return s, ok
}

// Tags returns the registered tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	tags := make([]string, 0, len(r.schemas))
	for tag := range r.schemas {
		tags = append(tags, tag)
	}
	r.mu.RUnlock()
	sort.Strings(tags)
	return tags
}

// Resolver adapts the registry into a polymorphic relationship target; tag
// extracts the type tag from a related value.
func (r *Registry) Resolver(tag func(value any) string) schema.TargetResolver {
	return schema.TargetFunc(func(value any, _ schema.Params) (*schema.Schema, error) {
		t := tag(value)
		s, ok := r.Lookup(t)
		if !ok {
			return nil, fmt.Errorf("registry: no schema registered for tag %q", t)
		}
		return s, nil
	})
}
