// Package runid threads a per-serialization run id through context so bus
// subscribers can correlate lifecycle events.
package runid

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// NewContext returns a copy of parent carrying a fresh run id, and the id.
// If parent already carries one, it is reused.
func NewContext(parent context.Context) (context.Context, string) {
	if id, ok := FromContext(parent); ok {
		return parent, id
	}
	id := uuid.NewString()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the run id from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
