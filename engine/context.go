package engine

import (
	"context"
	"time"

	"github.com/okanra/serigraph/schema"
	"github.com/okanra/serigraph/within"
)

const (
	// DefaultMaxDepth is the recursion-depth ceiling when Options.MaxDepth is
	// unset. Depth counts object levels starting at 1 for the top-level
	// record, so the default permits nine relationship hops.
	DefaultMaxDepth = 10

	// DefaultParallelThreshold is the relationship count at which a call
	// switches from sequential to concurrent resolution.
	DefaultParallelThreshold = 3

	// DefaultRelationshipTimeout bounds each concurrently resolved
	// relationship.
	DefaultRelationshipTimeout = 30 * time.Second
)

// Pagination carries the pagination parameters injected under meta.
type Pagination struct {
	Page    int
	PerPage int
	Total   int
}

// Options is the option bag for one top-level serialize call.
type Options struct {
	// Within restricts which relationship paths may be traversed; nil means
	// unrestricted.
	Within *within.Tree

	// MaxDepth is the absolute recursion-depth ceiling (DefaultMaxDepth when
	// zero or negative).
	MaxDepth int

	// Root wraps the output as {Root: output} at the top level.
	Root string

	// Meta is injected as a sibling "meta" key at the top level. MetaFunc, if
	// set, is evaluated against the pre-serialization input and merged over
	// Meta.
	Meta     map[string]any
	MetaFunc func(input any) map[string]any

	// Pagination injects a "pagination" block under meta.
	Pagination *Pagination

	// ParallelThreshold is the relationship count at which resolution fans
	// out to a worker pool (DefaultParallelThreshold when zero or negative).
	ParallelThreshold int

	// RelationshipTimeout bounds each concurrently resolved relationship
	// (DefaultRelationshipTimeout when zero or negative).
	RelationshipTimeout time.Duration

	// Camelize rewrites output keys to lowerCamelCase as a post-processing
	// pass over the assembled output.
	Camelize bool

	// Params is forwarded verbatim to computation, condition, and
	// error-handler functions.
	Params schema.Params
}

// sctx is the serialization context threaded by value through recursive
// calls; each recursive step derives a copy and never mutates in place.
type sctx struct {
	ctx      context.Context
	depth    int
	maxDepth int
	within   *within.Tree
	opts     Options
}

func newSctx(ctx context.Context, opts Options) sctx {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.ParallelThreshold <= 0 {
		opts.ParallelThreshold = DefaultParallelThreshold
	}
	if opts.RelationshipTimeout <= 0 {
		opts.RelationshipTimeout = DefaultRelationshipTimeout
	}
	return sctx{
		ctx:      ctx,
		depth:    1,
		maxDepth: opts.MaxDepth,
		within:   opts.Within,
		opts:     opts,
	}
}

// child derives the context for a nested call: depth incremented, within-tree
// narrowed to w, same option bag.
func (c sctx) child(w *within.Tree) sctx {
	c.depth++
	c.within = w
	return c
}

// atDepthBudget reports whether descending one more level would exceed the
// depth ceiling.
func (c sctx) atDepthBudget() bool { return c.depth >= c.maxDepth }
