// Package engine is the runtime resolution engine: it evaluates an input
// object graph against an immutable schema descriptor and produces a plain,
// JSON-ready nested map. Schemas are built elsewhere (schema.Builder, loader);
// the engine performs no I/O and holds no state across calls.
package engine

import (
	"context"
	"time"

	"github.com/okanra/serigraph/internal/eventbus"
	"github.com/okanra/serigraph/internal/events"
	"github.com/okanra/serigraph/internal/runid"
	"github.com/okanra/serigraph/keycase"
	"github.com/okanra/serigraph/schema"
)

// Serialize resolves input against s. Input may be nil, a single record-like
// value (map or struct), or a slice of such values, which is mapped
// element-wise. The result is a map[string]any, a []any, or nil.
//
// Errors escape only through the reraise policy or descriptors with no
// configured policy; everything else is absorbed per descriptor.
func Serialize(ctx context.Context, s *schema.Schema, input any, opts Options) (any, error) {
	ctx, _ = runid.NewContext(ctx)

	items, isList := asSlice(input)
	start := time.Now()
	if eventbus.Enabled() {
		count := 1
		if isList {
			count = len(items)
		}
		eventbus.Publish(ctx, events.SerializeStart{Schema: s.Name, Count: count})
	}

	out, err := serialize(ctx, s, input, items, isList, opts)

	if eventbus.Enabled() {
		eventbus.Publish(ctx, events.SerializeFinish{Schema: s.Name, Duration: time.Since(start), Err: err})
	}
	return out, err
}

// MustSerialize is Serialize panicking on error.
func MustSerialize(ctx context.Context, s *schema.Schema, input any, opts Options) any {
	out, err := Serialize(ctx, s, input, opts)
	if err != nil {
		panic(err)
	}
	return out
}

func serialize(ctx context.Context, s *schema.Schema, input any, items []any, isList bool, opts Options) (any, error) {
	// Top-level short-circuits: nothing to resolve, nothing to wrap.
	if isNilValue(input) {
		return nil, nil
	}
	if isList && len(items) == 0 {
		return []any{}, nil
	}

	c := newSctx(ctx, opts)

	var body any
	if isList {
		out := make([]any, 0, len(items))
		for _, item := range items {
			if isNilValue(item) {
				out = append(out, nil)
				continue
			}
			m, err := serializeObject(c, s, item)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		body = out
	} else {
		m, err := serializeObject(c, s, input)
		if err != nil {
			return nil, err
		}
		body = m
	}

	assembled := assemble(opts, input, body)
	if opts.Camelize {
		assembled = keycase.CamelizeKeys(assembled, 0)
	}
	return assembled, nil
}

// serializeObject runs the full engine on one record: fields, relationships,
// merge. Relationship keys take precedence on collision since they are merged
// second.
func serializeObject(c sctx, s *schema.Schema, input any) (map[string]any, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	out, err := resolveFields(c, s, input)
	if err != nil {
		return nil, err
	}
	rels, err := resolveRelationships(c, s, input)
	if err != nil {
		return nil, err
	}
	for k, v := range rels {
		out[k] = v
	}
	return out, nil
}
