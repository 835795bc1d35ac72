// Package keycase implements the opt-in recursive key-renaming pass that
// rewrites snake_case output keys to lowerCamelCase. The pass runs over the
// final assembled output, outside the resolution engine, and is bounded by a
// depth guard.
package keycase

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxDepth bounds the recursive pass on pathological inputs.
const DefaultMaxDepth = 64

// Key names repeat across every record of a batch, so conversions are
// memoized. The cache is shared process-wide; entries are pure functions of
// the key string.
var cache *lru.Cache[string, string]

func init() {
	cache, _ = lru.New[string, string](4096)
}

// Camel converts a snake_case identifier to lowerCamelCase. Already-camel
// keys pass through unchanged.
func Camel(s string) string {
	if cached, ok := cache.Get(s); ok {
		return cached
	}
	out := camel(s)
	cache.Add(s, out)
	return out
}

func camel(s string) string {
	if !strings.ContainsRune(s, '_') {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	first := true
	for _, part := range parts {
		if part == "" {
			continue
		}
		if first {
			b.WriteString(part)
			first = false
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}

// CamelizeKeys rewrites every map key in v to lowerCamelCase, recursing
// through nested maps and slices. Recursion stops at maxDepth and returns the
// subtree unchanged; maxDepth <= 0 means DefaultMaxDepth.
func CamelizeKeys(v any, maxDepth int) any {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return camelize(v, maxDepth)
}

func camelize(v any, budget int) any {
	if budget <= 0 {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[Camel(k)] = camelize(item, budget-1)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = camelize(item, budget-1)
		}
		return out
	default:
		return v
	}
}
