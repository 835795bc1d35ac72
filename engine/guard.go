package engine

import (
	"github.com/okanra/serigraph/schema"
	"github.com/okanra/serigraph/within"
)

// Circular-reference guard: object graphs are frequently cyclic, so every
// relationship traversal is bounded by two independent controls — the
// within-permission tree (which names may be traversed at each level) and the
// depth budget (an absolute ceiling regardless of permissions). Either
// control, when it blocks, resolves the relationship to its
// cardinality-appropriate empty value without invoking the target schema.

// guardDecision is the outcome of applying both controls to one traversal.
type guardDecision struct {
	descend bool
	child   *within.Tree // within-tree for the nested call, when descending
}

func (c sctx) guard(name string) guardDecision {
	child, allowed := c.within.Step(name)
	if !allowed {
		return guardDecision{}
	}
	if c.atDepthBudget() {
		return guardDecision{}
	}
	return guardDecision{descend: true, child: child}
}

// emptyValue is the cardinality-appropriate empty result: nil for one, an
// empty sequence for many.
func emptyValue(card schema.Cardinality) any {
	if card == schema.Many {
		return []any{}
	}
	return nil
}
