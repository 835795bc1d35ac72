package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okanra/serigraph/internal/eventbus"
	"github.com/okanra/serigraph/internal/events"
	"github.com/okanra/serigraph/schema"
)

// resolveRelationships resolves every relationship descriptor of s against
// input. Below the parallel threshold relationships resolve sequentially in
// declaration order; at or above it they fan out to a worker pool bounded by
// hardware concurrency, each with an independent timeout. Both paths produce
// the same key/value set for the same input.
func resolveRelationships(c sctx, s *schema.Schema, input any) (map[string]any, error) {
	rels := s.Relationships
	out := make(map[string]any, len(rels))
	if len(rels) == 0 {
		return out, nil
	}
	if len(rels) >= c.opts.ParallelThreshold {
		return resolveConcurrent(c, s, input)
	}
	for _, r := range rels {
		v, include, err := runRelationship(c, s, r, input, false)
		if err != nil {
			return nil, err
		}
		if include {
			out[r.Name] = v
		}
	}
	return out, nil
}

type relResult struct {
	value   any
	include bool
	err     error
}

func resolveConcurrent(c sctx, s *schema.Schema, input any) (map[string]any, error) {
	rels := s.Relationships
	results := make([]relResult, len(rels))

	workers := runtime.NumCPU()
	if workers > len(rels) {
		workers = len(rels)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = resolveWithTimeout(c, s, rels[i], input)
			}
		}()
	}
	for i := range rels {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := make(map[string]any, len(rels))
	for i, r := range rels {
		res := results[i]
		if res.err != nil {
			// First failure in declaration order, matching the sequential path.
			return nil, res.err
		}
		if res.include {
			out[r.Name] = res.value
		}
	}
	return out, nil
}

// resolveWithTimeout runs one relationship under its independent timeout. A
// timed-out relationship with no explicit on-error policy is dropped from the
// output (with a diagnostic emitted) rather than aborting its siblings; an
// explicit policy decides otherwise.
func resolveWithTimeout(c sctx, s *schema.Schema, r *schema.Relationship, input any) relResult {
	tctx, cancel := context.WithTimeout(c.ctx, c.opts.RelationshipTimeout)
	defer cancel()
	cc := c
	cc.ctx = tctx

	var id string
	start := time.Now()
	if eventbus.Enabled() {
		id = uuid.NewString()
		eventbus.Publish(c.ctx, events.RelationshipStart{
			ID:           id,
			Schema:       s.Name,
			Relationship: r.Name,
			Depth:        c.depth,
			Concurrent:   true,
		})
	}

	done := make(chan relResult, 1)
	go func() {
		v, include, err := resolveRelationship(cc, r, input)
		done <- relResult{value: v, include: include, err: err}
	}()

	select {
	case res := <-done:
		if eventbus.Enabled() {
			eventbus.Publish(c.ctx, events.RelationshipFinish{
				ID:           id,
				Schema:       s.Name,
				Relationship: r.Name,
				Duration:     time.Since(start),
				Err:          res.err,
			})
		}
		return res
	case <-tctx.Done():
		terr := &RelationshipTimeoutError{Relationship: r.Name, Timeout: c.opts.RelationshipTimeout}
		if r.OnError.Kind == schema.PolicyPropagate {
			if eventbus.Enabled() {
				eventbus.Publish(c.ctx, events.RelationshipDropped{
					ID:           id,
					Schema:       s.Name,
					Relationship: r.Name,
					Reason:       "timeout",
					Err:          terr,
				})
			}
			return relResult{include: false}
		}
		v, include, err := evalPolicy(r.OnError, r.Name, terr, input, c.opts.Params)
		if eventbus.Enabled() {
			eventbus.Publish(c.ctx, events.RelationshipFinish{
				ID:           id,
				Schema:       s.Name,
				Relationship: r.Name,
				Duration:     time.Since(start),
				Err:          err,
			})
		}
		return relResult{value: v, include: include, err: err}
	}
}

// runRelationship is the sequential path: resolve one relationship inline,
// bracketed by diagnostic events.
func runRelationship(c sctx, s *schema.Schema, r *schema.Relationship, input any, concurrent bool) (any, bool, error) {
	if !eventbus.Enabled() {
		return resolveRelationship(c, r, input)
	}
	id := uuid.NewString()
	start := time.Now()
	eventbus.Publish(c.ctx, events.RelationshipStart{
		ID:           id,
		Schema:       s.Name,
		Relationship: r.Name,
		Depth:        c.depth,
		Concurrent:   concurrent,
	})
	v, include, err := resolveRelationship(c, r, input)
	eventbus.Publish(c.ctx, events.RelationshipFinish{
		ID:           id,
		Schema:       s.Name,
		Relationship: r.Name,
		Duration:     time.Since(start),
		Err:          err,
	})
	return v, include, err
}

// resolveRelationship resolves one relationship descriptor: condition, source
// value, not-loaded policy, circular-reference guard, recursive descent, and
// the on-error policy on any failure.
func resolveRelationship(c sctx, r *schema.Relationship, input any) (any, bool, error) {
	params := c.opts.Params

	if r.Condition != nil {
		ok, err := r.Condition(input, params)
		if err != nil {
			return evalPolicy(r.OnError, r.Name, &ConditionError{Name: r.Name, Err: err}, input, params)
		}
		if !ok {
			return nil, false, nil
		}
	}

	var related any
	if r.Compute != nil {
		v, err := r.Compute(input, params)
		if err != nil {
			return evalPolicy(r.OnError, r.Name, &RelationshipComputationError{Relationship: r.Name, Err: err}, input, params)
		}
		related = v
	} else {
		related, _ = lookupKey(input, r.SourceKey())
	}

	// The "association not fetched" sentinel is distinct from nil/empty.
	if isNotLoaded(related) {
		switch r.OnMissing {
		case schema.MissingNull:
			return nil, true, nil
		case schema.MissingEmpty:
			return emptyValue(r.Cardinality), true, nil
		case schema.MissingPassThrough:
			// Hand the raw sentinel to the target schema below.
		}
	}

	d := c.guard(r.Name)
	if !d.descend {
		return emptyValue(r.Cardinality), true, nil
	}

	v, err := descend(c.child(d.child), r, related)
	if err != nil {
		// A reraise from any nesting level escapes to the top-level caller
		// untouched; everything else is subject to this relationship's policy.
		var serr *SerializationError
		if errors.As(err, &serr) {
			return nil, false, err
		}
		return evalPolicy(r.OnError, r.Name, err, input, params)
	}
	return v, true, nil
}

// descend invokes the full engine on the related value(s) with the derived
// context.
func descend(c sctx, r *schema.Relationship, related any) (any, error) {
	if r.Cardinality == schema.Many {
		if isNilValue(related) || isNotLoaded(related) {
			return []any{}, nil
		}
		items, ok := asSlice(related)
		if !ok {
			return nil, &RelationshipComputationError{
				Relationship: r.Name,
				Err:          fmt.Errorf("expected a sequence, got %T", related),
			}
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			if isNilValue(item) {
				out = append(out, nil)
				continue
			}
			target, err := targetFor(c, r, item)
			if err != nil {
				return nil, &RelationshipComputationError{Relationship: r.Name, Err: err}
			}
			m, err := serializeObject(c, target, item)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}

	if isNilValue(related) {
		return nil, nil
	}
	target, err := targetFor(c, r, related)
	if err != nil {
		return nil, &RelationshipComputationError{Relationship: r.Name, Err: err}
	}
	return serializeObject(c, target, related)
}

func targetFor(c sctx, r *schema.Relationship, value any) (*schema.Schema, error) {
	if r.Target != nil {
		return r.Target, nil
	}
	return r.Resolver.ResolveTarget(value, c.opts.Params)
}
