// Package schema defines the immutable descriptor model consumed by the
// serialization engine: a Schema is an ordered set of field and relationship
// descriptors for one object shape. Schemas are built once via Builder (or an
// external loader) and must not be mutated afterwards.
package schema

import (
	"fmt"

	"github.com/okanra/serigraph/format"
)

// Params is the bag of user options forwarded verbatim to computation,
// condition, and error-handler functions.
type Params map[string]any

// ComputeFunc derives a value from the input object instead of reading a
// source key.
type ComputeFunc func(input any, params Params) (any, error)

// TransformFunc rewrites a single resolved value before formatting.
type TransformFunc func(value any) (any, error)

// ConditionFunc decides whether a field or relationship is included at all.
type ConditionFunc func(input any, params Params) (bool, error)

// ErrorHandlerFunc is a custom on-error policy. Its return value becomes the
// resolved value; an error it returns itself propagates unwrapped.
type ErrorHandlerFunc func(err error, input any, params Params) (any, error)

// NotLoadedValue signals that an association was never fetched by the source
// system, as distinct from a nil or empty association. Data sources place
// NotLoaded where a related value would otherwise be.
type NotLoadedValue struct{}

// NotLoaded is the "association not fetched" sentinel.
var NotLoaded = NotLoadedValue{}

// PolicyKind enumerates the on-error policies.
type PolicyKind int

const (
	// PolicyPropagate is the zero value: no policy configured, the error
	// propagates unwrapped to the immediate caller.
	PolicyPropagate PolicyKind = iota
	PolicyNull
	PolicySkip
	PolicyDefault
	PolicyReraise
	PolicyHandler
)

// Policy is the configured fallback behavior when resolving a field or
// relationship fails.
type Policy struct {
	Kind    PolicyKind
	Value   any // literal result for PolicyDefault
	Handler ErrorHandlerFunc
}

var (
	// NullPolicy resolves a failed descriptor to nil.
	NullPolicy = Policy{Kind: PolicyNull}
	// SkipPolicy omits the key of a failed descriptor entirely.
	SkipPolicy = Policy{Kind: PolicySkip}
	// ReraisePolicy wraps the error and propagates it to the top-level caller.
	ReraisePolicy = Policy{Kind: PolicyReraise}
)

// DefaultPolicy resolves a failed descriptor to the literal v.
func DefaultPolicy(v any) Policy { return Policy{Kind: PolicyDefault, Value: v} }

// HandlerPolicy delegates to h; h's return value becomes the result.
func HandlerPolicy(h ErrorHandlerFunc) Policy { return Policy{Kind: PolicyHandler, Handler: h} }

// Cardinality is whether a relationship yields one related object or a
// sequence of them.
type Cardinality int

const (
	One Cardinality = iota + 1
	Many
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// OnMissing is the policy applied when a relationship's source value is the
// NotLoaded sentinel.
type OnMissing int

const (
	// MissingNull resolves the relationship to nil.
	MissingNull OnMissing = iota
	// MissingEmpty resolves to the cardinality-appropriate empty value.
	MissingEmpty
	// MissingPassThrough hands the raw sentinel to the target schema.
	MissingPassThrough
)

// Field describes how one output key is resolved from the input object.
type Field struct {
	Name       string
	Key        string // source-key override; Name when empty
	Compute    ComputeFunc
	Transform  TransformFunc
	Format     format.Formatter // resolved at build time
	FormatName string
	FormatArg  string
	Default    any
	HasDefault bool
	Condition  ConditionFunc
	OnError    Policy
}

// SourceKey returns the key read from the input when no computation is
// configured.
func (f *Field) SourceKey() string {
	if f.Key != "" {
		return f.Key
	}
	return f.Name
}

// TargetResolver selects a target schema per related value for polymorphic
// relationships.
type TargetResolver interface {
	ResolveTarget(value any, params Params) (*Schema, error)
}

// TargetFunc is a dynamic-dispatch TargetResolver.
type TargetFunc func(value any, params Params) (*Schema, error)

func (f TargetFunc) ResolveTarget(value any, params Params) (*Schema, error) {
	return f(value, params)
}

// TargetMap is a fixed type-tag → schema TargetResolver. Tag extracts the tag
// from a related value.
type TargetMap struct {
	Tag     func(value any) string
	Schemas map[string]*Schema
}

func (m TargetMap) ResolveTarget(value any, _ Params) (*Schema, error) {
	if m.Tag == nil {
		return nil, fmt.Errorf("polymorphic target map has no tag function")
	}
	tag := m.Tag(value)
	s, ok := m.Schemas[tag]
	if !ok {
		return nil, fmt.Errorf("no schema mapped for type tag %q", tag)
	}
	return s, nil
}

// Relationship describes how one related object (or sequence) is resolved and
// serialized through a target schema.
type Relationship struct {
	Name        string
	Key         string
	Cardinality Cardinality
	Target      *Schema        // fixed target; nil when Resolver is set
	Resolver    TargetResolver // polymorphic target; nil when Target is set
	Compute     ComputeFunc
	Condition   ConditionFunc
	OnMissing   OnMissing
	OnError     Policy
}

// SourceKey returns the key read from the input when no computation is
// configured.
func (r *Relationship) SourceKey() string {
	if r.Key != "" {
		return r.Key
	}
	return r.Name
}

// Schema is the immutable descriptor set for one object shape. Field and
// relationship order is declaration order.
type Schema struct {
	Name          string
	Fields        []*Field
	Relationships []*Relationship
}

// Field returns the field descriptor with the given output name, or nil.
func (s *Schema) Field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Relationship returns the relationship descriptor with the given output
// name, or nil.
func (s *Schema) Relationship(name string) *Relationship {
	for _, r := range s.Relationships {
		if r.Name == name {
			return r
		}
	}
	return nil
}
