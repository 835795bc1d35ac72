package schema

import (
	"fmt"

	"github.com/okanra/serigraph/format"
)

// Warning is a non-fatal finding produced at schema build time.
type Warning struct {
	Code    string
	Message string
}

const (
	// WarnSelfReference marks a relationship whose target is the schema under
	// construction; callers should bound traversal with MaxDepth or a
	// within-tree.
	WarnSelfReference = "self_reference"
)

// Builder assembles a Schema. The zero value is not usable; create one with
// NewBuilder. Builders are not safe for concurrent use.
type Builder struct {
	s       *Schema
	formats *format.Registry
	errs    []error
	warns   []Warning
	names   map[string]bool
}

// NewBuilder starts a schema for the object shape identified by name.
func NewBuilder(name string) *Builder {
	return &Builder{
		s:       &Schema{Name: name},
		formats: format.Default(),
		names:   map[string]bool{},
	}
}

// WithFormats overrides the formatter registry used to resolve format
// references at build time.
func (b *Builder) WithFormats(r *format.Registry) *Builder {
	b.formats = r
	return b
}

// Ref returns the schema under construction, for forward references in
// cyclic graphs. The returned schema is incomplete until Build succeeds.
func (b *Builder) Ref() *Schema { return b.s }

// FieldOption configures a field descriptor.
type FieldOption func(*Field)

// FromKey reads the field from a source key other than the output name.
func FromKey(key string) FieldOption {
	return func(f *Field) { f.Key = key }
}

// Computed derives the field value with fn instead of reading a source key.
func Computed(fn ComputeFunc) FieldOption {
	return func(f *Field) { f.Compute = fn }
}

// WithTransform rewrites the resolved value before formatting.
func WithTransform(fn TransformFunc) FieldOption {
	return func(f *Field) { f.Transform = fn }
}

// WithFormat applies the named formatter (resolved at Build) to the value.
func WithFormat(name, arg string) FieldOption {
	return func(f *Field) {
		f.FormatName = name
		f.FormatArg = arg
	}
}

// WithDefault substitutes v when the resolved value is absent or nil.
func WithDefault(v any) FieldOption {
	return func(f *Field) {
		f.Default = v
		f.HasDefault = true
	}
}

// When includes the field only if cond returns true.
func When(cond ConditionFunc) FieldOption {
	return func(f *Field) { f.Condition = cond }
}

// OnError sets the field's on-error policy.
func OnError(p Policy) FieldOption {
	return func(f *Field) { f.OnError = p }
}

// Field appends a field descriptor.
func (b *Builder) Field(name string, opts ...FieldOption) *Builder {
	if !b.claim(name) {
		return b
	}
	f := &Field{Name: name}
	for _, opt := range opts {
		opt(f)
	}
	b.s.Fields = append(b.s.Fields, f)
	return b
}

// RelOption configures a relationship descriptor.
type RelOption func(*Relationship)

// RelFromKey reads the related value from a source key other than the output
// name.
func RelFromKey(key string) RelOption {
	return func(r *Relationship) { r.Key = key }
}

// RelComputed derives the related value with fn instead of reading a source
// key.
func RelComputed(fn ComputeFunc) RelOption {
	return func(r *Relationship) { r.Compute = fn }
}

// RelWhen includes the relationship only if cond returns true.
func RelWhen(cond ConditionFunc) RelOption {
	return func(r *Relationship) { r.Condition = cond }
}

// RelOnError sets the relationship's on-error policy.
func RelOnError(p Policy) RelOption {
	return func(r *Relationship) { r.OnError = p }
}

// WhenMissing sets the policy for the NotLoaded sentinel.
func WhenMissing(m OnMissing) RelOption {
	return func(r *Relationship) { r.OnMissing = m }
}

// Polymorphic resolves the target schema per related value instead of using a
// fixed target.
func Polymorphic(res TargetResolver) RelOption {
	return func(r *Relationship) { r.Resolver = res }
}

// HasOne appends a singular relationship. target may be nil when the
// Polymorphic option is supplied.
func (b *Builder) HasOne(name string, target *Schema, opts ...RelOption) *Builder {
	return b.rel(name, One, target, opts)
}

// HasMany appends a plural relationship. target may be nil when the
// Polymorphic option is supplied.
func (b *Builder) HasMany(name string, target *Schema, opts ...RelOption) *Builder {
	return b.rel(name, Many, target, opts)
}

func (b *Builder) rel(name string, c Cardinality, target *Schema, opts []RelOption) *Builder {
	if !b.claim(name) {
		return b
	}
	r := &Relationship{Name: name, Cardinality: c, Target: target}
	for _, opt := range opts {
		opt(r)
	}
	if r.Target == nil && r.Resolver == nil {
		b.errs = append(b.errs, fmt.Errorf("relationship %q on schema %q has no target schema or resolver", name, b.s.Name))
	}
	if r.Target == b.s {
		b.warns = append(b.warns, Warning{
			Code:    WarnSelfReference,
			Message: fmt.Sprintf("relationship %q on schema %q targets its own schema; set MaxDepth or a within-tree to bound traversal", name, b.s.Name),
		})
	}
	b.s.Relationships = append(b.s.Relationships, r)
	return b
}

func (b *Builder) claim(name string) bool {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("schema %q: descriptor with empty name", b.s.Name))
		return false
	}
	if b.names[name] {
		b.errs = append(b.errs, fmt.Errorf("schema %q: duplicate descriptor name %q", b.s.Name, name))
		return false
	}
	b.names[name] = true
	return true
}

// Build resolves format references, validates the descriptor set, and returns
// the finished schema together with any build-time warnings.
func (b *Builder) Build() (*Schema, []Warning, error) {
	for _, f := range b.s.Fields {
		if f.FormatName == "" {
			continue
		}
		resolved, err := b.formats.Lookup(f.FormatName)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("schema %q field %q: %w", b.s.Name, f.Name, err))
			continue
		}
		f.Format = resolved
	}
	if len(b.errs) > 0 {
		return nil, b.warns, b.errs[0]
	}
	return b.s, b.warns, nil
}

// MustBuild is Build panicking on error and discarding warnings.
func (b *Builder) MustBuild() *Schema {
	s, _, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
