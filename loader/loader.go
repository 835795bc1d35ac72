// Package loader builds schemas from YAML documents. A document declares the
// descriptor layout; the behavior referenced by name (computations,
// transforms, conditions, error handlers) is supplied by the caller as a
// Funcs table. Relationship targets are resolved in a second pass, so
// documents may declare cycles freely.
package loader

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okanra/serigraph/format"
	"github.com/okanra/serigraph/schema"
)

// Funcs binds the names a document may reference to Go functions.
type Funcs struct {
	Compute   map[string]schema.ComputeFunc
	Transform map[string]schema.TransformFunc
	Condition map[string]schema.ConditionFunc
	Handler   map[string]schema.ErrorHandlerFunc
	Tag       map[string]func(value any) string
}

// Result is the outcome of loading one document.
type Result struct {
	Schemas  map[string]*schema.Schema
	Warnings []schema.Warning
}

// Loader configures document loading. The zero value uses the default
// formatter registry and an empty Funcs table.
type Loader struct {
	Funcs   Funcs
	Formats *format.Registry
}

type document struct {
	Schemas []schemaDoc `yaml:"schemas"`
}

type schemaDoc struct {
	Name          string     `yaml:"name"`
	Fields        []fieldDoc `yaml:"fields"`
	Relationships []relDoc   `yaml:"relationships"`
}

type fieldDoc struct {
	Name      string     `yaml:"name"`
	Key       string     `yaml:"key"`
	Compute   string     `yaml:"compute"`
	Transform string     `yaml:"transform"`
	Format    string     `yaml:"format"`
	FormatArg string     `yaml:"format_arg"`
	// A value node rather than a pointer: yaml.v3 only decodes into the
	// yaml.Node value type, and an absent key leaves Kind zero, which still
	// distinguishes "no default" from an explicit null.
	Default yaml.Node `yaml:"default"`
	When      string     `yaml:"when"`
	OnError   *policyDoc `yaml:"on_error"`
}

type relDoc struct {
	Name        string      `yaml:"name"`
	Key         string      `yaml:"key"`
	Cardinality string      `yaml:"cardinality"`
	Target      string      `yaml:"target"`
	Targets     *targetsDoc `yaml:"targets"`
	Compute     string      `yaml:"compute"`
	When        string      `yaml:"when"`
	OnMissing   string      `yaml:"on_missing"`
	OnError     *policyDoc  `yaml:"on_error"`
}

type targetsDoc struct {
	Tag     string            `yaml:"tag"`
	Schemas map[string]string `yaml:"schemas"`
}

// policyDoc is either a scalar shorthand ("null", "skip", "reraise") or a
// mapping with exactly one of "default" or "handler".
type policyDoc struct {
	kind    string
	value   any
	handler string
}

func (p *policyDoc) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			p.kind = "null"
			return nil
		}
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		switch s {
		case "null", "skip", "reraise":
			p.kind = s
			return nil
		}
		return fmt.Errorf("unknown on_error policy %q", s)
	case yaml.MappingNode:
		var m struct {
			Default yaml.Node `yaml:"default"`
			Handler string    `yaml:"handler"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		switch {
		case m.Default.Kind != 0 && m.Handler != "":
			return fmt.Errorf("on_error policy declares both default and handler")
		case m.Default.Kind != 0:
			var v any
			if err := m.Default.Decode(&v); err != nil {
				return err
			}
			p.kind = "default"
			p.value = v
			return nil
		case m.Handler != "":
			p.kind = "handler"
			p.handler = m.Handler
			return nil
		}
		return fmt.Errorf("on_error policy mapping needs default or handler")
	}
	return fmt.Errorf("on_error policy must be a scalar or a mapping")
}

func (p *policyDoc) toPolicy(funcs Funcs) (schema.Policy, error) {
	switch p.kind {
	case "null":
		return schema.NullPolicy, nil
	case "skip":
		return schema.SkipPolicy, nil
	case "reraise":
		return schema.ReraisePolicy, nil
	case "default":
		return schema.DefaultPolicy(p.value), nil
	case "handler":
		h, ok := funcs.Handler[p.handler]
		if !ok {
			return schema.Policy{}, fmt.Errorf("unknown error handler %q", p.handler)
		}
		return schema.HandlerPolicy(h), nil
	}
	return schema.Policy{}, fmt.Errorf("unknown on_error policy %q", p.kind)
}

// Load parses one YAML document from r and builds every schema it declares.
func (l *Loader) Load(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if len(doc.Schemas) == 0 {
		return nil, fmt.Errorf("document declares no schemas")
	}

	// First pass: one builder per declared name, so relationship targets can
	// point anywhere in the document, cycles included.
	builders := make(map[string]*schema.Builder, len(doc.Schemas))
	for _, sd := range doc.Schemas {
		if sd.Name == "" {
			return nil, fmt.Errorf("schema with empty name")
		}
		if _, dup := builders[sd.Name]; dup {
			return nil, fmt.Errorf("duplicate schema %q", sd.Name)
		}
		b := schema.NewBuilder(sd.Name)
		if l.Formats != nil {
			b.WithFormats(l.Formats)
		}
		builders[sd.Name] = b
	}

	// Second pass: populate descriptors, resolving targets through the
	// builder table.
	for _, sd := range doc.Schemas {
		b := builders[sd.Name]
		for _, fd := range sd.Fields {
			opts, err := l.fieldOptions(sd.Name, fd)
			if err != nil {
				return nil, err
			}
			b.Field(fd.Name, opts...)
		}
		for _, rd := range sd.Relationships {
			if err := l.addRelationship(b, builders, sd.Name, rd); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{Schemas: make(map[string]*schema.Schema, len(doc.Schemas))}
	for _, sd := range doc.Schemas {
		s, warns, err := builders[sd.Name].Build()
		if err != nil {
			return nil, err
		}
		res.Schemas[sd.Name] = s
		res.Warnings = append(res.Warnings, warns...)
	}
	return res, nil
}

// LoadFile is Load over the file at path.
func (l *Loader) LoadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", path, err)
	}
	defer f.Close()
	return l.Load(f)
}

func (l *Loader) fieldOptions(schemaName string, fd fieldDoc) ([]schema.FieldOption, error) {
	var opts []schema.FieldOption
	if fd.Key != "" {
		opts = append(opts, schema.FromKey(fd.Key))
	}
	if fd.Compute != "" {
		fn, ok := l.Funcs.Compute[fd.Compute]
		if !ok {
			return nil, fmt.Errorf("schema %q field %q: unknown computation %q", schemaName, fd.Name, fd.Compute)
		}
		opts = append(opts, schema.Computed(fn))
	}
	if fd.Transform != "" {
		fn, ok := l.Funcs.Transform[fd.Transform]
		if !ok {
			return nil, fmt.Errorf("schema %q field %q: unknown transform %q", schemaName, fd.Name, fd.Transform)
		}
		opts = append(opts, schema.WithTransform(fn))
	}
	if fd.Format != "" {
		opts = append(opts, schema.WithFormat(fd.Format, fd.FormatArg))
	}
	if fd.Default.Kind != 0 {
		// The node distinguishes an explicit null default from no default.
		var v any
		if err := fd.Default.Decode(&v); err != nil {
			return nil, fmt.Errorf("schema %q field %q: decoding default: %w", schemaName, fd.Name, err)
		}
		opts = append(opts, schema.WithDefault(v))
	}
	if fd.When != "" {
		fn, ok := l.Funcs.Condition[fd.When]
		if !ok {
			return nil, fmt.Errorf("schema %q field %q: unknown condition %q", schemaName, fd.Name, fd.When)
		}
		opts = append(opts, schema.When(fn))
	}
	if fd.OnError != nil {
		p, err := fd.OnError.toPolicy(l.Funcs)
		if err != nil {
			return nil, fmt.Errorf("schema %q field %q: %w", schemaName, fd.Name, err)
		}
		opts = append(opts, schema.OnError(p))
	}
	return opts, nil
}

func (l *Loader) addRelationship(b *schema.Builder, builders map[string]*schema.Builder, schemaName string, rd relDoc) error {
	var opts []schema.RelOption
	if rd.Key != "" {
		opts = append(opts, schema.RelFromKey(rd.Key))
	}
	if rd.Compute != "" {
		fn, ok := l.Funcs.Compute[rd.Compute]
		if !ok {
			return fmt.Errorf("schema %q relationship %q: unknown computation %q", schemaName, rd.Name, rd.Compute)
		}
		opts = append(opts, schema.RelComputed(fn))
	}
	if rd.When != "" {
		fn, ok := l.Funcs.Condition[rd.When]
		if !ok {
			return fmt.Errorf("schema %q relationship %q: unknown condition %q", schemaName, rd.Name, rd.When)
		}
		opts = append(opts, schema.RelWhen(fn))
	}
	switch rd.OnMissing {
	case "", "null":
	case "empty":
		opts = append(opts, schema.WhenMissing(schema.MissingEmpty))
	case "pass_through":
		opts = append(opts, schema.WhenMissing(schema.MissingPassThrough))
	default:
		return fmt.Errorf("schema %q relationship %q: unknown on_missing %q", schemaName, rd.Name, rd.OnMissing)
	}
	if rd.OnError != nil {
		p, err := rd.OnError.toPolicy(l.Funcs)
		if err != nil {
			return fmt.Errorf("schema %q relationship %q: %w", schemaName, rd.Name, err)
		}
		opts = append(opts, schema.RelOnError(p))
	}

	var target *schema.Schema
	switch {
	case rd.Target != "" && rd.Targets != nil:
		return fmt.Errorf("schema %q relationship %q: declares both target and targets", schemaName, rd.Name)
	case rd.Target != "":
		tb, ok := builders[rd.Target]
		if !ok {
			return fmt.Errorf("schema %q relationship %q: unknown target schema %q", schemaName, rd.Name, rd.Target)
		}
		target = tb.Ref()
	case rd.Targets != nil:
		res, err := l.targetMap(builders, schemaName, rd)
		if err != nil {
			return err
		}
		opts = append(opts, schema.Polymorphic(res))
	default:
		return fmt.Errorf("schema %q relationship %q: no target schema", schemaName, rd.Name)
	}

	switch rd.Cardinality {
	case "one", "":
		b.HasOne(rd.Name, target, opts...)
	case "many":
		b.HasMany(rd.Name, target, opts...)
	default:
		return fmt.Errorf("schema %q relationship %q: unknown cardinality %q", schemaName, rd.Name, rd.Cardinality)
	}
	return nil
}

func (l *Loader) targetMap(builders map[string]*schema.Builder, schemaName string, rd relDoc) (schema.TargetResolver, error) {
	td := rd.Targets
	if td.Tag == "" || len(td.Schemas) == 0 {
		return nil, fmt.Errorf("schema %q relationship %q: targets needs tag and schemas", schemaName, rd.Name)
	}
	m := schema.TargetMap{Schemas: make(map[string]*schema.Schema, len(td.Schemas))}
	for tag, name := range td.Schemas {
		tb, ok := builders[name]
		if !ok {
			return nil, fmt.Errorf("schema %q relationship %q: unknown target schema %q", schemaName, rd.Name, name)
		}
		m.Schemas[tag] = tb.Ref()
	}
	if fn, ok := l.Funcs.Tag[td.Tag]; ok {
		m.Tag = fn
		return m, nil
	}
	// Default tag extraction: read the named key from record-like values.
	key := td.Tag
	m.Tag = func(v any) string {
		if rec, ok := v.(map[string]any); ok {
			if s, ok := rec[key].(string); ok {
				return s
			}
		}
		return ""
	}
	return m, nil
}
