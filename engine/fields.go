package engine

import "github.com/okanra/serigraph/schema"

// resolveFields resolves every field descriptor of s against input, in
// declaration order.
func resolveFields(c sctx, s *schema.Schema, input any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, include, err := resolveField(c, f, input)
		if err != nil {
			return nil, err
		}
		if include {
			out[f.Name] = v
		}
	}
	return out, nil
}

// resolveField resolves one field: condition, raw value (computation or
// source key), transform pipeline. Any failure along the way is routed
// through the field's on-error policy.
func resolveField(c sctx, f *schema.Field, input any) (any, bool, error) {
	if f.Condition != nil {
		ok, err := f.Condition(input, c.opts.Params)
		if err != nil {
			return evalPolicy(f.OnError, f.Name, &ConditionError{Name: f.Name, Err: err}, input, c.opts.Params)
		}
		if !ok {
			return nil, false, nil
		}
	}

	var raw any
	if f.Compute != nil {
		v, err := f.Compute(input, c.opts.Params)
		if err != nil {
			return evalPolicy(f.OnError, f.Name, &FieldComputationError{Field: f.Name, Err: err}, input, c.opts.Params)
		}
		raw = v
	} else {
		v, found := lookupKey(input, f.SourceKey())
		if !found {
			raw = absentValue
		} else {
			raw = v
		}
	}

	v, err := applyPipeline(f, raw)
	if err != nil {
		return evalPolicy(f.OnError, f.Name, err, input, c.opts.Params)
	}
	if isAbsent(v) {
		return nil, true, nil
	}
	return v, true, nil
}
