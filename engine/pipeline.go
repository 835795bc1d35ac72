package engine

import "github.com/okanra/serigraph/schema"

// applyPipeline runs one resolved value through the fixed transform pipeline:
// default substitution, then transform, then format. The order is load-bearing
// (e.g. integer cents are transformed to a decimal amount before currency
// formatting) and must not change.
func applyPipeline(f *schema.Field, v any) (any, error) {
	if (isAbsent(v) || isNilValue(v)) && f.HasDefault {
		v = f.Default
	}

	if f.Transform != nil {
		arg := v
		if isAbsent(arg) {
			arg = nil
		}
		out, err := f.Transform(arg)
		if err != nil {
			return nil, &FieldComputationError{Field: f.Name, Err: err}
		}
		v = out
	}

	// Formatting is skipped for absent values: there is nothing to render and
	// the value stays absent.
	if f.Format != nil && !isAbsent(v) {
		out, err := f.Format(v, f.FormatArg)
		if err != nil {
			return nil, &FormatError{Field: f.Name, Format: f.FormatName, Err: err}
		}
		v = out
	}
	return v, nil
}
