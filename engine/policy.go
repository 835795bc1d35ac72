package engine

import "github.com/okanra/serigraph/schema"

// evalPolicy decides the outcome of a failed field or relationship. It
// returns the substitute value, whether the key is included, and the error to
// propagate (nil when the policy absorbed the failure).
//
// A custom handler that itself fails is not caught again: its error
// propagates raw, since policy evaluation is not wrapped in the protection it
// provides.
func evalPolicy(p schema.Policy, name string, err error, input any, params schema.Params) (any, bool, error) {
	switch p.Kind {
	case schema.PolicyNull:
		return nil, true, nil
	case schema.PolicySkip:
		return nil, false, nil
	case schema.PolicyDefault:
		return p.Value, true, nil
	case schema.PolicyReraise:
		return nil, false, &SerializationError{Name: name, Err: err}
	case schema.PolicyHandler:
		v, herr := p.Handler(err, input, params)
		if herr != nil {
			return nil, false, herr
		}
		return v, true, nil
	default:
		// No policy configured: propagate unwrapped to the immediate caller.
		return nil, false, err
	}
}
