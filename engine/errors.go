package engine

import (
	"fmt"
	"time"
)

// FieldComputationError reports a failure while computing or transforming a
// field value.
type FieldComputationError struct {
	Field string
	Err   error
}

func (e *FieldComputationError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldComputationError) Unwrap() error { return e.Err }

// RelationshipComputationError reports a failure while resolving a
// relationship's related value.
type RelationshipComputationError struct {
	Relationship string
	Err          error
}

func (e *RelationshipComputationError) Error() string {
	return fmt.Sprintf("relationship %q: %v", e.Relationship, e.Err)
}

func (e *RelationshipComputationError) Unwrap() error { return e.Err }

// ConditionError reports a failure while evaluating an inclusion condition.
type ConditionError struct {
	Name string
	Err  error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition on %q: %v", e.Name, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// FormatError reports a failure while formatting a field value.
type FormatError struct {
	Field  string
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("field %q: formatter %q: %v", e.Field, e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// RelationshipTimeoutError reports a relationship whose resolution exceeded
// its independent timeout.
type RelationshipTimeoutError struct {
	Relationship string
	Timeout      time.Duration
}

func (e *RelationshipTimeoutError) Error() string {
	return fmt.Sprintf("relationship %q: timed out after %s", e.Relationship, e.Timeout)
}

// SerializationError is the wrapping kind produced by the reraise policy and
// returned by the top-level entry points. Name identifies the offending field
// or relationship.
type SerializationError struct {
	Name string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed at %q: %v", e.Name, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
