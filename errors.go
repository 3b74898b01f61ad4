// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package facet

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the way a Deserialize/Serialize operation failed.
type ErrorKind int

// Error kinds.
const (
	ErrKindOk ErrorKind = iota
	// ErrKindParser wraps an underlying [FormatParser] error: malformed
	// input that has nothing to do with the target shape.
	ErrKindParser
	// ErrKindTypeMismatch: the wire value's type cannot be coerced to the
	// expected shape (e.g. a JSON string where a number was expected).
	ErrKindTypeMismatch
	// ErrKindUnknownField: a field was present in input that the target
	// struct does not declare, and deny_unknown_fields is set.
	ErrKindUnknownField
	// ErrKindMissingRequiredField: a struct's field plan required a field
	// that was never supplied and has no default.
	ErrKindMissingRequiredField
	// ErrKindNoSuchField: code asked [peek.Peek] or [partial.Frame] for a
	// field name the shape does not declare.
	ErrKindNoSuchField
	// ErrKindNoSuchVariant: an enum tag named a variant the shape does not
	// declare.
	ErrKindNoSuchVariant
	// ErrKindFieldAlreadySet: Partial.Set was called twice for the same
	// field outside of a container accumulator.
	ErrKindFieldAlreadySet
	// ErrKindDuplicateField: the same field key appeared twice in one
	// struct's input and the plan does not treat it as a merge point.
	ErrKindDuplicateField
	// ErrKindNoMatch: untagged-enum resolution found zero (or more than
	// one ambiguous) variant whose plan fits the observed fields.
	ErrKindNoMatch
	// ErrKindConversion: a proxy or transparent-newtype conversion
	// function returned an error.
	ErrKindConversion
	// ErrKindInvariantViolated: VTable.Invariants rejected a fully-built
	// value.
	ErrKindInvariantViolated
	// ErrKindUnsized: an allocation was attempted for a shape with no
	// fixed size (an opaque or dynamically-sized shape without a
	// goType).
	ErrKindUnsized
	// ErrKindOperationFailed: a FormatParser/FormatSerializer operation
	// that is architecturally unsupported on this format was invoked
	// (e.g. skip_value on a positional format).
	ErrKindOperationFailed
)

// String implements [fmt.Stringer].
func (k ErrorKind) String() string {
	switch k {
	case ErrKindParser:
		return "parser error"
	case ErrKindTypeMismatch:
		return "type mismatch"
	case ErrKindUnknownField:
		return "unknown field"
	case ErrKindMissingRequiredField:
		return "missing required field"
	case ErrKindNoSuchField:
		return "no such field"
	case ErrKindNoSuchVariant:
		return "no such variant"
	case ErrKindFieldAlreadySet:
		return "field already set"
	case ErrKindDuplicateField:
		return "duplicate field"
	case ErrKindNoMatch:
		return "no matching resolution"
	case ErrKindConversion:
		return "conversion failed"
	case ErrKindInvariantViolated:
		return "invariant violated"
	case ErrKindUnsized:
		return "unsized shape"
	case ErrKindOperationFailed:
		return "operation failed"
	default:
		return "ok"
	}
}

// sentinels lets callers match on kind with errors.Is(err, facet.ErrNoMatch)
// without caring about the path/shape an Error happened to carry.
var sentinels = [...]error{
	ErrKindOk:                   nil,
	ErrKindParser:               errors.New("parser error"),
	ErrKindTypeMismatch:         errors.New("type mismatch"),
	ErrKindUnknownField:         errors.New("unknown field"),
	ErrKindMissingRequiredField: errors.New("missing required field"),
	ErrKindNoSuchField:          errors.New("no such field"),
	ErrKindNoSuchVariant:        errors.New("no such variant"),
	ErrKindFieldAlreadySet:      errors.New("field already set"),
	ErrKindDuplicateField:       errors.New("duplicate field"),
	ErrKindNoMatch:              errors.New("no matching resolution"),
	ErrKindConversion:           errors.New("conversion failed"),
	ErrKindInvariantViolated:    errors.New("invariant violated"),
	ErrKindUnsized:              errors.New("unsized shape"),
	ErrKindOperationFailed:      errors.New("operation failed"),
}

// Sentinel errors for use with [errors.Is].
var (
	ErrParser               = sentinels[ErrKindParser]
	ErrTypeMismatch         = sentinels[ErrKindTypeMismatch]
	ErrUnknownField         = sentinels[ErrKindUnknownField]
	ErrMissingRequiredField = sentinels[ErrKindMissingRequiredField]
	ErrNoSuchField          = sentinels[ErrKindNoSuchField]
	ErrNoSuchVariant        = sentinels[ErrKindNoSuchVariant]
	ErrFieldAlreadySet      = sentinels[ErrKindFieldAlreadySet]
	ErrDuplicateField       = sentinels[ErrKindDuplicateField]
	ErrNoMatch              = sentinels[ErrKindNoMatch]
	ErrConversion           = sentinels[ErrKindConversion]
	ErrInvariantViolated    = sentinels[ErrKindInvariantViolated]
	ErrUnsized              = sentinels[ErrKindUnsized]
	ErrOperationFailed      = sentinels[ErrKindOperationFailed]
)

// Error is returned by every fallible facet operation: Deserialize,
// Serialize, and the Partial/Peek builder methods they're implemented in
// terms of.
type Error struct {
	Kind ErrorKind
	Path Path
	// Shape is the shape being built or read when the error occurred, if
	// known.
	Shape *Shape
	// Cause is the underlying error, when Kind wraps one (a FormatParser
	// error, a proxy conversion's error, ...). May be nil.
	Cause error
}

// newError constructs an *Error, filling in cause's message as Cause when
// cause is non-nil.
func newError(kind ErrorKind, path Path, shape *Shape, cause error) *Error {
	return &Error{Kind: kind, Path: path, Shape: shape, Cause: cause}
}

// Error implements [error].
func (e *Error) Error() string {
	shapeID := "<unknown shape>"
	if e.Shape != nil {
		shapeID = e.Shape.ID
	}
	if e.Cause != nil {
		return fmt.Sprintf("facet: %v at %s (%s): %v", e.Kind, e.Path, shapeID, e.Cause)
	}
	return fmt.Sprintf("facet: %v at %s (%s)", e.Kind, e.Path, shapeID)
}

// Unwrap implements error unwrapping via [errors.Unwrap], returning both
// the sentinel for e.Kind and any wrapped cause so that errors.Is works
// against either.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := sentinels[e.Kind]; s != nil {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
