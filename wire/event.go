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

// Package wire defines the event vocabulary exchanged between the
// format-agnostic driver in package facet and a concrete wire format
// (facetjson, facetcompact, facetyaml): [ParseEvent] on the way in,
// [FormatSerializer] calls on the way out.
//
// Grounded on the teacher's protowire-based field decoding (every scalar
// that crosses a wire boundary in hyperpb passes through
// google.golang.org/protobuf/encoding/protowire's varint/fixed64/fixed32
// helpers); facet generalizes that single wire encoding into an abstract
// event stream any format can produce or consume.
package wire

// EventKind discriminates a [ParseEvent].
type EventKind uint8

// Event kinds.
const (
	InvalidEvent EventKind = iota
	StructStart
	StructEnd
	SequenceStart
	SequenceEnd
	FieldKey
	OrderedField
	Scalar
	VariantTag
)

// StructureKind hints what kind of aggregate a Struct/SequenceStart
// event represents; purely advisory, formats may ignore it.
type StructureKind uint8

// Structure hints.
const (
	KindUnknown StructureKind = iota
	KindObject
	KindElement
	KindArray
	KindTuple
)

// ScalarKind discriminates the payload carried by a [ScalarValue].
type ScalarKind uint8

// Scalar kinds.
const (
	Invalid ScalarKind = iota
	Null
	Bool
	I64
	U64
	I128
	U128
	F64
	Str
	Bytes
	// StringlyTyped carries a string that the target scalar type must
	// parse itself — e.g. XML/HTML text content, or a URL query param.
	StringlyTyped
)

// ScalarValue is a self-typed leaf value produced by a parser or consumed
// by a serializer.
type ScalarValue struct {
	Kind ScalarKind

	Bool  bool
	I64   int64
	U64   uint64
	F64   float64
	Str   string
	Bytes []byte

	// Hi128 holds the upper 64 bits when Kind is I128/U128; the lower 64
	// bits are stored in I64/U64 respectively. No format this repository
	// implements produces 128-bit scalars yet, but the slot exists so
	// hint_scalar_type can still advertise the need to future formats.
	Hi128 uint64
}

// ParseEvent is one token of the universal event vocabulary a
// [FormatParser] produces.
type ParseEvent struct {
	Kind EventKind

	// StructureHint is set on StructStart/SequenceStart.
	StructureHint StructureKind

	// Name is set on FieldKey and VariantTag.
	Name string
	// Namespace qualifies Name for formats with namespaced keys (XML).
	Namespace string
	// Location, when non-empty, is a format-specific positional hint
	// (e.g. "attribute" vs "element" for XML) accompanying FieldKey.
	Location string

	// Value is set when Kind == Scalar.
	Value ScalarValue
}

// FieldEvidence is a probe record collected by [ProbeStream] while
// resolving an untagged enum: which field was seen, where, and (if cheap
// to produce) a preview of its scalar value, without consuming the
// underlying event stream.
type FieldEvidence struct {
	Name     string
	Location string
	Preview  *ScalarValue // nil if a preview wasn't available or wasn't a scalar
}
