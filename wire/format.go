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

package wire

// FieldOrder tells the driver how a [FormatSerializer] would like struct
// fields ordered.
type FieldOrder uint8

// Field order preferences.
const (
	Declaration FieldOrder = iota
	AttributesFirst
	Alphabetical
)

// FieldItem describes one field the driver is about to serialize, for a
// FormatSerializer's out-of-band field_metadata hint. It mirrors
// facet.Field's wire-relevant subset rather than importing facet
// directly, so wire has no dependency on the root package.
type FieldItem struct {
	Name     string
	Category uint8 // facet.FieldCategory, copied by value to avoid an import
	Sensitive bool
}

// ProbeStream yields [FieldEvidence] for the object/element currently
// being parsed, without consuming the underlying event stream. Used only
// to resolve untagged enums.
type ProbeStream interface {
	// Next returns the next piece of evidence, or ok == false once the
	// probe is exhausted.
	Next() (ev FieldEvidence, ok bool)
}

// FormatParser is the contract a wire format implements to feed the
// driver's deserialization loop.
type FormatParser interface {
	// NextEvent advances and returns the next event, or ok == false at a
	// clean end of stream.
	NextEvent() (ev ParseEvent, ok bool, err error)
	// PeekEvent returns the next event without consuming it.
	PeekEvent() (ev ParseEvent, ok bool, err error)
	// SkipValue consumes one complete value (balanced start/end), even if
	// nested, without materializing it.
	SkipValue() error
	// BeginProbe returns a ProbeStream over the current object/element,
	// for untagged-enum resolution, without consuming NextEvent's stream.
	BeginProbe() ProbeStream
	// IsSelfDescribing reports whether this format carries its own field
	// names/types in-band (true for JSON/YAML, false for a positional
	// binary format).
	IsSelfDescribing() bool

	// OptionPresent reports and consumes whatever this format uses to
	// mark an Option's presence — a peeked-then-consumed null scalar for
	// a self-describing format, an explicit presence byte for a
	// positional one — so the driver never needs PeekEvent to find an
	// Option's end. Call after HintOption, in place of PeekEvent.
	OptionPresent() (present bool, err error)

	// SequenceHasNext reports whether another element remains in the
	// sequence opened by the last SequenceStart, consuming the
	// SequenceEnd marker itself if not. A self-describing format can
	// implement this with PeekEvent; a positional one tracks the
	// remaining count instead, since it has nothing to peek at.
	SequenceHasNext() (bool, error)

	// The driver calls exactly one of these, before issuing the next
	// NextEvent, so a positional parser knows what shape to expect.
	// Self-describing formats may implement these as no-ops.
	HintScalarType(kind ScalarKind)
	HintStructFields(n int)
	HintSequence()
	HintArray(length int)
	HintOption()
	HintEnum(variants []string)
}

// FormatSerializer is the contract a wire format implements to receive
// the driver's serialization walk.
type FormatSerializer interface {
	// StructMetadata is an out-of-band hint delivered before BeginStruct;
	// name is the shape's ID.
	StructMetadata(name string)
	// FieldMetadata is an out-of-band hint delivered before each
	// field_key/scalar pair of a struct.
	FieldMetadata(item FieldItem)
	// PreferredFieldOrder reports how this serializer would like struct
	// fields ordered; the driver sorts fields_for_serialize accordingly.
	PreferredFieldOrder() FieldOrder

	BeginStruct(kind StructureKind) error
	EndStruct() error
	BeginSeq(kind StructureKind, length int) error
	EndSeq() error
	FieldKey(name string) error
	Scalar(v ScalarValue) error

	// OptionPresent writes whatever marks an Option's presence for this
	// format, ahead of its payload (or instead of one, if absent). A
	// self-describing format may no-op here and rely on the Scalar(Null)
	// call the driver still makes for an absent Option; a positional
	// format has no other way to tell a present-but-zero-valued Option
	// apart from an absent one and must write a real byte.
	OptionPresent(present bool) error
}
