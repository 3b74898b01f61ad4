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

package facetcompact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"facet/wire"
	"facet/internal/zigzag"
)

// Serializer is a [wire.FormatSerializer] writing a facetcompact
// document. Struct boundaries carry no bytes of their own (the reader
// gets field count and order from the Shape it already has), so
// BeginStruct/EndStruct/FieldKey are no-ops here; only scalars,
// sequence lengths, and variant indices actually hit the wire.
type Serializer struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewSerializer constructs a Serializer writing to w.
func NewSerializer(w io.Writer) *Serializer { return &Serializer{w: w} }

func (s *Serializer) StructMetadata(string)        {}
func (s *Serializer) FieldMetadata(wire.FieldItem) {}

// PreferredFieldOrder requests declaration order; positional formats have
// no other concept of ordering, since field identity comes purely from
// position.
func (s *Serializer) PreferredFieldOrder() wire.FieldOrder { return wire.Declaration }

func (s *Serializer) BeginStruct(wire.StructureKind) error { return nil }
func (s *Serializer) EndStruct() error                     { return s.flush() }
func (s *Serializer) FieldKey(string) error                { return nil }

func (s *Serializer) BeginSeq(_ wire.StructureKind, n int) error {
	s.buf.Write(protowire.AppendVarint(nil, uint64(n)))
	return nil
}

func (s *Serializer) EndSeq() error { return s.flush() }

// WriteVariantTag emits the index of a named variant. Not part of
// [wire.FormatSerializer] itself — the driver calls it directly when
// descending into an enum, the same way it calls FieldKey for structs.
func (s *Serializer) WriteVariantTag(index int) error {
	s.buf.Write(protowire.AppendVarint(nil, uint64(index)))
	return nil
}

// OptionPresent writes the one-byte presence marker OptionPresent's
// [Parser] counterpart reads: a positional format has no null literal to
// fall back on, so presence has to be an explicit byte ahead of the
// payload. Grounded on facet-postcard's own write_byte(1)/write_byte(0)
// presence convention.
func (s *Serializer) OptionPresent(present bool) error {
	if present {
		s.buf.WriteByte(1)
	} else {
		s.buf.WriteByte(0)
	}
	return s.flush()
}

func (s *Serializer) Scalar(v wire.ScalarValue) error {
	switch v.Kind {
	case wire.Null:
		// Presence is now carried by OptionPresent's marker byte, written
		// before this call; an absent Option's Null scalar itself still
		// carries no bytes of its own.
		return nil
	case wire.Bool:
		if v.Bool {
			s.buf.WriteByte(1)
		} else {
			s.buf.WriteByte(0)
		}
	case wire.I64:
		s.buf.Write(protowire.AppendVarint(nil, zigzag.Encode(v.I64)))
	case wire.U64:
		s.buf.Write(protowire.AppendVarint(nil, v.U64))
	case wire.F64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.F64))
		s.buf.Write(b[:])
	case wire.Str, wire.StringlyTyped:
		s.buf.Write(protowire.AppendVarint(nil, uint64(len(v.Str))))
		s.buf.WriteString(v.Str)
	case wire.Bytes:
		s.buf.Write(protowire.AppendVarint(nil, uint64(len(v.Bytes))))
		s.buf.Write(v.Bytes)
	default:
		return fmt.Errorf("facetcompact: cannot serialize scalar kind %d", v.Kind)
	}
	return s.flush()
}

// flush writes whatever has accumulated straight through: unlike
// facetjson, facetcompact has no delimiters to wait on, so there is
// nothing gained by buffering past a single Write.
func (s *Serializer) flush() error {
	_, err := s.w.Write(s.buf.Bytes())
	s.buf.Reset()
	return err
}
