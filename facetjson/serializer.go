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

package facetjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"facet/wire"
)

// Serializer is a [wire.FormatSerializer] writing a JSON document.
type Serializer struct {
	w        io.Writer
	buf      bytes.Buffer
	needComma []bool // per nesting level, whether the next token needs a leading comma
}

// NewSerializer constructs a Serializer writing to w.
func NewSerializer(w io.Writer) *Serializer { return &Serializer{w: w} }

func (s *Serializer) StructMetadata(string)      {}
func (s *Serializer) FieldMetadata(wire.FieldItem) {}

// PreferredFieldOrder requests declaration order be preserved; JSON has
// no canonical ordering requirement.
func (s *Serializer) PreferredFieldOrder() wire.FieldOrder { return wire.Declaration }

func (s *Serializer) comma() {
	if len(s.needComma) == 0 {
		return
	}
	top := len(s.needComma) - 1
	if s.needComma[top] {
		s.buf.WriteByte(',')
	}
	s.needComma[top] = true
}

func (s *Serializer) BeginStruct(wire.StructureKind) error {
	s.comma()
	s.buf.WriteByte('{')
	s.needComma = append(s.needComma, false)
	return nil
}

func (s *Serializer) EndStruct() error {
	s.buf.WriteByte('}')
	s.needComma = s.needComma[:len(s.needComma)-1]
	return s.flushIfRoot()
}

func (s *Serializer) BeginSeq(_ wire.StructureKind, _ int) error {
	s.comma()
	s.buf.WriteByte('[')
	s.needComma = append(s.needComma, false)
	return nil
}

func (s *Serializer) EndSeq() error {
	s.buf.WriteByte(']')
	s.needComma = s.needComma[:len(s.needComma)-1]
	return s.flushIfRoot()
}

func (s *Serializer) FieldKey(name string) error {
	s.comma()
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	s.buf.Write(key)
	s.buf.WriteByte(':')
	s.needComma[len(s.needComma)-1] = false // the value that follows shouldn't get its own comma
	return nil
}

// OptionPresent is a no-op: JSON already represents an absent Option via
// the literal null the driver's Scalar(Null) call writes, so there is no
// separate marker to emit here.
func (s *Serializer) OptionPresent(bool) error { return nil }

func (s *Serializer) Scalar(v wire.ScalarValue) error {
	s.comma()
	switch v.Kind {
	case wire.Null:
		s.buf.WriteString("null")
	case wire.Bool:
		if v.Bool {
			s.buf.WriteString("true")
		} else {
			s.buf.WriteString("false")
		}
	case wire.I64:
		fmt.Fprintf(&s.buf, "%d", v.I64)
	case wire.U64:
		fmt.Fprintf(&s.buf, "%d", v.U64)
	case wire.F64:
		fmt.Fprintf(&s.buf, "%g", v.F64)
	case wire.Str, wire.StringlyTyped:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		s.buf.Write(b)
	case wire.Bytes:
		b, err := json.Marshal(v.Bytes) // base64, matching encoding/json's []byte convention
		if err != nil {
			return err
		}
		s.buf.Write(b)
	default:
		return fmt.Errorf("facetjson: cannot serialize scalar kind %d", v.Kind)
	}
	return s.flushIfRoot()
}

// flushIfRoot writes the buffered document to w once the structure stack
// has unwound completely, so a Serializer can be used for one complete
// top-level value per instance without the caller managing buffering.
func (s *Serializer) flushIfRoot() error {
	if len(s.needComma) != 0 {
		return nil
	}
	_, err := s.w.Write(s.buf.Bytes())
	s.buf.Reset()
	return err
}
