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

package facetyaml

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"facet/wire"
)

// Serializer is a [wire.FormatSerializer] building a *yaml.Node tree and
// writing it to w once the document is complete.
type Serializer struct {
	w      io.Writer
	stack  []*yaml.Node // open MappingNode/SequenceNode frames
	root   *yaml.Node
	key    string
	hasKey bool
}

// NewSerializer constructs a Serializer writing to w.
func NewSerializer(w io.Writer) *Serializer { return &Serializer{w: w} }

func (s *Serializer) StructMetadata(string)        {}
func (s *Serializer) FieldMetadata(wire.FieldItem) {}

func (s *Serializer) PreferredFieldOrder() wire.FieldOrder { return wire.Declaration }

func (s *Serializer) BeginStruct(wire.StructureKind) error {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	s.attach(n)
	s.stack = append(s.stack, n)
	return nil
}

func (s *Serializer) EndStruct() error {
	s.stack = s.stack[:len(s.stack)-1]
	return s.flushIfRoot()
}

func (s *Serializer) BeginSeq(_ wire.StructureKind, _ int) error {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	s.attach(n)
	s.stack = append(s.stack, n)
	return nil
}

func (s *Serializer) EndSeq() error {
	s.stack = s.stack[:len(s.stack)-1]
	return s.flushIfRoot()
}

func (s *Serializer) FieldKey(name string) error {
	s.key, s.hasKey = name, true
	return nil
}

// OptionPresent is a no-op: YAML already represents an absent Option via
// the !!null scalar the driver's Scalar(Null) call writes.
func (s *Serializer) OptionPresent(bool) error { return nil }

func (s *Serializer) Scalar(v wire.ScalarValue) error {
	s.attach(scalarNode(v))
	return s.flushIfRoot()
}

// attach appends n as a value into the currently-open mapping/sequence
// frame, or establishes it as the document root if nothing is open yet.
func (s *Serializer) attach(n *yaml.Node) {
	if len(s.stack) == 0 {
		s.root = n
		return
	}
	top := s.stack[len(s.stack)-1]
	switch top.Kind {
	case yaml.MappingNode:
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.key}
		top.Content = append(top.Content, keyNode, n)
		s.hasKey = false
	case yaml.SequenceNode:
		top.Content = append(top.Content, n)
	}
}

func scalarNode(v wire.ScalarValue) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch v.Kind {
	case wire.Null:
		n.Tag, n.Value = "!!null", "null"
	case wire.Bool:
		n.Tag = "!!bool"
		if v.Bool {
			n.Value = "true"
		} else {
			n.Value = "false"
		}
	case wire.I64:
		n.Tag = "!!int"
		n.Value = fmt.Sprintf("%d", v.I64)
	case wire.U64:
		n.Tag = "!!int"
		n.Value = fmt.Sprintf("%d", v.U64)
	case wire.F64:
		n.Tag = "!!float"
		n.Value = fmt.Sprintf("%g", v.F64)
	case wire.Str, wire.StringlyTyped:
		n.Tag, n.Value = "!!str", v.Str
	case wire.Bytes:
		n.Tag, n.Value = "!!binary", string(v.Bytes)
	}
	return n
}

// flushIfRoot marshals and writes the document once the structure stack
// has fully unwound and a root value exists.
func (s *Serializer) flushIfRoot() error {
	if len(s.stack) != 0 || s.root == nil {
		return nil
	}
	b, err := yaml.Marshal(s.root)
	if err != nil {
		return err
	}
	_, err = s.w.Write(b)
	s.root = nil
	return err
}
