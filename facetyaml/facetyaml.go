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

// Package facetyaml implements facet/wire's FormatParser and
// FormatSerializer over YAML, using gopkg.in/yaml.v3's Node tree rather
// than unmarshaling into an intermediate any — the document is decoded
// once into a *yaml.Node, then the Parser walks that tree the same way
// facetjson walks a json.Decoder token stream.
package facetyaml

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"facet/wire"
)

// Parser is a [wire.FormatParser] reading a YAML document already
// decoded into a *yaml.Node tree.
type Parser struct {
	events []wire.ParseEvent
	pos    int
}

// NewParser decodes r as a single YAML document and returns a Parser
// that walks it.
func NewParser(r io.Reader) (*Parser, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("facetyaml: %w", err)
	}
	p := &Parser{}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	p.walk(root)
	return p, nil
}

// NewParserFromBytes decodes b as a single YAML document.
func NewParserFromBytes(b []byte) (*Parser, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("facetyaml: %w", err)
	}
	p := &Parser{}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	p.walk(root)
	return p, nil
}

// walk flattens a *yaml.Node tree into the linear event stream the
// driver consumes, mirroring facetjson's token-stream approach but over
// an already-parsed tree instead of encoding/json's incremental Token().
func (p *Parser) walk(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode:
		p.events = append(p.events, wire.ParseEvent{Kind: wire.StructStart, StructureHint: wire.KindObject})
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			p.events = append(p.events, wire.ParseEvent{Kind: wire.FieldKey, Name: key.Value})
			p.walk(val)
		}
		p.events = append(p.events, wire.ParseEvent{Kind: wire.StructEnd})
	case yaml.SequenceNode:
		p.events = append(p.events, wire.ParseEvent{Kind: wire.SequenceStart, StructureHint: wire.KindArray})
		for _, item := range n.Content {
			p.walk(item)
		}
		p.events = append(p.events, wire.ParseEvent{Kind: wire.SequenceEnd})
	case yaml.ScalarNode:
		p.events = append(p.events, wire.ParseEvent{Kind: wire.Scalar, Value: scalarFromNode(n)})
	case yaml.AliasNode:
		p.walk(n.Alias)
	default:
		p.events = append(p.events, wire.ParseEvent{Kind: wire.Scalar, Value: wire.ScalarValue{Kind: wire.Null}})
	}
}

func scalarFromNode(n *yaml.Node) wire.ScalarValue {
	switch n.Tag {
	case "!!null":
		return wire.ScalarValue{Kind: wire.Null}
	case "!!bool":
		b, _ := strconv.ParseBool(n.Value)
		return wire.ScalarValue{Kind: wire.Bool, Bool: b}
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
			return wire.ScalarValue{Kind: wire.I64, I64: i}
		}
		if u, err := strconv.ParseUint(n.Value, 10, 64); err == nil {
			return wire.ScalarValue{Kind: wire.U64, U64: u}
		}
		return wire.ScalarValue{Kind: wire.StringlyTyped, Str: n.Value}
	case "!!float":
		f, _ := strconv.ParseFloat(n.Value, 64)
		return wire.ScalarValue{Kind: wire.F64, F64: f}
	default:
		return wire.ScalarValue{Kind: wire.Str, Str: n.Value}
	}
}

func (p *Parser) IsSelfDescribing() bool { return true }

func (p *Parser) HintScalarType(wire.ScalarKind) {}
func (p *Parser) HintStructFields(int)           {}
func (p *Parser) HintSequence()                  {}
func (p *Parser) HintArray(int)                  {}
func (p *Parser) HintOption()                    {}
func (p *Parser) HintEnum([]string)              {}

func (p *Parser) NextEvent() (wire.ParseEvent, bool, error) {
	if p.pos >= len(p.events) {
		return wire.ParseEvent{}, false, nil
	}
	ev := p.events[p.pos]
	p.pos++
	return ev, true, nil
}

func (p *Parser) PeekEvent() (wire.ParseEvent, bool, error) {
	if p.pos >= len(p.events) {
		return wire.ParseEvent{}, false, nil
	}
	return p.events[p.pos], true, nil
}

// OptionPresent peeks the next event and reports whether it is a Null
// scalar, consuming it either way.
func (p *Parser) OptionPresent() (bool, error) {
	ev, ok, err := p.PeekEvent()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("facetyaml: option_present called at end of stream")
	}
	isNull := ev.Kind == wire.Scalar && ev.Value.Kind == wire.Null
	if isNull {
		if _, _, err := p.NextEvent(); err != nil {
			return false, err
		}
	}
	return !isNull, nil
}

// SequenceHasNext peeks the next event and reports whether it is the
// sequence's closing SequenceEnd, consuming it if so.
func (p *Parser) SequenceHasNext() (bool, error) {
	ev, ok, err := p.PeekEvent()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("facetyaml: sequence_has_next called at end of stream")
	}
	if ev.Kind == wire.SequenceEnd {
		if _, _, err := p.NextEvent(); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// SkipValue skips one complete value, honoring nested structure depth.
func (p *Parser) SkipValue() error {
	ev, ok, err := p.NextEvent()
	if err != nil || !ok {
		return err
	}
	depth := 0
	switch ev.Kind {
	case wire.StructStart, wire.SequenceStart:
		depth = 1
	default:
		return nil
	}
	for depth > 0 {
		ev, ok, err := p.NextEvent()
		if err != nil || !ok {
			return err
		}
		switch ev.Kind {
		case wire.StructStart, wire.SequenceStart:
			depth++
		case wire.StructEnd, wire.SequenceEnd:
			depth--
		}
	}
	return nil
}

// BeginProbe scans the current object's immediate FieldKey/value pairs
// without consuming them, since the whole document is already resident
// as a flat event slice — unlike facetjson, a YAML Parser can give the
// driver genuine multi-field lookahead for untagged-enum resolution.
func (p *Parser) BeginProbe() wire.ProbeStream {
	if p.pos >= len(p.events) || p.events[p.pos].Kind != wire.StructStart {
		return &yamlProbe{}
	}
	probe := &yamlProbe{}
	depth := 0
	for i := p.pos; i < len(p.events); i++ {
		ev := p.events[i]
		switch ev.Kind {
		case wire.StructStart, wire.SequenceStart:
			depth++
		case wire.StructEnd, wire.SequenceEnd:
			depth--
			if depth == 0 {
				return probe
			}
		case wire.FieldKey:
			if depth == 1 {
				var preview *wire.ScalarValue
				if i+1 < len(p.events) && p.events[i+1].Kind == wire.Scalar {
					v := p.events[i+1].Value
					preview = &v
				}
				probe.evidence = append(probe.evidence, wire.FieldEvidence{Name: ev.Name, Preview: preview})
			}
		}
	}
	return probe
}

type yamlProbe struct {
	evidence []wire.FieldEvidence
	pos      int
}

func (y *yamlProbe) Next() (wire.FieldEvidence, bool) {
	if y.pos >= len(y.evidence) {
		return wire.FieldEvidence{}, false
	}
	e := y.evidence[y.pos]
	y.pos++
	return e, true
}
