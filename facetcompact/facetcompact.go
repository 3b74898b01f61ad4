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

// Package facetcompact implements a non-self-describing, positional wire
// format: values are encoded in declaration order with no field names or
// type tags, so the driver must call the hint_* methods before every
// descent to tell the parser what to produce next — the branch
// facetjson never exercises.
//
// Grounded directly on the teacher's own wire encoding:
// google.golang.org/protobuf/encoding/protowire's varint and zigzag
// helpers are the actual bytes hyperpb parses, reused here as facet's
// positional scalar encoding via [internal/zigzag].
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

// scalarShape is the hint state threaded from HintScalarType to the next
// NextEvent call, since a positional format cannot self-describe what
// bytes mean without being told in advance.
type scalarShape struct {
	kind wire.ScalarKind
	set  bool
}

// Parser is a [wire.FormatParser] reading a facetcompact document.
type Parser struct {
	r            *bytes.Reader
	expect       scalarShape
	expectEnum   []string // set by HintEnum, consumed by the next NextEvent as a VariantTag
	wantSeqStart bool     // set by HintSequence/HintArray, consumed by the next NextEvent
	seqLen       []int    // remaining element counts per open sequence
}

// NewParser constructs a Parser reading b.
func NewParser(b []byte) *Parser { return &Parser{r: bytes.NewReader(b)} }

func (p *Parser) IsSelfDescribing() bool { return false }

func (p *Parser) HintScalarType(k wire.ScalarKind) { p.expect = scalarShape{kind: k, set: true} }
func (p *Parser) HintStructFields(int)             {}
func (p *Parser) HintSequence()                    { p.wantSeqStart = true }
func (p *Parser) HintArray(int)                    { p.wantSeqStart = true }
func (p *Parser) HintOption()                      {}
func (p *Parser) HintEnum(names []string)          { p.expectEnum = names }

// NextEvent decodes the next value. facetcompact has no structural
// delimiters of its own for structs (field count and presence come from
// the Shape, known to both sides ahead of time): StructStart/StructEnd
// and FieldKey are synthesized by the driver, not read from the wire,
// for this format. NextEvent here therefore only ever produces
// VariantTag (index-prefixed, after HintEnum), SequenceStart/SequenceEnd
// (length-prefixed, after HintSequence/HintArray), and Scalar events.
func (p *Parser) NextEvent() (wire.ParseEvent, bool, error) {
	if len(p.seqLen) > 0 && p.seqLen[len(p.seqLen)-1] == 0 {
		p.seqLen = p.seqLen[:len(p.seqLen)-1]
		return wire.ParseEvent{Kind: wire.SequenceEnd}, true, nil
	}
	if p.expectEnum != nil {
		names := p.expectEnum
		p.expectEnum = nil
		idx, err := readVarint(p.r)
		if err != nil {
			return wire.ParseEvent{}, false, err
		}
		if int(idx) >= len(names) {
			return wire.ParseEvent{}, false, fmt.Errorf("facetcompact: variant index %d out of range", idx)
		}
		return wire.ParseEvent{Kind: wire.VariantTag, Name: names[idx]}, true, nil
	}
	if p.wantSeqStart {
		p.wantSeqStart = false
		n, err := readVarint(p.r)
		if err != nil {
			return wire.ParseEvent{}, false, err
		}
		p.seqLen = append(p.seqLen, int(n))
		return wire.ParseEvent{Kind: wire.SequenceStart, StructureHint: wire.KindArray}, true, nil
	}
	if !p.expect.set {
		return wire.ParseEvent{}, false, fmt.Errorf("facetcompact: NextEvent called without a preceding hint")
	}
	if len(p.seqLen) > 0 {
		p.seqLen[len(p.seqLen)-1]--
	}
	kind := p.expect.kind
	p.expect.set = false
	return p.readScalar(kind)
}

func (p *Parser) readScalar(kind wire.ScalarKind) (wire.ParseEvent, bool, error) {
	switch kind {
	case wire.Bool:
		b, err := p.r.ReadByte()
		if err != nil {
			return wire.ParseEvent{}, false, err
		}
		return wire.ParseEvent{Kind: wire.Scalar, Value: wire.ScalarValue{Kind: wire.Bool, Bool: b != 0}}, true, nil
	case wire.I64:
		v, err := readVarint(p.r)
		if err != nil {
			return wire.ParseEvent{}, false, err
		}
		return wire.ParseEvent{Kind: wire.Scalar, Value: wire.ScalarValue{Kind: wire.I64, I64: zigzag.Decode64[int64](v)}}, true, nil
	case wire.U64:
		v, err := readVarint(p.r)
		if err != nil {
			return wire.ParseEvent{}, false, err
		}
		return wire.ParseEvent{Kind: wire.Scalar, Value: wire.ScalarValue{Kind: wire.U64, U64: v}}, true, nil
	case wire.F64:
		var buf [8]byte
		if _, err := io.ReadFull(p.r, buf[:]); err != nil {
			return wire.ParseEvent{}, false, err
		}
		bits := binary.LittleEndian.Uint64(buf[:])
		return wire.ParseEvent{Kind: wire.Scalar, Value: wire.ScalarValue{Kind: wire.F64, F64: math.Float64frombits(bits)}}, true, nil
	case wire.Str, wire.Bytes:
		n, err := readVarint(p.r)
		if err != nil {
			return wire.ParseEvent{}, false, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(p.r, buf); err != nil {
			return wire.ParseEvent{}, false, err
		}
		if kind == wire.Str {
			return wire.ParseEvent{Kind: wire.Scalar, Value: wire.ScalarValue{Kind: wire.Str, Str: string(buf)}}, true, nil
		}
		return wire.ParseEvent{Kind: wire.Scalar, Value: wire.ScalarValue{Kind: wire.Bytes, Bytes: buf}}, true, nil
	default:
		return wire.ParseEvent{}, false, fmt.Errorf("facetcompact: unsupported scalar kind %d", kind)
	}
}

// PeekEvent is unsupported: a positional format has no bytes to look at
// ahead of a hint telling it what to decode, so there is nothing
// meaningful to peek. Callers (the driver's sequence/option loops) use
// SequenceHasNext/OptionPresent instead, which this format answers from
// its own framing rather than from a lookahead byte.
func (p *Parser) PeekEvent() (wire.ParseEvent, bool, error) {
	return wire.ParseEvent{}, false, &unsupportedError{"peek_event"}
}

// SequenceHasNext reports whether the innermost open sequence has another
// element, consuming the remaining-count slot if not — the same state
// NextEvent's own SequenceEnd synthesis reads, exposed directly so the
// driver's element loop never needs PeekEvent.
func (p *Parser) SequenceHasNext() (bool, error) {
	if len(p.seqLen) == 0 {
		return false, fmt.Errorf("facetcompact: sequence_has_next called with no open sequence")
	}
	if p.seqLen[len(p.seqLen)-1] == 0 {
		p.seqLen = p.seqLen[:len(p.seqLen)-1]
		return false, nil
	}
	return true, nil
}

// OptionPresent reads the one-byte presence marker OptionPresent's
// [Serializer] counterpart writes ahead of every Option value, since a
// positional format has no null literal of its own to peek for.
func (p *Parser) OptionPresent() (bool, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// SkipValue is unsupported on a non-self-describing format: there is no
// way to know a value's length without already knowing its type, and by
// the time skip_value would be called the type hint has already been
// consumed. Per spec, this surfaces as OperationFailed to the driver.
func (p *Parser) SkipValue() error { return &unsupportedError{"skip_value"} }

// BeginProbe returns an empty stream: facetcompact cannot afford
// streaming probe lookahead, so untagged-enum resolution on this format
// always falls back to hint_enum.
func (p *Parser) BeginProbe() wire.ProbeStream { return emptyProbe{} }

type emptyProbe struct{}

func (emptyProbe) Next() (wire.FieldEvidence, bool) { return wire.FieldEvidence{}, false }

type unsupportedError struct{ op string }

func (e *unsupportedError) Error() string { return fmt.Sprintf("facetcompact: %s is unsupported on this format", e.op) }

// readVarint reads a single base-128 varint byte-at-a-time (the reader's
// remaining length is unknown ahead of time, unlike protowire's usual
// whole-buffer callers) and hands the accumulated bytes to
// protowire.ConsumeVarint for the actual decode, so the decoding rules
// stay identical to what the teacher already relies on for its own wire
// format.
func readVarint(r *bytes.Reader) (uint64, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf = append(buf, b)
		if b&0x80 == 0 {
			break
		}
	}
	v, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return 0, fmt.Errorf("facetcompact: malformed varint")
	}
	return v, nil
}

