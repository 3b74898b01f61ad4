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
	"fmt"

	"facet/internal/sync2"
	"facet/partial"
	"facet/plan"
	"facet/wire"
)

// builders pools *partial.Partial builders across Deserialize calls, so
// repeated decodes into the same shape don't pay for a fresh frame stack
// every time.
var builders = sync2.Pool[partial.Partial]{
	New:   func() *partial.Partial { return partial.New() },
	Reset: func(b *partial.Partial) { b.Reset() },
}

// DeserializeOption configures a single Deserialize call.
type DeserializeOption func(*deserializeConfig)

type deserializeConfig struct {
	denyUnknownFields *bool
}

// DenyUnknownFields overrides the target shape's own deny_unknown_fields
// attribute for this call.
func DenyUnknownFields(deny bool) DeserializeOption {
	return func(c *deserializeConfig) { c.denyUnknownFields = &deny }
}

// Deserialize reads one value of type T from parser, driving it through
// T's registered Shape.
func Deserialize[T any](parser wire.FormatParser, opts ...DeserializeOption) (T, error) {
	var zero T
	shape := Of[T]()
	if shape == nil {
		return zero, fmt.Errorf("facet: type %T has no registered Shape; call Register first", zero)
	}

	cfg := deserializeConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	b, drop := builders.Get()
	defer drop()
	if err := b.AllocShape(shape); err != nil {
		return zero, err
	}

	d := &driver{parser: parser, cfg: cfg}
	if err := d.deserializeNode(b, plan.For(shape).Root); err != nil {
		b.Drop()
		return zero, err
	}

	root, err := b.Build()
	if err != nil {
		b.Drop()
		return zero, err
	}
	v, ok := root.AsGoValue()
	if !ok {
		return zero, fmt.Errorf("facet: shape %s has no registered Go type", shape.ID)
	}
	return v.Interface().(T), nil
}

// driver holds the state threaded through one Deserialize call's
// recursive descent.
type driver struct {
	parser wire.FormatParser
	cfg    deserializeConfig
}

// deserializeNode drives b through the value described by node, assuming
// b's top frame already corresponds to node.Shape.
func (d *driver) deserializeNode(b *partial.Partial, node *plan.Node) error {
	switch node.Strategy {
	case plan.Transparent:
		return d.deserializeTransparent(b, node)
	case plan.ContainerProxy:
		return d.deserializeProxy(b, node)
	}

	switch node.Shape.Type {
	case StructType:
		return d.deserializeStruct(b, node)
	case EnumType:
		return d.deserializeEnum(b, node)
	case OptionType:
		return d.deserializeOption(b, node)
	case ListType, SetType:
		return d.deserializeSeq(b, node)
	case MapType:
		return d.deserializeMap(b, node)
	case ScalarType:
		return d.deserializeScalar(b, node)
	default:
		return &Error{Kind: ErrKindOperationFailed, Shape: node.Shape, Cause: fmt.Errorf("no deserialization path for shape type %s", node.Shape.Type)}
	}
}

func (d *driver) deserializeScalar(b *partial.Partial, node *plan.Node) error {
	d.parser.HintScalarType(scalarKindFor(node.Shape))
	ev, ok, err := d.parser.NextEvent()
	if err != nil {
		return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
	}
	if !ok || ev.Kind != wire.Scalar {
		return &Error{Kind: ErrKindTypeMismatch, Shape: node.Shape, Cause: fmt.Errorf("expected scalar event")}
	}
	return b.Set(ev.Value)
}

func scalarKindFor(shape *Shape) wire.ScalarKind {
	switch shape.ScalarKind.String() {
	case "bool":
		return wire.Bool
	case "string":
		return wire.Str
	case "bytes":
		return wire.Bytes
	case "double", "float":
		return wire.F64
	default:
		return wire.I64
	}
}

func (d *driver) deserializeStruct(b *partial.Partial, node *plan.Node) error {
	if !d.parser.IsSelfDescribing() {
		return d.deserializeStructPositional(b, node)
	}
	d.parser.HintStructFields(len(node.Shape.Fields))
	ev, ok, err := d.parser.NextEvent()
	if err != nil {
		return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
	}
	if !ok || ev.Kind != wire.StructStart {
		return &Error{Kind: ErrKindTypeMismatch, Shape: node.Shape, Cause: fmt.Errorf("expected struct start")}
	}

	for {
		ev, ok, err = d.parser.PeekEvent()
		if err != nil {
			return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
		}
		if !ok || ev.Kind == wire.StructEnd {
			d.parser.NextEvent()
			break
		}
		if ev.Kind != wire.FieldKey && ev.Kind != wire.OrderedField {
			return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: fmt.Errorf("expected field key")}
		}
		d.parser.NextEvent()

		key := plan.FieldKey{Name: ev.Name}
		child, known := node.Schema[key]
		if !known {
			if node.Shape.Attributes.DenyUnknownFields() || derefDeny(d.cfg.denyUnknownFields) {
				return &Error{Kind: ErrKindUnknownField, Shape: node.Shape, Cause: fmt.Errorf("unknown field %q", ev.Name)}
			}
			if err := d.parser.SkipValue(); err != nil {
				return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
			}
			continue
		}

		if err := b.BeginField(ev.Name); err != nil {
			return err
		}
		if err := d.deserializeNode(b, child); err != nil {
			return err
		}
		if err := b.End(); err != nil {
			return err
		}
	}
	return nil
}

// deserializeStructPositional reads a struct's direct fields in
// declaration order with no leading/trailing framing of its own, for
// formats whose Parser.IsSelfDescribing is false: the Shape, known to
// both sides ahead of time, carries the layout instead of StructStart,
// FieldKey, or StructEnd events on the wire.
func (d *driver) deserializeStructPositional(b *partial.Partial, node *plan.Node) error {
	d.parser.HintStructFields(len(node.Shape.Fields))
	for _, f := range node.Shape.Fields {
		if f.Flags&(Skip|Flattened) != 0 {
			continue
		}
		key := plan.FieldKey{Name: f.EffectiveName(), Category: f.Category()}
		child, known := node.Schema[key]
		if !known {
			continue
		}
		if err := b.BeginField(f.EffectiveName()); err != nil {
			return err
		}
		if err := d.deserializeNode(b, child); err != nil {
			return err
		}
		if err := b.End(); err != nil {
			return err
		}
	}
	return nil
}

func derefDeny(p *bool) bool { return p != nil && *p }

func (d *driver) deserializeEnum(b *partial.Partial, node *plan.Node) error {
	switch node.Shape.Attributes.Tagging() {
	case Untagged:
		return d.deserializeUntaggedEnum(b, node)
	case InternallyTagged, AdjacentlyTagged:
		return d.deserializeTaggedEnum(b, node)
	default:
		return d.deserializeExternallyTaggedEnum(b, node)
	}
}

func (d *driver) deserializeExternallyTaggedEnum(b *partial.Partial, node *plan.Node) error {
	d.parser.HintEnum(variantNames(node.Shape))
	ev, ok, err := d.parser.NextEvent()
	if err != nil {
		return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
	}
	if !ok || ev.Kind != wire.VariantTag {
		return &Error{Kind: ErrKindTypeMismatch, Shape: node.Shape, Cause: fmt.Errorf("expected variant tag")}
	}
	if err := b.SelectVariant(ev.Name); err != nil {
		return err
	}
	_, idx := node.Shape.Variant(ev.Name)
	payloadNode := variantPayloadNode(node, idx)
	if len(node.Shape.Variants[idx].Data().Fields) > 0 {
		if err := d.deserializeStruct(b, payloadNode); err != nil {
			return err
		}
	}
	return b.End()
}

func (d *driver) deserializeTaggedEnum(b *partial.Partial, node *plan.Node) error {
	tagKey := node.Shape.Attributes.TagKey()
	ev, ok, err := d.parser.PeekEvent()
	if err != nil {
		return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
	}
	if !ok || ev.Name != tagKey {
		return &Error{Kind: ErrKindTypeMismatch, Shape: node.Shape, Cause: fmt.Errorf("expected tag field %q", tagKey)}
	}
	d.parser.NextEvent()
	tagEv, _, _ := d.parser.NextEvent()
	if err := b.SelectVariant(tagEv.Value.Str); err != nil {
		return err
	}
	_, idx := node.Shape.Variant(tagEv.Value.Str)
	payloadNode := variantPayloadNode(node, idx)
	if err := d.deserializeStructFieldsOnly(b, payloadNode); err != nil {
		return err
	}
	return b.End()
}

// deserializeStructFieldsOnly consumes fields without expecting a leading
// StructStart event, for internally/adjacently tagged enums whose payload
// shares an object with the tag itself.
func (d *driver) deserializeStructFieldsOnly(b *partial.Partial, node *plan.Node) error {
	for {
		ev, ok, err := d.parser.PeekEvent()
		if err != nil {
			return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
		}
		if !ok || ev.Kind == wire.StructEnd {
			d.parser.NextEvent()
			return nil
		}
		d.parser.NextEvent()
		key := plan.FieldKey{Name: ev.Name}
		child, known := node.Schema[key]
		if !known {
			d.parser.SkipValue()
			continue
		}
		if err := b.BeginField(ev.Name); err != nil {
			return err
		}
		if err := d.deserializeNode(b, child); err != nil {
			return err
		}
		if err := b.End(); err != nil {
			return err
		}
	}
}

func (d *driver) deserializeUntaggedEnum(b *partial.Partial, node *plan.Node) error {
	probe := d.parser.BeginProbe()
	present := map[string]bool{}
	for {
		ev, ok := probe.Next()
		if !ok {
			break
		}
		present[ev.Name] = true
	}

	resolution, idx, err := pickResolution(node, present)
	if err != nil {
		return err
	}
	_ = resolution

	if err := b.SelectNthVariant(idx); err != nil {
		return err
	}
	payloadNode := variantPayloadNode(node, idx)
	if err := d.deserializeStruct(b, payloadNode); err != nil {
		return err
	}
	return b.End()
}

// pickResolution selects the best Resolution per §4.4: fewest unknown
// fields, then fewest missing required, then fewest missing optional,
// tie-broken lexicographically on variant names.
func pickResolution(node *plan.Node, present map[string]bool) (*plan.Resolution, int, error) {
	type scored struct {
		res               *plan.Resolution
		idx               int
		unknown, missingR, missingO int
	}
	var best *scored
	for i := range node.Resolutions {
		r := &node.Resolutions[i]
		have := map[string]bool{}
		s := scored{res: r, idx: i}
		for _, f := range r.Fields {
			have[f.Key.Name] = true
			if present[f.Key.Name] {
				continue
			}
			if f.Required {
				s.missingR++
			} else {
				s.missingO++
			}
		}
		for name := range present {
			if !have[name] {
				s.unknown++
			}
		}
		if best == nil || better(s, *best) {
			cp := s
			best = &cp
		}
	}
	if best == nil || best.missingR > 0 {
		return nil, -1, &Error{Kind: ErrKindNoMatch, Shape: node.Shape, Cause: fmt.Errorf("no resolution matches present fields")}
	}
	return best.res, best.idx, nil
}

func better(a, b struct {
	res                         *plan.Resolution
	idx                         int
	unknown, missingR, missingO int
}) bool {
	if a.unknown != b.unknown {
		return a.unknown < b.unknown
	}
	if a.missingR != b.missingR {
		return a.missingR < b.missingR
	}
	if a.missingO != b.missingO {
		return a.missingO < b.missingO
	}
	return false
}

func (d *driver) deserializeOption(b *partial.Partial, node *plan.Node) error {
	d.parser.HintOption()
	present, err := d.parser.OptionPresent()
	if err != nil {
		return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
	}
	if !present {
		return b.SetDefault(Default{})
	}
	if err := b.BeginSome(); err != nil {
		return err
	}
	innerShape := node.Shape.Elem()
	synthetic := &plan.Node{Shape: innerShape, Strategy: plan.Direct}
	if err := d.deserializeNode(b, synthetic); err != nil {
		return err
	}
	return b.End()
}

func (d *driver) deserializeSeq(b *partial.Partial, node *plan.Node) error {
	d.parser.HintSequence()
	ev, ok, err := d.parser.NextEvent()
	if err != nil {
		return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
	}
	if !ok || ev.Kind != wire.SequenceStart {
		return &Error{Kind: ErrKindTypeMismatch, Shape: node.Shape, Cause: fmt.Errorf("expected sequence start")}
	}
	beginFn := b.BeginList
	if node.Shape.Type == SetType {
		beginFn = b.BeginSet
	}
	if err := beginFn(); err != nil {
		return err
	}

	elemShape := node.Shape.Elem()
	elemNode := &plan.Node{Shape: elemShape, Strategy: plan.Direct}
	for {
		has, err := d.parser.SequenceHasNext()
		if err != nil {
			return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
		}
		if !has {
			break
		}
		if err := b.BeginListItem(); err != nil {
			return err
		}
		if err := d.deserializeNode(b, elemNode); err != nil {
			return err
		}
		if err := b.End(); err != nil {
			return err
		}
		if err := b.Push(); err != nil {
			return err
		}
	}
	return b.End()
}

func (d *driver) deserializeMap(b *partial.Partial, node *plan.Node) error {
	ev, ok, err := d.parser.NextEvent()
	if err != nil {
		return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
	}
	if !ok || ev.Kind != wire.StructStart {
		return &Error{Kind: ErrKindTypeMismatch, Shape: node.Shape, Cause: fmt.Errorf("expected map start")}
	}
	if err := b.BeginMap(); err != nil {
		return err
	}
	keyShape, valShape := node.Shape.Key(), node.Shape.Value()
	keyNode := &plan.Node{Shape: keyShape, Strategy: plan.Direct}
	valNode := &plan.Node{Shape: valShape, Strategy: plan.Direct}
	for {
		ev, ok, err = d.parser.PeekEvent()
		if err != nil {
			return &Error{Kind: ErrKindParser, Shape: node.Shape, Cause: err}
		}
		if !ok || ev.Kind == wire.StructEnd {
			d.parser.NextEvent()
			break
		}
		keyEv, _, _ := d.parser.NextEvent()

		if err := b.BeginMapKey(); err != nil {
			return err
		}
		if err := b.Set(wire.ScalarValue{Kind: wire.Str, Str: keyEv.Name}); err != nil {
			// keyShape might not be a string; fall back to structured key parse.
			if err2 := d.deserializeNode(b, keyNode); err2 != nil {
				return err2
			}
		}
		if err := b.End(); err != nil {
			return err
		}

		if err := b.BeginMapValue(); err != nil {
			return err
		}
		if err := d.deserializeNode(b, valNode); err != nil {
			return err
		}
		if err := b.End(); err != nil {
			return err
		}
	}
	return b.End()
}

func (d *driver) deserializeTransparent(b *partial.Partial, node *plan.Node) error {
	if err := b.BeginInner(); err != nil {
		return err
	}
	innerShape := node.Shape.Inner()
	innerNode := &plan.Node{Shape: innerShape, Strategy: plan.Direct}
	if err := d.deserializeNode(b, innerNode); err != nil {
		return err
	}
	return b.End()
}

func (d *driver) deserializeProxy(b *partial.Partial, node *plan.Node) error {
	def := node.Shape.EffectiveProxy("")
	if def == nil {
		return &Error{Kind: ErrKindOperationFailed, Shape: node.Shape, Cause: fmt.Errorf("strategy ContainerProxy but no proxy registered")}
	}
	if err := b.BeginCustomDeserialization(def); err != nil {
		return err
	}
	sourceShape := def.SourceShape()
	sourceNode := &plan.Node{Shape: sourceShape, Strategy: plan.Direct}
	if err := d.deserializeNode(b, sourceNode); err != nil {
		return err
	}
	return b.End()
}

func variantNames(shape *Shape) []string {
	out := make([]string, len(shape.Variants))
	for i, v := range shape.Variants {
		out[i] = v.EffectiveName()
	}
	return out
}

func variantPayloadNode(enumNode *plan.Node, variantIdx int) *plan.Node {
	variant := enumNode.Shape.Variants[variantIdx]
	payloadShape := variant.Data()
	return &plan.Node{
		Shape:    payloadShape,
		Strategy: plan.Direct,
		Schema:   buildPayloadSchema(payloadShape),
	}
}

func buildPayloadSchema(shape *Shape) map[plan.FieldKey]*plan.Node {
	schema := make(map[plan.FieldKey]*plan.Node, len(shape.Fields))
	for _, f := range shape.Fields {
		key := plan.FieldKey{Name: f.EffectiveName(), Category: f.Category()}
		schema[key] = &plan.Node{Shape: f.Shape(), Strategy: plan.Direct}
	}
	return schema
}
