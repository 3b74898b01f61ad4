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

package partial

import (
	"fmt"
	"reflect"
	"unsafe"

	"facet"
	"facet/internal/dbg"
	"facet/internal/xunsafe"
	"facet/ptr"
	"facet/wire"
)

// Partial is an incremental, stack-based builder for a value of a
// runtime-chosen [facet.Shape].
//
// A Partial is not safe for concurrent use, and must not be moved between
// goroutines mid-build; its frame stack is an ordinary, ungarded []*Frame.
type Partial struct {
	stack []*Frame
	path  facet.Path

	// deferred indexes stored sub-frames by their logical path, for the
	// case where a parser delivers fields out of declaration order and
	// one of them lives behind a flattened struct. Re-entering the same
	// path restores the frame instead of reallocating it.
	deferred map[string]*Frame
}

// New creates a Partial with no frames on its stack. Call AllocShape to
// begin building a root value.
func New() *Partial { return &Partial{} }

// Reset clears a Partial back to its zero state, so it can be reused for
// another, unrelated build. Used by the pool in package facet to recycle
// builders across Deserialize calls.
func (p *Partial) Reset() {
	p.stack = p.stack[:0]
	p.path = facet.Path{}
	clear(p.deferred)
}

// top returns the current top-of-stack frame, or nil if the stack is
// empty.
func (p *Partial) top() *Frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *Partial) err(kind facet.ErrorKind, shape *facet.Shape, cause error) error {
	dbg.Log(nil, "err", "%s at %s: %v\n%s", kind, p.path, cause, dbg.Dump(p.stack))
	return &facet.Error{Kind: kind, Path: p.path, Shape: shape, Cause: cause}
}

// AllocShape pushes a root frame for shape, allocating fresh, owned,
// uninitialized storage for it.
func (p *Partial) AllocShape(shape *facet.Shape) error {
	if shape.GoType() == nil && shape.Size != 0 {
		return p.err(facet.ErrKindUnsized, shape, nil)
	}
	u := ptr.Allocate(shape)
	p.stack = append(p.stack, newFrame(shape, u, Owned))
	return nil
}

// BeginNthField pushes a child frame over the i-th field of the top
// struct/variant-payload frame, pointing into the parent's own memory.
func (p *Partial) BeginNthField(i int) error {
	parent := p.top()
	if parent == nil || (parent.Shape.Type != facet.StructType && parent.enumPayloadActive() == nil) {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_nth_field: top frame is not a struct or enum variant"))
	}
	shape, tracker := parent.fieldContainer()
	if i < 0 || i >= len(shape.Fields) {
		return p.err(facet.ErrKindNoSuchField, shape, fmt.Errorf("field index %d out of range", i))
	}
	if tracker.initBits[i] {
		return p.err(facet.ErrKindFieldAlreadySet, shape, fmt.Errorf("field %q already set", shape.Fields[i].Name))
	}

	field := shape.Fields[i]
	fieldShape := field.Shape()
	addr := unsafe.Pointer(xunsafe.ByteAdd((*byte)(parent.Data.Addr()), field.Offset))
	child := newFrame(fieldShape, ptr.NewUninit(fieldShape, addr), BorrowedInPlace)
	child.parentFieldName = field.Name

	tracker.openChild = i
	p.stack = append(p.stack, child)
	p.path = p.path.Push(facet.FieldSegment(field.Name))
	dbg.Log(nil, "begin_nth_field", "pushed frame for %s (depth %d)", field.Name, len(p.stack))
	return nil
}

// BeginField resolves name via rename/alias on the top struct/variant
// frame, then behaves as BeginNthField.
func (p *Partial) BeginField(name string) error {
	parent := p.top()
	if parent == nil {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_field: empty stack"))
	}
	shape, _ := parent.fieldContainer()
	if shape == nil {
		return p.err(facet.ErrKindOperationFailed, parent.Shape, fmt.Errorf("begin_field: top frame is not a struct or enum variant"))
	}
	_, idx := shape.Field(name)
	if idx < 0 {
		return p.err(facet.ErrKindNoSuchField, shape, fmt.Errorf("no such field %q", name))
	}
	return p.BeginNthField(idx)
}

// SelectNthVariant writes the discriminant for variant i into the top
// enum frame and opens its payload tracker.
func (p *Partial) SelectNthVariant(i int) error {
	top := p.top()
	if top == nil || top.Shape.Type != facet.EnumType {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("select_nth_variant: top frame is not an enum"))
	}
	if i < 0 || i >= len(top.Shape.Variants) {
		return p.err(facet.ErrKindNoSuchVariant, top.Shape, fmt.Errorf("variant index %d out of range", i))
	}
	if top.enumT.variant >= 0 {
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("variant already selected"))
	}
	variant := top.Shape.Variants[i]
	if top.Shape.VTable.SetDiscriminant != nil {
		top.Shape.VTable.SetDiscriminant(top.Data.Addr(), variant.Discriminant)
	}
	top.enumT.variant = i
	payloadShape := variant.Data()
	top.enumT.payload = structTracker{initBits: make([]bool, len(payloadShape.Fields)), openChild: -1}
	top.IsInit = true // discriminant alone constitutes a valid (if incomplete) value
	return nil
}

// SelectVariant resolves name via rename on the top enum frame, then
// behaves as SelectNthVariant.
func (p *Partial) SelectVariant(name string) error {
	top := p.top()
	if top == nil || top.Shape.Type != facet.EnumType {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("select_variant: top frame is not an enum"))
	}
	_, idx := top.Shape.Variant(name)
	if idx < 0 {
		return p.err(facet.ErrKindNoSuchVariant, top.Shape, fmt.Errorf("no such variant %q", name))
	}
	return p.SelectNthVariant(idx)
}

// BeginList initializes an empty slice in the top frame's storage.
func (p *Partial) BeginList() error { return p.beginSeq(facet.ListType) }

// BeginSet initializes an empty set (represented as a slice with
// dedup-on-push semantics) in the top frame's storage.
func (p *Partial) BeginSet() error { return p.beginSeq(facet.SetType) }

func (p *Partial) beginSeq(want facet.Type) error {
	top := p.top()
	if top == nil || top.Shape.Type != want {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_list/set: top frame is not a %s", want))
	}
	goVal, ok := top.Data.AsGoValue()
	if !ok {
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("shape has no registered Go type"))
	}
	goVal.Set(reflect.MakeSlice(goVal.Type(), 0, 0))
	top.listT.elem = goVal
	top.IsInit = true
	return nil
}

// BeginMap initializes an empty map in the top frame's storage.
func (p *Partial) BeginMap() error {
	top := p.top()
	if top == nil || top.Shape.Type != facet.MapType {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_map: top frame is not a map"))
	}
	goVal, ok := top.Data.AsGoValue()
	if !ok {
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("shape has no registered Go type"))
	}
	goVal.Set(reflect.MakeMap(goVal.Type()))
	top.mapT.m = goVal
	top.IsInit = true
	return nil
}

// BeginListItem allocates scratch storage for one element of the top
// list/set frame and pushes it.
func (p *Partial) BeginListItem() error {
	top := p.top()
	if top == nil || (top.Shape.Type != facet.ListType && top.Shape.Type != facet.SetType) {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_list_item: top frame is not a list/set"))
	}
	elemShape := top.Shape.Elem()
	u := ptr.Allocate(elemShape)
	child := newFrame(elemShape, u, Owned)
	p.stack = append(p.stack, child)
	return nil
}

// Push moves the just-built top-of-stack item frame into its parent
// list/set, honoring set dedup via the element shape's PartialEq vtable
// entry when present.
func (p *Partial) Push() error {
	item := p.top()
	if item == nil {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("push: empty stack"))
	}
	if !item.IsInit {
		return p.err(facet.ErrKindOperationFailed, item.Shape, fmt.Errorf("push: item not initialized"))
	}
	p.stack = p.stack[:len(p.stack)-1]
	parent := p.top()
	if parent == nil {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("push: no parent list/set frame"))
	}

	itemVal, ok := item.Data.AssumeInit().AsGoValue()
	if !ok {
		return p.err(facet.ErrKindOperationFailed, item.Shape, fmt.Errorf("push: shape has no registered Go type"))
	}

	if parent.Shape.Type == facet.SetType && item.Shape.VTable.PartialEq != nil {
		for i := 0; i < parent.listT.elem.Len(); i++ {
			existing := parent.listT.elem.Index(i)
			if reflect.DeepEqual(existing.Interface(), itemVal.Interface()) {
				return nil // already present, drop the duplicate silently
			}
		}
	}

	parent.listT.elem.Set(reflect.Append(parent.listT.elem, itemVal))
	return nil
}

// BeginMapKey allocates scratch storage for the next map key.
func (p *Partial) BeginMapKey() error {
	top := p.top()
	if top == nil || top.Shape.Type != facet.MapType {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_map_key: top frame is not a map"))
	}
	keyShape := top.Shape.Key()
	u := ptr.Allocate(keyShape)
	top.mapT.keyAddr = u
	child := newFrame(keyShape, u, ManagedElsewhere)
	p.stack = append(p.stack, child)
	return nil
}

// BeginMapValue allocates scratch storage for the value paired with the
// most recently completed map key.
func (p *Partial) BeginMapValue() error {
	top := p.top()
	if top == nil || top.Shape.Type != facet.MapType {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_map_value: top frame is not a map"))
	}
	if !top.mapT.hasKey {
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("begin_map_value: no pending key"))
	}
	valueShape := top.Shape.Value()
	u := ptr.Allocate(valueShape)
	child := newFrame(valueShape, u, Owned)
	p.stack = append(p.stack, child)
	return nil
}

// BeginSome allocates (or, for an already-Some container accumulator,
// reuses) the inner frame of the top Option frame.
func (p *Partial) BeginSome() error {
	top := p.top()
	if top == nil || top.Shape.Type != facet.OptionType {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_some: top frame is not an option"))
	}

	if top.IsInit && top.optionT.buildingInner {
		// Re-entering an already-initialized accumulator (Option<[]T>):
		// alias the existing inner storage instead of reallocating.
		innerShape := top.Shape.Elem()
		child := newFrame(innerShape, ptr.NewUninit(innerShape, top.Data.Addr()), BorrowedInPlace)
		if innerShape.Type == facet.ListType || innerShape.Type == facet.SetType {
			if goVal, ok := ptr.NewMut(innerShape, top.Data.Addr()).AsGoValue(); ok {
				child.listT.elem = goVal
			}
		}
		p.stack = append(p.stack, child)
		return nil
	}

	innerShape := top.Shape.Elem()
	u := ptr.Allocate(innerShape)
	child := newFrame(innerShape, u, BorrowedInPlace)
	top.optionT.buildingInner = true
	p.stack = append(p.stack, child)
	return nil
}

// BeginInner pushes a frame over a transparent-newtype or immutable
// builder's inner/builder shape. For Option shapes this delegates to
// BeginSome.
func (p *Partial) BeginInner() error {
	top := p.top()
	if top == nil {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_inner: empty stack"))
	}
	if top.Shape.Type == facet.OptionType {
		return p.BeginSome()
	}
	var innerFn facet.ShapeFn
	switch {
	case top.Shape.Inner != nil:
		innerFn = top.Shape.Inner
	case top.Shape.BuilderShape != nil:
		innerFn = top.Shape.BuilderShape
	default:
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("begin_inner: shape has neither inner nor builder_shape"))
	}
	innerShape := innerFn()
	u := ptr.Allocate(innerShape)
	child := newFrame(innerShape, u, Owned)
	p.stack = append(p.stack, child)
	return nil
}

// BeginCustomDeserialization allocates a frame over the proxy's source
// shape, to be converted via __proxy_in when the frame ends.
func (p *Partial) BeginCustomDeserialization(def *facet.ProxyDef) error {
	top := p.top()
	if top == nil {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("begin_custom_deserialization: empty stack"))
	}
	sourceShape := def.SourceShape()
	u := ptr.Allocate(sourceShape)
	child := newFrame(sourceShape, u, Owned)
	child.UsingCustomDeserialization = true
	child.ShapeLevelProxy = def
	p.stack = append(p.stack, child)
	return nil
}

// Set writes a scalar value into the top frame's storage.
func (p *Partial) Set(v wire.ScalarValue) error {
	top := p.top()
	if top == nil || top.Shape.Type != facet.ScalarType {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("set: top frame is not a scalar"))
	}
	goVal, ok := top.Data.AsGoValue()
	if !ok {
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("set: shape has no registered Go type"))
	}
	if err := assignScalar(goVal, v); err != nil {
		return p.err(facet.ErrKindTypeMismatch, top.Shape, err)
	}
	top.IsInit = true
	top.scalarSet = true
	return nil
}

// SetDefault fills the top frame (an Option, writing None, or any shape
// with a Default on its owning field) with its default value.
func (p *Partial) SetDefault(def facet.Default) error {
	top := p.top()
	if top == nil {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("set_default: empty stack"))
	}
	if top.Shape.Type == facet.OptionType && !def.HasDefault() {
		top.IsInit = true // None
		return nil
	}
	if !def.HasDefault() {
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("set_default: no default available"))
	}
	goVal, ok := top.Data.AsGoValue()
	if !ok {
		return p.err(facet.ErrKindOperationFailed, top.Shape, fmt.Errorf("set_default: shape has no registered Go type"))
	}
	v := reflect.ValueOf(def.Get())
	if v.IsValid() && v.Type().AssignableTo(goVal.Type()) {
		goVal.Set(v)
	}
	top.IsInit = true
	return nil
}

// End completes the top frame: runs conversions/invariants, then moves or
// merges its value into its parent's slot, and pops it. Calling End on
// the last remaining frame is equivalent to preparing for Build.
func (p *Partial) End() error {
	top := p.top()
	if top == nil {
		return p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("end: empty stack"))
	}

	if top.Shape.Type == facet.StructType || top.enumPayloadActive() != nil {
		shape, tracker := top.Shape, &top.structT
		if top.Shape.Type == facet.EnumType {
			shape = top.Shape.Variants[top.enumT.variant].Data()
			tracker = &top.enumT.payload
		}
		if missing := (&Frame{Shape: shape, structT: *tracker}).requiredMissing(); missing != "" {
			return p.err(facet.ErrKindMissingRequiredField, shape, fmt.Errorf("missing required field %q", missing))
		}
		if shape.VTable.Invariants != nil {
			if err := shape.VTable.Invariants(top.Data.Addr()); err != nil {
				return p.err(facet.ErrKindInvariantViolated, shape, err)
			}
		}
		top.IsInit = true
	}

	if top.ShapeLevelProxy != nil {
		target := top.ShapeLevelProxy
		if target.In != nil {
			// The parent slot is whatever the proxy's target shape is;
			// the driver is expected to have pre-allocated it at the
			// position this frame fills, so In writes directly there via
			// the parent frame once popped. We perform the conversion
			// eagerly here, in place, since Go lacks a generic
			// "reinterpret storage as a different type" primitive beyond
			// unsafe.Pointer, which both sides already carry.
			if err := target.In(top.Data.AssumeInit().Const, p.parentSlot()); err != nil {
				return p.err(facet.ErrKindConversion, top.Shape, err)
			}
			p.pop()
			return nil
		}
	}

	if len(p.stack) == 1 {
		// Root frame: nothing to merge into, just mark complete.
		p.pop0Keep()
		return nil
	}

	p.mergeIntoParent(top)
	p.pop()
	p.path = p.path.Pop()
	dbg.Log(nil, "end", "popped frame for %s (depth %d)", top.parentFieldName, len(p.stack))
	return nil
}

// pop removes the top frame from the stack without any bookkeeping.
func (p *Partial) pop() { p.stack = p.stack[:len(p.stack)-1] }

// pop0Keep is a no-op placeholder kept distinct from pop to make clear
// that ending the last frame is deliberately not a stack pop — Build
// still needs it present.
func (p *Partial) pop0Keep() {}

// parentSlot returns an Uninit pointer to the slot in the frame beneath
// top that top's finished value should be written into.
func (p *Partial) parentSlot() ptr.Uninit {
	if len(p.stack) < 2 {
		return ptr.Uninit{}
	}
	parent := p.stack[len(p.stack)-2]
	top := p.stack[len(p.stack)-1]
	return ptr.NewUninit(top.Shape, parent.Data.Addr())
}

// mergeIntoParent moves child's now-initialized value into its slot
// within the frame beneath it, and updates that frame's init bookkeeping.
func (p *Partial) mergeIntoParent(child *Frame) {
	if len(p.stack) < 2 {
		return
	}
	parent := p.stack[len(p.stack)-2]

	switch parent.Shape.Type {
	case facet.MapType:
		if parent.mapT.hasKey {
			// child is a value frame completing a pending key.
			keyVal, _ := parent.mapT.keyAddr.AssumeInit().AsGoValue()
			valVal, _ := child.Data.AssumeInit().AsGoValue()
			if parent.mapT.m.IsValid() && keyVal.IsValid() && valVal.IsValid() {
				parent.mapT.m.SetMapIndex(keyVal, valVal)
			}
			parent.mapT.hasKey = false
		} else {
			parent.mapT.hasKey = true
		}
	case facet.StructType:
		if parent.structT.openChild >= 0 {
			parent.structT.initBits[parent.structT.openChild] = true
			parent.structT.openChild = -1
		}
	case facet.EnumType:
		if parent.enumT.payload.openChild >= 0 {
			parent.enumT.payload.initBits[parent.enumT.payload.openChild] = true
			parent.enumT.payload.openChild = -1
		}
	case facet.OptionType:
		parent.IsInit = true
	default:
		// Transparent/proxy/builder inner: data already lives at the
		// parent's address because the child frame was allocated
		// BorrowedInPlace/Owned over exactly that memory by BeginInner,
		// or will be copied by the root package's Transparent driver
		// path using the VTable's TryIntoInner.
	}
}

// enumPayloadActive reports whether this frame is an enum with a variant
// already selected, returning the payload tracker if so.
func (f *Frame) enumPayloadActive() *structTracker {
	if f.Shape.Type != facet.EnumType || f.enumT.variant < 0 {
		return nil
	}
	return &f.enumT.payload
}

// fieldContainer returns the shape and struct tracker that
// BeginNthField/BeginField should resolve fields against for the current
// top frame: either the frame's own struct shape, or the active enum
// variant's payload shape.
func (f *Frame) fieldContainer() (*facet.Shape, *structTracker) {
	if f.Shape.Type == facet.StructType {
		return f.Shape, &f.structT
	}
	if payload := f.enumPayloadActive(); payload != nil {
		return f.Shape.Variants[f.enumT.variant].Data(), payload
	}
	return nil, nil
}

// Build finishes the builder, returning the root value's pointer. Fails
// if more than one frame remains (an unterminated descent) or the root
// is not initialized.
func (p *Partial) Build() (ptr.Mut, error) {
	if len(p.stack) != 1 {
		return ptr.Mut{}, p.err(facet.ErrKindOperationFailed, nil, fmt.Errorf("build: %d frames still open", len(p.stack)))
	}
	root := p.stack[0]
	if !root.IsInit {
		return ptr.Mut{}, p.err(facet.ErrKindOperationFailed, root.Shape, fmt.Errorf("build: root not initialized"))
	}
	return root.Data.AssumeInit(), nil
}

// Drop releases every initialized portion of every remaining frame,
// bottom-up, and frees Owned storage. It is always safe to call, and is
// the operation an aborted deserialization performs instead of Build.
func (p *Partial) Drop() {
	for i := len(p.stack) - 1; i >= 0; i-- {
		f := p.stack[i]
		if f.IsInit {
			ptr.Deallocate(f.Data)
		}
	}
	p.stack = nil
}
