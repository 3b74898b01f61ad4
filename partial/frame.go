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

// Package partial implements the incremental, stack-based value builder
// that every facet deserializer drives: a sequence of Begin*/Set/End
// calls that safely materializes a value of a runtime-chosen [facet.Shape]
// in memory, honoring ownership, drop-on-error, proxies, defaults, and
// flatten semantics.
//
// Grounded on the teacher's frame-stack parser (internal/tdp/vm), which
// drives a protobuf message's construction the same way: a stack of
// in-flight frames, each pointing into its parent's memory, popped and
// merged on completion. facet generalizes "parent's memory is always a
// protobuf message" to "parent's memory is whatever the target Shape
// says it is".
package partial

import (
	"reflect"

	"facet"
	"facet/ptr"
)

// Ownership describes who is responsible for freeing a [Frame]'s memory.
type Ownership uint8

// Ownership kinds.
const (
	// Owned: this frame must release data on drop/error.
	Owned Ownership = iota
	// BorrowedInPlace: data aliases a parent frame's memory (re-entering
	// an accumulator, e.g. appending into an already-Some Option<[]T>).
	BorrowedInPlace
	// ManagedElsewhere: lifetime tied to an external allocator; this
	// frame never frees data itself.
	ManagedElsewhere
)

// structTracker is the per-frame state for Struct/Variant-kind frames.
type structTracker struct {
	initBits  []bool
	openChild int // index into shape.Fields, or -1
	deferred  map[string]*Frame
}

// enumTracker is the per-frame state for Enum-kind frames.
type enumTracker struct {
	variant int // index into shape.Variants, or -1 if unselected
	payload structTracker
}

// listTracker is the per-frame state for List/Set-kind frames.
type listTracker struct {
	elem reflect.Value // addressable reflect.Value of the growing slice
}

// mapTracker is the per-frame state for Map-kind frames.
type mapTracker struct {
	m        reflect.Value // addressable reflect.Value of the map
	keyAddr  ptr.Uninit
	hasKey   bool
}

// optionTracker is the per-frame state for Option-kind frames.
type optionTracker struct {
	buildingInner bool
}

// Frame is one entry on a [Partial]'s stack, covering one in-flight
// sub-value.
type Frame struct {
	Data      ptr.Uninit
	Shape     *facet.Shape
	Ownership Ownership

	// TypePlan is an opaque handle the driver stashes here (normally a
	// *plan.Node); Partial itself never interprets it.
	TypePlan any

	IsInit bool
	// UsingCustomDeserialization is set while this frame is building the
	// *source* shape of a proxy conversion, prior to its __proxy_in being
	// invoked at End.
	UsingCustomDeserialization bool
	// ShapeLevelProxy, if non-nil, is the proxy this frame's finished
	// value will be converted through when it is ended.
	ShapeLevelProxy *facet.ProxyDef

	structT structTracker
	enumT   enumTracker
	listT   listTracker
	mapT    mapTracker
	optionT optionTracker

	scalarSet bool

	parentFieldName string // the field/variant name this frame fills in its parent, if any
}

func newFrame(shape *facet.Shape, data ptr.Uninit, own Ownership) *Frame {
	f := &Frame{Data: data, Shape: shape, Ownership: own}
	switch shape.Type {
	case facet.StructType:
		f.structT = structTracker{initBits: make([]bool, len(shape.Fields)), openChild: -1}
	case facet.EnumType:
		f.enumT = enumTracker{variant: -1}
	}
	return f
}

// requiredMissing returns the name of the first required, uninitialized
// field in this struct/variant-payload frame, or "" if none is missing.
func (f *Frame) requiredMissing() string {
	for i, init := range f.structT.initBits {
		if init {
			continue
		}
		field := f.Shape.Fields[i]
		if field.Flags&(facet.Skip) != 0 {
			continue
		}
		if field.Default.HasDefault() {
			continue
		}
		return field.Name
	}
	return ""
}
