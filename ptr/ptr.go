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

// Package ptr provides type-erased, shape-aware pointers: the currency
// facet/partial and facet/peek exchange instead of typed Go pointers,
// since the type being built or read is only known at runtime through a
// [facet.Shape].
//
// Unlike facet's teacher, which allocates protobuf messages out of a
// pointer-free byte arena (safe because no scalar, repeated, or map
// field ever holds a real Go pointer), facet must build arbitrary user
// types: strings, slices, maps, and interface fields all contain genuine
// heap pointers the garbage collector must see. Allocate therefore goes
// through reflect.New against the shape's registered Go type rather than
// bump-allocating raw bytes, so the runtime's GC metadata for the
// allocation is correct from the start.
package ptr

import (
	"fmt"
	"reflect"
	"unsafe"

	"facet"
	"facet/internal/xunsafe"
)

// Const is a read-only, type-erased pointer to a fully-initialized value
// of the given shape.
type Const struct {
	shape *facet.Shape
	addr  unsafe.Pointer
}

// Mut is a read-write, type-erased pointer to a fully-initialized value.
type Mut struct{ Const }

// Uninit is a pointer to unintialized (or partially-initialized) memory
// sized and aligned for the given shape.
type Uninit struct{ Const }

// NewConst wraps an existing pointer as a Const of the given shape. Callers
// are responsible for ensuring addr actually points to shape.Size() bytes
// of initialized, correctly-aligned memory.
func NewConst(shape *facet.Shape, addr unsafe.Pointer) Const {
	return Const{shape: shape, addr: addr}
}

// NewMut wraps an existing pointer as a Mut of the given shape.
func NewMut(shape *facet.Shape, addr unsafe.Pointer) Mut {
	return Mut{NewConst(shape, addr)}
}

// NewUninit wraps an existing pointer as an Uninit of the given shape.
func NewUninit(shape *facet.Shape, addr unsafe.Pointer) Uninit {
	return Uninit{NewConst(shape, addr)}
}

// Shape returns the shape this pointer was constructed with.
func (p Const) Shape() *facet.Shape { return p.shape }

// Addr returns the underlying address.
func (p Const) Addr() unsafe.Pointer { return p.addr }

// RawPointer satisfies the narrow interfaces facet.ProxyDef's In/Out
// functions are declared against, letting *ProxyDef callers pass a Const
// or Uninit directly where facet expects its own unexported pointer
// interfaces.
func (p Const) RawPointer() uintptr { return uintptr(p.addr) }

// IsNil reports whether this pointer's address is nil, which is valid for
// a shape with Size == 0 (a zero-sized type needs no backing memory at
// all, and facet represents such "dangling" pointers with addr == nil).
func (p Const) IsNil() bool { return p.addr == nil }

// Field returns a Const pointing at the named field's storage within a
// struct-shaped value. Panics if p's shape is not StructType or has no
// such field.
func (p Const) Field(name string) Const {
	f, idx := p.shape.Field(name)
	if idx < 0 {
		panic(fmt.Sprintf("ptr: no such field %q on %s", name, p.shape.ID))
	}
	addr := xunsafe.ByteAdd((*byte)(p.addr), f.Offset)
	return Const{shape: f.Shape(), addr: unsafe.Pointer(addr)}
}

// Mut upgrades a Const to a Mut. Callers must know independently that the
// memory p refers to is actually mutable (i.e. that it was reached from a
// Mut or Uninit originally, not aliased from borrowed immutable storage).
func (p Const) Mut() Mut { return Mut{p} }

// Field returns a Mut pointing at the named field's storage.
func (p Mut) Field(name string) Mut { return p.Const.Field(name).Mut() }

// AssumeInit reinterprets fully-written Uninit memory as initialized,
// handing back ownership as a Mut. Callers must not call this until every
// field (or the scalar itself) has actually been written; facet/partial's
// Frame tracks this via its field bitset and panics before calling
// AssumeInit if it isn't satisfied.
func (p Uninit) AssumeInit() Mut { return Mut{p.Const} }

// Field returns an Uninit pointing at the named field's storage, for
// writing during construction.
func (p Uninit) Field(name string) Uninit { return Uninit{p.Const.Field(name)} }

// Allocate reserves zeroed, GC-visible memory for a value of shape and
// returns an Uninit pointer to it. Panics if shape has no registered Go
// type (an Unsized shape cannot be allocated this way; see
// [facet.ErrKindUnsized] for the caller-facing error this should be
// turned into instead of panicking, for shapes under partial's control).
func Allocate(shape *facet.Shape) Uninit {
	goType := shape.GoType()
	if goType == nil {
		panic(fmt.Sprintf("ptr: cannot allocate unsized shape %s", shape.ID))
	}
	if shape.Size == 0 {
		// Zero-sized type: any non-nil, correctly-aligned pointer works,
		// but nil is conventional and allocation-free.
		return NewUninit(shape, nil)
	}
	v := reflect.New(goType)
	return NewUninit(shape, v.UnsafePointer())
}

// Deallocate releases memory obtained from Allocate. Because Allocate uses
// reflect.New, the backing memory is ordinary GC-managed heap memory; the
// garbage collector reclaims it once nothing references it, so Deallocate
// need not (and cannot) free anything explicitly. It exists so call sites
// that drop a partially-built value have a single place to also invoke
// the shape's VTable.DropInPlace first.
func Deallocate(p Uninit) {
	if p.shape != nil && p.shape.VTable.DropInPlace != nil && p.addr != nil {
		p.shape.VTable.DropInPlace(p.addr)
	}
}

// AsGoValue reinterprets a Const as a reflect.Value of its registered Go
// type, for bridging into code (such as facetyaml, which sits on top of
// gopkg.in/yaml.v3's reflection-based API) that wants a typed value rather
// than a raw pointer.
func (p Const) AsGoValue() (reflect.Value, bool) {
	goType := p.shape.GoType()
	if goType == nil || p.addr == nil {
		return reflect.Value{}, false
	}
	return reflect.NewAt(goType, p.addr).Elem(), true
}

// AddrOfValue returns the address of an existing, already-initialized Go
// value, for wrapping it as a Const/Mut without going through Allocate.
// Used by Serialize, which starts from a plain Go value the caller
// already owns rather than from builder-owned storage.
func AddrOfValue[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }
