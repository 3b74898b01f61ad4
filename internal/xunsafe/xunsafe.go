// Copyright 2020-2025 Buf Technologies, Inc.
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

// Package xunsafe provides a more convenient interface for performing unsafe
// operations than Go's built-in package unsafe.
//
// facet's Partial builder and Peek reader work against raw memory addresses
// rather than typed Go values, because the shape a [partial.Frame] is
// pointing at is only known at runtime. Partial.BeginNthField and
// ptr.Const.Field (which every Peek field access goes through) compute a
// field's address with this package's ByteAdd rather than a bare
// unsafe.Add, so the scaling/pointer-arithmetic rules live in one place.
package xunsafe

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"facet/internal/xunsafe/layout"
)

const (
	PointerSize  = int(unsafe.Sizeof(unsafe.Pointer(nil)))
	PointerAlign = int(unsafe.Sizeof(unsafe.Pointer(nil)))

	Int32Size  = int(unsafe.Sizeof(int32(0)))
	Int32Align = int(unsafe.Sizeof(int32(0)))

	Int64Size  = int(unsafe.Sizeof(int64(0)))
	Int64Align = int(unsafe.Sizeof(int64(0)))
)

// Layout returns the size and alignment of a given type.
func Layout[T any]() (size, align int) {
	return layout.Size[T](), layout.Align[T]()
}

// Int is any integer type usable as an offset or index.
type Int interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		uintptr
}

// BitCast performs an unsafe bitcast from one type to another.
//
// From and To must have identical size, or the result is garbage.
func BitCast[To, From any](v From) To {
	return *(*To)(unsafe.Pointer(&v))
}

// Cast casts one pointer type to another.
func Cast[To, From any](p *From) *To {
	return (*To)(unsafe.Pointer(p))
}

// Add adds the given offset to p, scaled by the size of E.
func Add[P ~*E, E any, I Int](p P, n I) P {
	return P(unsafe.Add(unsafe.Pointer(p), uintptr(layout.Size[E]())*uintptr(n)))
}

// Sub computes the difference between two pointers, scaled by the size of E.
func Sub[P ~*E, E any](p1, p2 P) int {
	return int(uintptr(unsafe.Pointer(p1))-uintptr(unsafe.Pointer(p2))) / layout.Size[E]()
}

// ByteAdd adds the given offset to p, without scaling by the size of E.
func ByteAdd[P ~*E, E any, I Int](p P, n I) P {
	return P(unsafe.Add(unsafe.Pointer(p), uintptr(n)))
}

// Load loads a value of the given type at the given index.
func Load[P ~*E, E any, I Int](p P, n I) E {
	return *Add(p, n)
}

// Store stores a value at the given index.
func Store[P ~*E, E any, I Int](p P, n I, v E) {
	*Add(p, n) = v
}

// ByteLoad loads a value of type T at the given byte offset from p.
func ByteLoad[T any, P ~*E, E any, I Int](p P, n I) T {
	return *Cast[T](ByteAdd(p, n))
}

// ByteStore stores a value of type T at the given byte offset from p.
func ByteStore[T any, P ~*E, E any, I Int](p P, n I, v T) {
	*Cast[T](ByteAdd(p, n)) = v
}

// Slice is like [unsafe.Slice], but isn't as branchy.
func Slice[P ~*E, E any, I Int](p P, len I) []E {
	return Slice2(p, len, len)
}

// Slice2 is like [unsafe.Slice], but allows specifying length and capacity
// separately.
func Slice2[P ~*E, E any, I Int](p P, len, cap I) []E {
	return unsafe.Slice(p, cap)[:len]
}

// LoadSlice loads a slice element without performing a bounds check.
func LoadSlice[S ~[]E, E any, I Int](s S, n I) E {
	return Load(unsafe.SliceData(s), n)
}

// Bytes converts a pointer into a slice of its raw bytes.
func Bytes[P ~*E, E any](p P) []byte {
	return Slice(Cast[byte](p), layout.Size[E]())
}

// String is like [unsafe.String], but isn't as branchy.
func String[P ~*E, E any, I Int](p P, len I) string {
	slice := struct {
		ptr P
		len int
	}{p, int(len) * layout.Size[E]()}
	return BitCast[string](slice)
}

// SliceToString reinterprets a slice as a string with no copy.
func SliceToString[S ~[]E, E any](s S) string {
	str := struct {
		ptr *E
		len int
	}{unsafe.SliceData(s), len(s) * layout.Size[E]()}
	return BitCast[string](str)
}

// StringToSlice reinterprets a string as a slice with no copy.
//
// The caller must never mutate through the result.
func StringToSlice[S ~[]E, E any](s string) S {
	size := layout.Size[E]()
	return unsafe.Slice(Cast[E](unsafe.StringData(s)), len(s)/size)
}

// Copy copies n elements from src to dst.
func Copy[P ~*E, E any, I Int](dst, src P, n I) {
	copy(Slice(dst, n), Slice(src, n))
}

// Clear zeros n elements at p.
func Clear[P ~*E, E any, I Int](p P, n I) {
	clear(Slice(p, n))
}

var (
	alwaysFalse bool
	sink        unsafe.Pointer //nolint:unused
)

// Escape forces a pointer to be considered heap-escaping by the compiler's
// escape analysis.
func Escape[P ~*E, E any](p P) P {
	if alwaysFalse {
		sink = unsafe.Pointer(p)
	}
	return p
}

// NoEscape hides a pointer from escape analysis, preventing it from
// escaping to the heap.
func NoEscape[P ~*E, E any](p P) P {
	//nolint:staticcheck // False positive: complains that p^0 does nothing.
	return P((AddrOf(p) ^ 0).AssertValid())
}

// iface is the internal representation of a Go interface value.
type iface struct {
	itab uintptr
	data *byte
}

// AnyData extracts the pointer value from an any.
func AnyData(v any) *byte {
	return Cast[iface](&v).data
}

// AnyType extracts the opaque itab pointer from an any.
func AnyType(v any) uintptr {
	return Cast[iface](&v).itab
}

// AnyBytes extracts a slice pointing to the data of an any.
//
// If v's dynamic type is directly inlined into the interface word (a
// pointer, a one-word pointer-shaped struct, etc.), this returns a slice
// over that single word; otherwise it returns a slice over the pointee.
func AnyBytes(v any) []byte {
	if v == nil {
		return nil
	}

	t := reflect.TypeOf(v)
	p := AnyData(v)
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.UnsafePointer && !InlinedAny1(t) {
		return unsafe.Slice(p, t.Size())
	}
	return unsafe.Slice(Cast[byte](&p), unsafe.Sizeof(p))
}

// InlinedAny1 returns whether a reflect.Type's representation is inlined
// directly into an interface word.
func InlinedAny1(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Map, reflect.Func:
		return true
	default:
		return false
	}
}

// Addr is a typed raw address: a pointer value that the GC does not track.
//
// Storing a live heap pointer as an Addr (rather than a *T) hides it from
// the garbage collector, so arenas and the tagged rep[E] union used by
// peek's list/map accumulators keep data alive via other means (usually an
// owning arena.Arena kept reachable elsewhere).
type Addr[T any] uintptr

// AddrOf gets the address of a pointer.
func AddrOf[P ~*E, E any](p P) Addr[E] {
	return Addr[E](unsafe.Pointer(p))
}

// AssertValid reinterprets this address as a live pointer.
//
//go:nosplit
func (a Addr[T]) AssertValid() *T {
	return (*T)(unsafe.Pointer(a)) //nolint:govet // Intentional unsafe escape hatch.
}

// Add adds the given offset to this address, scaled by the size of T.
func (a Addr[T]) Add(n int) Addr[T] {
	return a + Addr[T](n*layout.Size[T]())
}

// Sub computes the scaled difference between two addresses.
func (a Addr[T]) Sub(b Addr[T]) int {
	return int(a-b) / layout.Size[T]()
}

// Misalign returns the misalignment for an address: i.e., the byte offset to
// make this pointer aligned to the previous, or next, align-aligned word.
//
// align must be a power of two. If a is already aligned, returns 0, 0.
func (a Addr[T]) Misalign(align int) (prev, next int) {
	addr := int(a)
	prev = addr & (align - 1)
	next = (align - addr) & (align - 1)
	return prev, next
}

// Format implements [fmt.Formatter].
func (a Addr[T]) Format(state fmt.State, verb rune) {
	if verb == 'v' {
		fmt.Fprintf(state, "%#x", uintptr(a))
		return
	}
	fmt.Fprintf(state, fmt.FormatString(state, verb), uintptr(a))
}

// VLA is a mechanism for accessing a variable-length array that follows
// some struct in memory, without the Go compiler inserting a bounds-checked
// load of the zero-length array itself.
type VLA[T any] [0]T

// Beyond obtains the VLA immediately past the (aligned) end of *p.
func Beyond[T, Header any](p *Header) *VLA[T] {
	size := layout.Pad(layout.Size[Header](), layout.Align[T]())
	return Cast[VLA[T]](ByteAdd(p, size))
}

// Get returns a pointer to the nth element of this array.
func (a *VLA[T]) Get(n int) *T {
	return Add(Cast[T](a), n)
}

// Slice converts this VLA into a slice of the given length.
func (a *VLA[T]) Slice(n int) []T {
	return unsafe.Slice(a.Get(0), n)
}

// NoCopy is an embeddable marker type that makes `go vet -copylocks` flag a
// struct as non-copyable, by giving it a [sync.Locker]-shaped method set.
type NoCopy [0]sync.Mutex

// Lock implements sync.Locker.
func (*NoCopy) Lock() {}

// Unlock implements sync.Locker.
func (*NoCopy) Unlock() {}

// PC is a raw function pointer, usable to store a captureless func without
// an extra indirection through a funcval.
//
// Suppose a func() is in rax. Go implements calling it by emitting:
//
//	mov  rdx, rax
//	mov  rcx, [rdx]
//	call rcx
//
// For a captureless func, this load is of a constant containing the PC of
// the function to call, which can cause a cache miss when the vtable
// storing it is cold. PC keeps that constant inline instead.
type PC[F any] uintptr

// NewPC wraps a func value. This performs no checking that f does not
// capture any variables; wrapping a closure produces a PC that, if called
// after its original funcval is collected, has undefined behavior.
func NewPC[F any](f F) PC[F] {
	return *BitCast[*PC[F]](f)
}

// Get returns the func this PC wraps.
func (pc *PC[F]) Get() F {
	return BitCast[F](pc)
}
