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

import "unsafe"

// VTable is the set of type-erased operations a Shape needs performed on
// values of its underlying Go type, in place of the methods Go's type
// system would otherwise dispatch statically.
//
// Every function receives raw unsafe.Pointers rather than facet/ptr's
// typed Const/Mut/Uninit wrappers: facet/ptr needs to import facet (to
// refer to Shape), so Shape cannot hold a pointer back into facet/ptr
// without a cycle. facet/ptr adapts its typed pointers to and from
// unsafe.Pointer at the call sites that invoke a VTable entry.
//
// A VTable entry may be nil, meaning the operation is unsupported for
// that shape (e.g. Hash on a shape containing a function value); callers
// must check before invoking.
type VTable struct {
	// DropInPlace runs the destructor for the value at p, without freeing
	// p's backing memory. Required for every shape that owns a resource
	// facet's builder can partially initialize (so AllocShape-then-abandon
	// doesn't leak); nil for shapes with nothing to release.
	DropInPlace func(p unsafe.Pointer)

	// CloneInto copies the value at src into the uninitialized memory at
	// dst, taking ownership of any resources src's clone needs of its own.
	CloneInto func(dst, src unsafe.Pointer)

	// Display writes a human-facing rendering of the value at p.
	Display func(p unsafe.Pointer) string

	// Debug writes a debug rendering of the value at p.
	Debug func(p unsafe.Pointer) string

	// PartialEq reports whether the values at a and b are equal. Both must
	// be of the shape this VTable belongs to.
	PartialEq func(a, b unsafe.Pointer) bool

	// Hash folds the value at p into the running hash state h.
	Hash func(p unsafe.Pointer, h func(data []byte))

	// TryFrom attempts to initialize the uninitialized memory at dst from
	// the value at src, which is of the proxy/source shape named by the
	// effective [ProxyDef]. Present only on shapes with a proxy conversion.
	TryFrom func(dst, src unsafe.Pointer) error

	// TryIntoInner attempts to extract this shape's sole Inner value into
	// dst, for transparent newtypes whose unwrap can fail.
	TryIntoInner func(dst, src unsafe.Pointer) error

	// TryBorrowInner returns a pointer to this shape's Inner value within
	// p, without copying, for transparent newtypes.
	TryBorrowInner func(p unsafe.Pointer) (unsafe.Pointer, error)

	// Invariants reports whether the value at p satisfies every runtime
	// invariant this shape declares (e.g. a non-empty-string newtype).
	// Called at the end of Partial.Build; nil means "always valid".
	Invariants func(p unsafe.Pointer) error

	// Discriminant reads the live tag of the enum value at p and returns
	// it for matching against Variant.Discriminant. Meaningful only on an
	// EnumType shape's VTable; nil means the discriminant cannot be
	// recovered from p alone (ReprNPO, or an EnumRepr this package has no
	// default codec for and the registering code didn't override).
	Discriminant func(p unsafe.Pointer) int64

	// SetDiscriminant writes tag (a selected Variant's Discriminant) into
	// the enum storage at p. Counterpart to Discriminant; nil under the
	// same conditions.
	SetDiscriminant func(p unsafe.Pointer, tag int64)
}

// discriminantCodec returns the raw tag read/write pair for an enum's
// explicit discriminant storage strategy, or (nil, nil) for a Repr this
// package cannot decode generically (ReprAuto leaves the encoding to
// whatever the registering code supplies on VTable.Discriminant itself;
// ReprNPO has no tag to read — the live variant is inferred from which
// variant's payload is non-niche, which only the registering code knows).
func discriminantCodec(r Repr) (read func(unsafe.Pointer) int64, write func(unsafe.Pointer, int64)) {
	switch r {
	case ReprU8:
		return func(p unsafe.Pointer) int64 { return int64(*(*uint8)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*uint8)(p) = uint8(tag) }
	case ReprI8:
		return func(p unsafe.Pointer) int64 { return int64(*(*int8)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*int8)(p) = int8(tag) }
	case ReprU16:
		return func(p unsafe.Pointer) int64 { return int64(*(*uint16)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*uint16)(p) = uint16(tag) }
	case ReprI16:
		return func(p unsafe.Pointer) int64 { return int64(*(*int16)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*int16)(p) = int16(tag) }
	case ReprU32:
		return func(p unsafe.Pointer) int64 { return int64(*(*uint32)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*uint32)(p) = uint32(tag) }
	case ReprI32:
		return func(p unsafe.Pointer) int64 { return int64(*(*int32)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*int32)(p) = int32(tag) }
	case ReprU64:
		return func(p unsafe.Pointer) int64 { return int64(*(*uint64)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*uint64)(p) = uint64(tag) }
	case ReprI64:
		return func(p unsafe.Pointer) int64 { return *(*int64)(p) },
			func(p unsafe.Pointer, tag int64) { *(*int64)(p) = tag }
	case ReprUSize:
		return func(p unsafe.Pointer) int64 { return int64(*(*uintptr)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*uintptr)(p) = uintptr(tag) }
	case ReprISize:
		return func(p unsafe.Pointer) int64 { return int64(*(*int)(p)) },
			func(p unsafe.Pointer, tag int64) { *(*int)(p) = int(tag) }
	default:
		return nil, nil
	}
}
