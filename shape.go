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
	"reflect"

	"google.golang.org/protobuf/reflect/protoreflect"

	"facet/internal/swiss"
)

// Type discriminates the kind of value a [Shape] describes.
//
// This is distinct from [Kind], which further categorizes Scalar shapes.
type Type uint8

// The Shape kinds a value can take.
const (
	InvalidType Type = iota
	ScalarType
	StructType
	EnumType
	PointerType
	ListType
	MapType
	SetType
	ArrayType
	OptionType
	TupleType
	OpaqueType
)

// String implements [fmt.Stringer].
func (t Type) String() string {
	switch t {
	case ScalarType:
		return "scalar"
	case StructType:
		return "struct"
	case EnumType:
		return "enum"
	case PointerType:
		return "pointer"
	case ListType:
		return "list"
	case MapType:
		return "map"
	case SetType:
		return "set"
	case ArrayType:
		return "array"
	case OptionType:
		return "option"
	case TupleType:
		return "tuple"
	case OpaqueType:
		return "opaque"
	default:
		return "invalid"
	}
}

// Kind further categorizes a Scalar [Shape], reusing protoreflect's scalar
// kind enum as the source of truth for numeric categorization — the same
// enum the teacher's archetype tables are keyed by.
type Kind = protoreflect.Kind

// Repr is the discriminant storage strategy for an enum Shape.
type Repr uint8

// Enum discriminant storage kinds.
const (
	ReprAuto Repr = iota
	ReprU8
	ReprI8
	ReprU16
	ReprI16
	ReprU32
	ReprI32
	ReprU64
	ReprI64
	ReprUSize
	ReprISize
	ReprNPO // Niche-pointer-optimized: no explicit discriminant storage.
)

// StructKind distinguishes the three struct-like shapes facet recognizes.
type StructKind uint8

// Struct kinds.
const (
	StructKindNamed StructKind = iota // Named fields.
	StructKindTuple                   // Positional fields, no names.
	StructKindUnit                    // No fields at all.
)

// ShapeFn is a thunk returning a Shape. Shapes form cycles through
// recursive types (struct Node{ Children []Node }), so fields, variants,
// and container element types all refer to each other through thunks
// rather than storing a *Shape inline; a thunk closes the cycle without a
// static-initialization-order dependency.
type ShapeFn func() *Shape

// Shape is an immutable, process-wide descriptor of one concrete type.
//
// A Shape is usually constructed once, at init time, and registered with
// [Register]; SHAPE() for a type then always returns the same address,
// which is the invariant [Deserialize]/[Serialize] and the plan cache rely
// on ([plan] memoizes by Shape pointer).
type Shape struct {
	// ID is the type's fully-qualified name, e.g. "mypkg.Point".
	ID string

	Type Type
	Size uintptr
	Align uintptr

	// TypeParams holds the shapes of this type's generic parameters, in
	// declaration order, for types that have any.
	TypeParams []ShapeFn

	// ScalarKind is meaningful only when Type == ScalarType.
	ScalarKind Kind

	// Struct / tuple shapes.
	StructKind StructKind
	Fields     []Field

	// Enum shapes.
	EnumRepr Repr
	Variants []Variant

	// Pointer, List, Set, Option, Array element shapes.
	Elem ShapeFn
	// Array length, meaningful only when Type == ArrayType.
	ArrayLen int

	// Map key/value shapes.
	Key   ShapeFn
	Value ShapeFn

	VTable     VTable
	Attributes Attributes

	// Inner is set for transparent newtypes: the shape of the sole field
	// whose wire representation this type adopts wholesale.
	Inner ShapeFn
	// BuilderShape is set for immutable-collection builders: a staging
	// shape used while accumulating elements, distinct from the shape of
	// the finished collection.
	BuilderShape ShapeFn

	// goType is the underlying Go type this shape describes, used by
	// facet/ptr to perform GC-safe allocation. Shapes are not required to
	// carry one (an entirely synthetic shape need not), but any shape
	// reachable from [Register] will have it populated.
	goType reflect.Type
}

// GoType returns the underlying Go type this shape was registered against,
// or nil if the shape was constructed without one.
func (s *Shape) GoType() reflect.Type { return s.goType }

// Field looks up a field by name, honoring rename and alias attributes.
// Returns the field and its index, or (nil, -1) if absent.
func (s *Shape) Field(name string) (*Field, int) {
	if s.Type != StructType {
		return nil, -1
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.EffectiveName() == name {
			return f, i
		}
		for _, alias := range f.Attributes.Aliases() {
			if alias == name {
				return f, i
			}
		}
	}
	return nil, -1
}

// Variant looks up a variant by name. Returns the variant and its index,
// or (nil, -1) if absent.
func (s *Shape) Variant(name string) (*Variant, int) {
	if s.Type != EnumType {
		return nil, -1
	}
	for i := range s.Variants {
		if s.Variants[i].EffectiveName() == name {
			return &s.Variants[i], i
		}
	}
	return nil, -1
}

// FieldsInOrder returns this shape's fields in declaration order.
func (s *Shape) FieldsInOrder() []Field { return s.Fields }

// FieldsForSerialize returns this shape's fields in serialization order,
// skipping any field with the SkipSerializing flag.
func (s *Shape) FieldsForSerialize() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Flags&SkipSerializing != 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// EffectiveProxy returns the proxy definition that applies for the given
// format namespace (e.g. "xml"), falling back to the format-agnostic proxy
// if the format has none of its own, or nil if there is no proxy at all.
func (s *Shape) EffectiveProxy(formatNamespace string) *ProxyDef {
	if p, ok := s.Attributes.proxies[formatNamespace]; ok {
		return p
	}
	if p, ok := s.Attributes.proxies[""]; ok {
		return p
	}
	return nil
}

// registry is the process-wide map from Go type to Shape, plus a
// name-indexed table used for alias/rename lookups by external tooling
// (such as cmd/facetdump).
var registry = struct {
	byType *swiss.Table[string, *Shape]
	byID   *swiss.Table[string, *Shape]
}{
	byType: swiss.New[string, *Shape](swiss.HashString),
	byID:   swiss.New[string, *Shape](swiss.HashString),
}

// Register associates shape with the Go type T, so that [Of] can recover
// it later. It is idiomatic to call Register from an init function
// alongside the Shape literal itself.
func Register[T any](shape *Shape) *Shape {
	shape.goType = reflect.TypeFor[T]()
	if shape.Type == EnumType && shape.VTable.Discriminant == nil {
		if read, write := discriminantCodec(shape.EnumRepr); read != nil {
			shape.VTable.Discriminant = read
			shape.VTable.SetDiscriminant = write
		}
	}
	key := shape.goType.String()
	*registry.byType.Insert(key) = shape
	*registry.byID.Insert(shape.ID) = shape
	return shape
}

// Of returns the registered Shape for T, or nil if T was never registered.
func Of[T any]() *Shape {
	key := reflect.TypeFor[T]().String()
	if p := registry.byType.Lookup(key); p != nil {
		return *p
	}
	return nil
}

// Lookup returns the registered Shape with the given type ID, or nil.
func Lookup(id string) *Shape {
	if p := registry.byID.Lookup(id); p != nil {
		return *p
	}
	return nil
}

// RegisteredShapes returns every Shape registered in this process, for
// introspection tools such as cmd/facetdump. The order is unspecified.
func RegisteredShapes() []*Shape {
	out := make([]*Shape, 0, registry.byID.Len())
	registry.byID.All(func(_ string, s *Shape) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Facet is the marker contract implemented by any type that publishes a
// Shape through [Register]. Most code interacts with shapes through [Of]
// and never needs this interface; it exists for generic code that wants to
// accept "any faceted value" as a parameter constraint.
type Facet interface {
	// ShapeOf returns this value's Shape. Implementations should simply
	// return the result of a package-level Of[T]() call.
	ShapeOf() *Shape
}
