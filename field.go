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

// FieldFlags is a bitset of per-field behaviors.
type FieldFlags uint16

// Field flag bits.
const (
	Sensitive FieldFlags = 1 << iota
	Skip
	SkipSerializing
	SkipSerializingIf
	Child
	Flattened

	// DOM role bits, meaningful for tree-shaped formats (XML, HTML).
	DOMAttribute
	DOMText
	DOMTag
	DOMElements
)

// FieldCategory classifies how a field participates in a DOM-shaped
// format's tree — attribute vs. child element vs. text content, etc.
//
// Grounded on facet-reflect's FieldCategory: DOM formats need a finer
// classification than "is this a field" because XML/HTML distinguish
// attributes, child elements, and text nodes within one struct.
type FieldCategory uint8

// Field categories for DOM-shaped formats.
const (
	CategoryElement FieldCategory = iota
	CategoryAttribute
	CategoryText
	CategoryTag
	CategoryElements
)

// String implements [fmt.Stringer].
func (c FieldCategory) String() string {
	switch c {
	case CategoryAttribute:
		return "attribute"
	case CategoryText:
		return "text"
	case CategoryTag:
		return "tag"
	case CategoryElements:
		return "elements"
	default:
		return "element"
	}
}

// FromFieldFlags derives a field's DOM category from its flags. Fields
// with no DOM role bit set are ordinary elements.
func FromFieldFlags(f FieldFlags) FieldCategory {
	switch {
	case f&DOMAttribute != 0:
		return CategoryAttribute
	case f&DOMText != 0:
		return CategoryText
	case f&DOMTag != 0:
		return CategoryTag
	case f&DOMElements != 0:
		return CategoryElements
	default:
		return CategoryElement
	}
}

// Default describes how a field's zero state should be filled when absent
// from input.
type Default struct {
	// Value, if non-nil, is a ready-made default value of the field's
	// shape.
	Value any
	// Func, if non-nil, is called to produce a fresh default each time one
	// is needed (for values, like time.Now(), that must not be shared).
	Func func() any
}

// HasDefault reports whether a Default was actually supplied (the zero
// Default means "no default").
func (d Default) HasDefault() bool { return d.Value != nil || d.Func != nil }

// Get produces this field's default value.
func (d Default) Get() any {
	if d.Func != nil {
		return d.Func()
	}
	return d.Value
}

// Field describes one member of a struct or tuple Shape.
type Field struct {
	Name       string
	Offset     uintptr
	Shape      ShapeFn
	Flags      FieldFlags
	Attributes Attributes
	Default    Default
}

// Category returns this field's DOM category.
func (f *Field) Category() FieldCategory { return FromFieldFlags(f.Flags) }

// EffectiveName returns the name this field is known by on the wire: its
// rename attribute if set, rename-all applied to its declared name
// otherwise, or its declared name as a last resort.
func (f *Field) EffectiveName() string {
	if r, ok := f.Attributes.Rename(); ok {
		return r
	}
	if ra, ok := f.Attributes.RenameAll(); ok {
		return ra.Apply(f.Name)
	}
	return f.Name
}

// Variant describes one case of an enum Shape.
type Variant struct {
	Name         string
	Discriminant int64
	// Data is the struct-like shape of this variant's payload. A unit
	// variant's Data has StructKind == StructKindUnit and no fields.
	Data       ShapeFn
	Attributes Attributes
}

// EffectiveName returns the name this variant is known by on the wire.
func (v *Variant) EffectiveName() string {
	if r, ok := v.Attributes.Rename(); ok {
		return r
	}
	return v.Name
}
