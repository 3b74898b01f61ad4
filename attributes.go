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

import "github.com/iancoleman/strcase"

// RenameAllStyle selects a systematic renaming applied to every field or
// variant of a struct/enum that does not carry its own explicit rename.
type RenameAllStyle uint8

// Renaming styles understood by the rename_all namespace attribute.
const (
	RenameAllNone RenameAllStyle = iota
	RenameAllSnakeCase
	RenameAllCamelCase
	RenameAllKebabCase
	RenameAllScreamingSnakeCase
	RenameAllPascalCase
)

// Apply renames name according to this style.
func (s RenameAllStyle) Apply(name string) string {
	switch s {
	case RenameAllSnakeCase:
		return strcase.ToSnake(name)
	case RenameAllCamelCase:
		return strcase.ToLowerCamel(name)
	case RenameAllKebabCase:
		return strcase.ToKebab(name)
	case RenameAllScreamingSnakeCase:
		return strcase.ToScreamingSnake(name)
	case RenameAllPascalCase:
		return strcase.ToCamel(name)
	default:
		return name
	}
}

// ProxyDef describes a wire-level stand-in type for a Shape: conversions
// run through __proxy_in/__proxy_out rather than through the target
// Shape's own vtable.
type ProxyDef struct {
	// SourceShape is the shape actually read from / written to the wire.
	SourceShape ShapeFn
	// In converts a built value of SourceShape into the target shape,
	// writing into dst. Mirrors __proxy_in.
	In func(src ptrConstAny, dst ptrUninitAny) error
	// Out converts a value of the target shape into one of SourceShape,
	// for serialization. Mirrors __proxy_out.
	Out func(src ptrConstAny, dst ptrUninitAny) error
}

// ptrConstAny and ptrUninitAny break an import cycle between facet and
// facet/ptr: ptr.Const/Uninit wrap facet.Shape, so facet cannot import
// ptr back. Proxy functions are declared against these narrow local
// interfaces instead; facet/partial adapts real ptr.Const/ptr.Uninit
// values to them.
type ptrConstAny interface{ RawPointer() uintptr }
type ptrUninitAny interface{ RawPointer() uintptr }

// attrEntry is one namespaced attribute value.
type attrEntry struct {
	Namespace string
	Data      any
}

// Attributes is an extensible, ordered set of namespaced key/value pairs
// carried by a Shape, Field, or Variant.
//
// Declaration order is preserved (important for deterministic iteration in
// debug dumps); lookups are by (namespace, key).
type Attributes struct {
	order []string
	byKey map[string]attrEntry

	aliases    []string
	proxies    map[string]*ProxyDef // keyed by format namespace, "" = agnostic
	renameAll  RenameAllStyle
	hasRenameAll bool
}

// Set stores a namespaced attribute, overwriting any previous value for the
// same key.
func (a *Attributes) Set(key, namespace string, data any) {
	if a.byKey == nil {
		a.byKey = make(map[string]attrEntry)
	}
	if _, ok := a.byKey[key]; !ok {
		a.order = append(a.order, key)
	}
	a.byKey[key] = attrEntry{namespace, data}
}

// Get retrieves the attribute stored under key, if any.
func (a *Attributes) Get(key string) (data any, namespace string, ok bool) {
	e, ok := a.byKey[key]
	return e.Data, e.Namespace, ok
}

// All ranges over every attribute in declaration order.
func (a *Attributes) All(yield func(key, namespace string, data any) bool) {
	for _, k := range a.order {
		e := a.byKey[k]
		if !yield(k, e.Namespace, e.Data) {
			return
		}
	}
}

// Rename returns the explicit rename attribute, if set.
func (a *Attributes) Rename() (string, bool) {
	v, _, ok := a.Get("rename")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetRename sets the explicit rename attribute.
func (a *Attributes) SetRename(name string) { a.Set("rename", "", name) }

// RenameAll returns the rename_all style, if one was set on the containing
// struct/enum.
func (a *Attributes) RenameAll() (RenameAllStyle, bool) {
	return a.renameAll, a.hasRenameAll
}

// SetRenameAll sets the rename_all style for all fields/variants of this
// shape that don't carry their own explicit rename.
func (a *Attributes) SetRenameAll(style RenameAllStyle) {
	a.renameAll = style
	a.hasRenameAll = true
}

// Aliases returns the extra names this field/variant may also be looked up
// by, in addition to its effective name.
func (a *Attributes) Aliases() []string { return a.aliases }

// AddAlias registers an additional lookup name.
func (a *Attributes) AddAlias(name string) { a.aliases = append(a.aliases, name) }

// SetProxy registers a proxy for the given format namespace ("" for the
// format-agnostic proxy).
func (a *Attributes) SetProxy(namespace string, def *ProxyDef) {
	if a.proxies == nil {
		a.proxies = make(map[string]*ProxyDef)
	}
	a.proxies[namespace] = def
}

// DenyUnknownFields reports whether the deny_unknown_fields attribute was
// set on a struct Shape.
func (a *Attributes) DenyUnknownFields() bool {
	v, _, ok := a.Get("deny_unknown_fields")
	b, _ := v.(bool)
	return ok && b
}

// SetDenyUnknownFields sets the deny_unknown_fields attribute.
func (a *Attributes) SetDenyUnknownFields() { a.Set("deny_unknown_fields", "", true) }

// EnumTagging selects how an enum Shape is represented on self-describing
// formats.
type EnumTagging uint8

// Enum tagging strategies.
const (
	ExternallyTagged EnumTagging = iota
	InternallyTagged             // carries a "tag" attribute naming the key
	AdjacentlyTagged             // carries "tag"/"content" attributes
	Untagged
)

// Tagging returns the enum tagging strategy, defaulting to
// ExternallyTagged.
func (a *Attributes) Tagging() EnumTagging {
	v, _, ok := a.Get("tagging")
	if !ok {
		return ExternallyTagged
	}
	t, _ := v.(EnumTagging)
	return t
}

// SetTagging sets the enum tagging strategy.
func (a *Attributes) SetTagging(t EnumTagging) { a.Set("tagging", "", t) }

// TagKey returns the key used for the variant discriminant under
// internally/adjacently tagged representations.
func (a *Attributes) TagKey() string {
	v, _, ok := a.Get("tag")
	if !ok {
		return "type"
	}
	s, _ := v.(string)
	return s
}

// ContentKey returns the key used for variant payload under adjacently
// tagged representations.
func (a *Attributes) ContentKey() string {
	v, _, ok := a.Get("content")
	if !ok {
		return "content"
	}
	s, _ := v.(string)
	return s
}

// Transparent reports whether this Shape's wire representation is exactly
// that of its sole Inner field.
func (a *Attributes) Transparent() bool {
	v, _, ok := a.Get("transparent")
	b, _ := v.(bool)
	return ok && b
}

// SetTransparent marks this shape as a transparent newtype wrapper.
func (a *Attributes) SetTransparent() { a.Set("transparent", "", true) }
