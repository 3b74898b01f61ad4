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

// Package plan precomputes, once per root [facet.Shape], the dispatch
// table the driver uses to deserialize or serialize it: a graph of
// reachable positions (struct fields, enum variant payloads, Option
// insides, proxy sources), each tagged with a [Strategy], plus — for
// types that flatten an enum — the enumeration of possible [Resolution]s
// used to pick a variant from the fields actually present in input.
//
// Grounded on the teacher's archetype compiler (internal/tdp/compiler),
// which performs exactly this "compute a dispatch plan for a shape once,
// cache it, reuse across many messages" trick for protobuf descriptors;
// facet generalizes the compiled artifact from a protobuf archetype to a
// serialization-format-agnostic TypePlan, and the single-shape cache key
// to a process-wide one shared by every root shape.
package plan

import (
	"fmt"
	"iter"
	"sort"

	"facet"
	"facet/internal/dbg"
	"facet/internal/scc"
	"facet/internal/xsync"
)

// Strategy is the deserialization/serialization strategy chosen for one
// [Node].
type Strategy uint8

// Strategies a driver dispatches on.
const (
	Direct Strategy = iota
	ContainerProxy
	FieldProxy
	Flatten
	Transparent
)

// FieldKey distinguishes the two namespaces a field's serialized name can
// live in: the flat key space of a non-DOM format, or node-shaped DOM
// categories (attribute/element/text/tag).
//
// Grounded on facet-reflect's resolution::FieldKey / FieldCategory split:
// DOM formats need "where in the tree does this go", flat formats only
// need "what string key".
type FieldKey struct {
	Name     string
	Category facet.FieldCategory
}

// Node is one reachable position in a root shape's navigation graph: the
// root itself, a field, a variant payload, an Option's inside, or a
// proxy's source.
type Node struct {
	Shape    *facet.Shape
	Strategy Strategy

	// FieldIndex is meaningful when this node is reached via a struct
	// field (BeginNthField); -1 at the root.
	FieldIndex int
	// VariantIndex is meaningful when this node is an enum variant
	// payload; -1 otherwise.
	VariantIndex int

	// Schema maps a node's own direct field keys to the child Node that
	// handles them, for struct/variant-payload nodes.
	Schema map[FieldKey]*Node

	// Resolutions is non-empty only for struct nodes that flatten at
	// least one field whose shape is (or contains) an enum.
	Resolutions []Resolution

	// Recursive reports whether this node's shape participates in a
	// cycle of the root's shape-reference graph (a linked-list node, a
	// JSON-like recursive value): computed once per TypePlan via
	// facet/internal/scc rather than re-walked on every Deserialize/
	// Serialize call. A driver can use this to decide when it must stop
	// eagerly precomputing and fall back to a lazy, on-demand recursion
	// instead of unrolling an infinite shape graph.
	Recursive bool
}

// ResolvedField is one entry of a [Resolution]'s flat field set: the
// serialized key, the path of field/variant selectors from the
// Resolution's struct node down to the field, and whether it is required.
type ResolvedField struct {
	Key      FieldKey
	Path     facet.Path
	Required bool
}

// Resolution is one consistent choice of variant for every flattened enum
// reachable from a struct node, together with the complete flat field set
// that choice produces.
type Resolution struct {
	// VariantChoice maps each flattened-enum field's name to the chosen
	// variant name, in the order the enums were discovered (depth-first,
	// declaration order) — used only for the lexicographic tie-break.
	VariantChoice []string
	Fields        []ResolvedField
}

// TypePlan is the complete, immutable, precomputed dispatch table for one
// root shape.
type TypePlan struct {
	Root *Node
}

// cache memoizes TypePlans by root Shape pointer, first-writer-wins: two
// goroutines racing to compile the same shape's plan both succeed, and
// whichever store lands first is the one every later caller observes.
// Grounded on the teacher's process-wide, lock-free archetype cache
// (internal/xsync backing hyperpb's Compile); facet's planner uses the
// exact same primitive.
var cache = xsync.Map[*facet.Shape, *TypePlan]{}

// For builds a (possibly cached) TypePlan for root.
func For(root *facet.Shape) *TypePlan {
	plan, hit := cache.LoadOrStore(root, func() *TypePlan {
		return compile(root)
	})
	dbg.Log(nil, "for", "shape %s: cache hit=%v", root.ID, hit)
	return plan
}

// compile builds a fresh TypePlan for root.
func compile(root *facet.Shape) *TypePlan {
	seen := map[*facet.Shape]*Node{}
	node := buildNode(root, -1, -1, seen)

	dag := scc.Sort(root, shapeEdges)
	for shape, n := range seen {
		if c := dag.ForNode(shape); c != nil {
			n.Recursive = c.Recursive(shapeEdges)
		}
	}

	return &TypePlan{Root: node}
}

// shapeEdges is the [scc.Graph] over a shape's direct references: struct
// fields, enum variant payloads, and a container's element/key/value
// shapes. This is the same edge set buildNode recurses over; scc.Sort
// uses it to find the cyclic components buildNode's seen-map only
// terminates on, without characterizing.
func shapeEdges(s *facet.Shape) iter.Seq[*facet.Shape] {
	return func(yield func(*facet.Shape) bool) {
		switch s.Type {
		case facet.StructType:
			for _, f := range s.Fields {
				if f.Shape == nil {
					continue
				}
				if !yield(f.Shape()) {
					return
				}
			}
		case facet.EnumType:
			for i := range s.Variants {
				if s.Variants[i].Data == nil {
					continue
				}
				if !yield(s.Variants[i].Data()) {
					return
				}
			}
		case facet.PointerType, facet.OptionType, facet.ListType, facet.SetType, facet.ArrayType:
			if s.Elem != nil && !yield(s.Elem()) {
				return
			}
		case facet.MapType:
			if s.Key != nil && !yield(s.Key()) {
				return
			}
			if s.Value != nil && !yield(s.Value()) {
				return
			}
		}
	}
}

func buildNode(shape *facet.Shape, fieldIndex, variantIndex int, seen map[*facet.Shape]*Node) *Node {
	if n, ok := seen[shape]; ok {
		return n
	}
	n := &Node{Shape: shape, FieldIndex: fieldIndex, VariantIndex: variantIndex, Strategy: strategyFor(shape)}
	seen[shape] = n

	switch shape.Type {
	case facet.StructType:
		n.Schema = buildSchema(shape, seen)
		n.Resolutions = buildResolutions(shape, seen)
	case facet.EnumType:
		for i := range shape.Variants {
			buildNode(shape.Variants[i].Data(), -1, i, seen)
		}
	}
	return n
}

func strategyFor(shape *facet.Shape) Strategy {
	switch {
	case shape.Attributes.Transparent() || shape.Inner != nil:
		return Transparent
	case shape.EffectiveProxy("") != nil:
		return ContainerProxy
	default:
		return Direct
	}
}

// buildSchema maps every directly-declared (non-flattened) field's
// effective key to its child Node.
func buildSchema(shape *facet.Shape, seen map[*facet.Shape]*Node) map[FieldKey]*Node {
	schema := make(map[FieldKey]*Node, len(shape.Fields))
	for i, f := range shape.Fields {
		child := buildNode(f.Shape(), i, -1, seen)
		if f.Flags&facet.Flattened != 0 {
			continue // flattened fields surface through Resolutions, not Schema
		}
		key := FieldKey{Name: f.EffectiveName(), Category: f.Category()}
		schema[key] = child
	}
	return schema
}

// buildResolutions enumerates every choice of variant for each flattened
// field whose shape is an enum, and computes each choice's flat field
// set. Fields flattened from a plain struct contribute the same set to
// every Resolution since there's nothing to choose; only flattened enums
// branch.
func buildResolutions(shape *facet.Shape, seen map[*facet.Shape]*Node) []Resolution {
	var flattenedEnums []facet.Field
	var flattenedStructs []facet.Field
	for _, f := range shape.Fields {
		if f.Flags&facet.Flattened == 0 {
			continue
		}
		switch f.Shape().Type {
		case facet.EnumType:
			flattenedEnums = append(flattenedEnums, f)
		case facet.StructType:
			flattenedStructs = append(flattenedStructs, f)
		}
	}
	if len(flattenedEnums) == 0 && len(flattenedStructs) == 0 {
		return nil
	}

	base := directFields(shape)
	for _, f := range flattenedStructs {
		base = append(base, flattenFields(f.Shape(), facet.FieldSegment(f.Name))...)
	}

	if len(flattenedEnums) == 0 {
		dedupe(base)
		return []Resolution{{Fields: base}}
	}

	var resolutions []Resolution
	combos := variantCombinations(flattenedEnums)
	for _, combo := range combos {
		fields := append([]ResolvedField(nil), base...)
		choice := make([]string, len(flattenedEnums))
		for i, f := range flattenedEnums {
			vIdx := combo[i]
			variant := f.Shape().Variants[vIdx]
			choice[i] = variant.EffectiveName()
			seg := facet.VariantSegment(variant.Name, "")
			payloadFields := flattenFields(variant.Data(), seg)
			fields = append(fields, payloadFields...)
		}
		if err := dedupe(fields); err != nil {
			continue // caller surfaces DuplicateField only for the chosen Resolution, at runtime
		}
		resolutions = append(resolutions, Resolution{VariantChoice: choice, Fields: fields})
	}

	sort.Slice(resolutions, func(i, j int) bool {
		return fmt.Sprint(resolutions[i].VariantChoice) < fmt.Sprint(resolutions[j].VariantChoice)
	})
	return resolutions
}

// directFields returns the non-flattened fields of shape as a flat
// ResolvedField set at the root path.
func directFields(shape *facet.Shape) []ResolvedField {
	var out []ResolvedField
	for _, f := range shape.Fields {
		if f.Flags&facet.Flattened != 0 {
			continue
		}
		out = append(out, ResolvedField{
			Key:      FieldKey{Name: f.EffectiveName(), Category: f.Category()},
			Path:     facet.Path{}.Push(facet.FieldSegment(f.Name)),
			Required: !f.Default.HasDefault() && f.Flags&facet.Skip == 0,
		})
	}
	return out
}

// flattenFields returns shape's fields (recursively flattening further
// nested flatten fields) as ResolvedFields whose Path is prefixed by
// prefix.
func flattenFields(shape *facet.Shape, prefix facet.PathSegment) []ResolvedField {
	var out []ResolvedField
	for _, f := range shape.Fields {
		path := facet.Path{}.Push(prefix).Push(facet.FieldSegment(f.Name))
		if f.Flags&facet.Flattened != 0 && f.Shape().Type == facet.StructType {
			out = append(out, flattenFields(f.Shape(), prefix)...)
			continue
		}
		out = append(out, ResolvedField{
			Key:      FieldKey{Name: f.EffectiveName(), Category: f.Category()},
			Path:     path,
			Required: !f.Default.HasDefault() && f.Flags&facet.Skip == 0,
		})
	}
	return out
}

// variantCombinations enumerates the cartesian product of variant indices
// across every flattened-enum field, e.g. two binary enums yield four
// combinations.
func variantCombinations(fields []facet.Field) [][]int {
	combos := [][]int{{}}
	for _, f := range fields {
		var next [][]int
		for _, combo := range combos {
			for vi := range f.Shape().Variants {
				extended := append(append([]int(nil), combo...), vi)
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

// dedupe reports a DuplicateField-shaped error if two ResolvedFields in
// fields share a Key.
func dedupe(fields []ResolvedField) error {
	seen := map[FieldKey]facet.Path{}
	for _, f := range fields {
		if prior, ok := seen[f.Key]; ok {
			return fmt.Errorf("duplicate field %q at %s and %s", f.Key.Name, prior, f.Path)
		}
		seen[f.Key] = f.Path
	}
	return nil
}
