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

import "strings"

// PathSegment is one step of a [Path]: either descending into a named
// field, or into a named variant's payload.
//
// Grounded on facet-reflect's resolution::PathSegment: errors need to
// report not just "which field" but "which field of which enum variant",
// since a flattened enum's fields are only reachable once a variant has
// been selected.
type PathSegment struct {
	Field   string
	Variant string // empty unless this segment selects into a variant.
}

// FieldSegment constructs a segment that descends into a struct field.
func FieldSegment(name string) PathSegment { return PathSegment{Field: name} }

// VariantSegment constructs a segment that descends into a variant's field.
func VariantSegment(variant, field string) PathSegment {
	return PathSegment{Field: field, Variant: variant}
}

// String implements [fmt.Stringer].
func (s PathSegment) String() string {
	if s.Variant == "" {
		return s.Field
	}
	return s.Variant + "::" + s.Field
}

// Path locates a value within a larger, partially-built tree: the sequence
// of fields and variant selections taken to reach it from the root.
//
// Paths are built incrementally as [partial.Frame]s are pushed and popped,
// and are attached to every [Error] so failures can be reported precisely
// even deep inside nested, flattened, or nested-enum structures.
type Path struct {
	segments []PathSegment
}

// Push appends seg to the end of the path, returning the extended path. The
// receiver is not modified; callers that want to share a path's prefix
// across siblings should hold onto the pre-push value.
func (p Path) Push(seg PathSegment) Path {
	next := make([]PathSegment, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = seg
	return Path{segments: next}
}

// Pop removes the last segment, returning the shortened path. Calling Pop
// on an empty path returns the path unchanged.
func (p Path) Pop() Path {
	if len(p.segments) == 0 {
		return p
	}
	return Path{segments: p.segments[:len(p.segments)-1]}
}

// Segments returns the path's segments, root first.
func (p Path) Segments() []PathSegment { return p.segments }

// Empty reports whether this path refers to the root value itself.
func (p Path) Empty() bool { return len(p.segments) == 0 }

// String implements [fmt.Stringer], joining segments with ".".
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "$"
	}
	parts := make([]string, len(p.segments))
	for i, s := range p.segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}
