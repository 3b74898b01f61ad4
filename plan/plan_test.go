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

package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"facet"
	"facet/plan"
)

func scalarShape(id string, kind protoreflect.Kind) *facet.Shape {
	return &facet.Shape{ID: id, Type: facet.ScalarType, ScalarKind: kind}
}

// TestForCachesByShapePointer verifies two calls to For against the same
// *facet.Shape return the identical cached *TypePlan, the "first writer
// wins" guarantee the planner's xsync.Map cache is grounded on.
func TestForCachesByShapePointer(t *testing.T) {
	t.Parallel()

	shape := &facet.Shape{
		ID:         "plan_test.Plain",
		Type:       facet.StructType,
		StructKind: facet.StructKindNamed,
		Fields: []facet.Field{
			{Name: "A", Shape: func() *facet.Shape { return scalarShape("plan_test.A", protoreflect.StringKind) }},
		},
	}

	first := plan.For(shape)
	second := plan.For(shape)
	require.Same(t, first, second)
	require.Equal(t, plan.Direct, first.Root.Strategy)
}

func TestBuildSchemaExcludesFlattenedFields(t *testing.T) {
	t.Parallel()

	inner := &facet.Shape{
		ID:         "plan_test.Inner",
		Type:       facet.StructType,
		StructKind: facet.StructKindNamed,
		Fields: []facet.Field{
			{Name: "Nested", Shape: func() *facet.Shape { return scalarShape("plan_test.Nested", protoreflect.StringKind) }},
		},
	}
	outer := &facet.Shape{
		ID:         "plan_test.Outer",
		Type:       facet.StructType,
		StructKind: facet.StructKindNamed,
		Fields: []facet.Field{
			{Name: "Direct", Shape: func() *facet.Shape { return scalarShape("plan_test.Direct", protoreflect.StringKind) }},
			{Name: "Flat", Shape: func() *facet.Shape { return inner }, Flags: facet.Flattened},
		},
	}

	tp := plan.For(outer)
	require.Len(t, tp.Root.Schema, 1)
	for k := range tp.Root.Schema {
		require.Equal(t, "Direct", k.Name)
	}

	// Flattened struct fields still surface through a single Resolution's
	// flat field set, prefixed onto the root path of the inner struct.
	require.Len(t, tp.Root.Resolutions, 1)
	require.Len(t, tp.Root.Resolutions[0].Fields, 2)
}

func TestBuildResolutionsEnumeratesVariantCombinations(t *testing.T) {
	t.Parallel()

	variantA := &facet.Shape{ID: "plan_test.VariantA", Type: facet.StructType, StructKind: facet.StructKindNamed}
	variantB := &facet.Shape{ID: "plan_test.VariantB", Type: facet.StructType, StructKind: facet.StructKindNamed}
	flatEnum := &facet.Shape{
		ID:   "plan_test.FlatEnum",
		Type: facet.EnumType,
		Variants: []facet.Variant{
			{Name: "A", Data: func() *facet.Shape { return variantA }},
			{Name: "B", Data: func() *facet.Shape { return variantB }},
		},
	}
	outer := &facet.Shape{
		ID:         "plan_test.WithFlatEnum",
		Type:       facet.StructType,
		StructKind: facet.StructKindNamed,
		Fields: []facet.Field{
			{Name: "Payload", Shape: func() *facet.Shape { return flatEnum }, Flags: facet.Flattened},
		},
	}

	tp := plan.For(outer)
	require.Len(t, tp.Root.Resolutions, 2)
	// Sorted lexicographically by variant choice.
	require.Equal(t, []string{"A"}, tp.Root.Resolutions[0].VariantChoice)
	require.Equal(t, []string{"B"}, tp.Root.Resolutions[1].VariantChoice)
}

// TestBuildNodeTerminatesOnRecursiveShape builds an enum whose own variant
// payload refers back to the enum itself (Expr = Lit(int) | Neg{Inner Expr}),
// the same self-reference shape a recursive AST node exhibits. buildNode
// must terminate via its seen map rather than recursing forever.
func TestBuildNodeTerminatesOnRecursiveShape(t *testing.T) {
	t.Parallel()

	var exprEnum *facet.Shape
	litPayload := &facet.Shape{ID: "plan_test.Lit", Type: facet.StructType, StructKind: facet.StructKindUnit}
	negPayload := &facet.Shape{
		ID:         "plan_test.Neg",
		Type:       facet.StructType,
		StructKind: facet.StructKindNamed,
		Fields: []facet.Field{
			{Name: "Inner", Shape: func() *facet.Shape { return exprEnum }},
		},
	}
	exprEnum = &facet.Shape{
		ID:   "plan_test.Expr",
		Type: facet.EnumType,
		Variants: []facet.Variant{
			{Name: "Lit", Data: func() *facet.Shape { return litPayload }},
			{Name: "Neg", Data: func() *facet.Shape { return negPayload }},
		},
	}

	require.NotPanics(t, func() {
		tp := plan.For(exprEnum)
		require.Equal(t, plan.Direct, tp.Root.Strategy)
	})
}
