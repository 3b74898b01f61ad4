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

package facet_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"facet"
)

type shapeTestPoint struct {
	X, Y int64
}

var shapeTestPointShape = facet.Register[shapeTestPoint](&facet.Shape{
	ID:         "facet_test.shapeTestPoint",
	Type:       facet.StructType,
	StructKind: facet.StructKindNamed,
	Fields: []facet.Field{
		{Name: "X", Offset: 0, Shape: func() *facet.Shape { return scalarShape(protoreflect.Int64Kind, "X") }},
		{Name: "Y", Offset: 8, Shape: func() *facet.Shape { return scalarShape(protoreflect.Int64Kind, "Y") }, Flags: facet.SkipSerializing},
	},
})

func scalarShape(kind protoreflect.Kind, id string) *facet.Shape {
	return &facet.Shape{ID: "facet_test.scalar." + id, Type: facet.ScalarType, ScalarKind: kind}
}

func TestRegisterAndOf(t *testing.T) {
	t.Parallel()
	got := facet.Of[shapeTestPoint]()
	require.Same(t, shapeTestPointShape, got)
}

func TestLookupByID(t *testing.T) {
	t.Parallel()
	got := facet.Lookup("facet_test.shapeTestPoint")
	require.Same(t, shapeTestPointShape, got)

	require.Nil(t, facet.Lookup("facet_test.nonexistent"))
}

func TestRegisteredShapesContainsRegistered(t *testing.T) {
	t.Parallel()
	shapes := facet.RegisteredShapes()
	var found bool
	for _, s := range shapes {
		if s == shapeTestPointShape {
			found = true
			break
		}
	}
	require.True(t, found)
}

func TestFieldLookupHonorsRename(t *testing.T) {
	t.Parallel()
	f, idx := shapeTestPointShape.Field("X")
	require.Equal(t, 0, idx)
	require.Equal(t, "X", f.Name)

	_, idx = shapeTestPointShape.Field("nonexistent")
	require.Equal(t, -1, idx)
}

func TestFieldsForSerializeSkipsSkipSerializing(t *testing.T) {
	t.Parallel()
	fields := shapeTestPointShape.FieldsForSerialize()
	require.Len(t, fields, 1)
	require.Equal(t, "X", fields[0].Name)
}

func TestGoTypeRoundTrips(t *testing.T) {
	t.Parallel()
	require.Equal(t, "facet_test.shapeTestPoint", shapeTestPointShape.ID)
	require.NotNil(t, shapeTestPointShape.GoType())
}
