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

package ptr_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"facet"
	"facet/ptr"
)

type ptrTestPair struct {
	A int64
	B string
}

var ptrTestInt64Shape = facet.Register[int64](&facet.Shape{
	ID: "ptr_test.int64", Type: facet.ScalarType, ScalarKind: protoreflect.Int64Kind, Size: unsafe.Sizeof(int64(0)),
})

var ptrTestStringShape = facet.Register[string](&facet.Shape{
	ID: "ptr_test.string", Type: facet.ScalarType, ScalarKind: protoreflect.StringKind, Size: unsafe.Sizeof(""),
})

var ptrTestPairShape = facet.Register[ptrTestPair](&facet.Shape{
	ID:         "ptr_test.Pair",
	Type:       facet.StructType,
	StructKind: facet.StructKindNamed,
	Size:       unsafe.Sizeof(ptrTestPair{}),
	Fields: []facet.Field{
		{Name: "A", Offset: unsafe.Offsetof(ptrTestPair{}.A), Shape: func() *facet.Shape { return ptrTestInt64Shape }},
		{Name: "B", Offset: unsafe.Offsetof(ptrTestPair{}.B), Shape: func() *facet.Shape { return ptrTestStringShape }},
	},
})

func TestAllocateZeroesAndReportsShape(t *testing.T) {
	t.Parallel()
	u := ptr.Allocate(ptrTestPairShape)
	require.Same(t, ptrTestPairShape, u.Shape())
	require.False(t, u.IsNil())

	v, ok := u.AssumeInit().AsGoValue()
	require.True(t, ok)
	require.Equal(t, ptrTestPair{}, v.Interface())
}

func TestAllocatePanicsOnUnregisteredShape(t *testing.T) {
	t.Parallel()
	unregistered := &facet.Shape{ID: "ptr_test.unregistered", Type: facet.StructType, StructKind: facet.StructKindNamed}
	require.Panics(t, func() { ptr.Allocate(unregistered) })
}

func TestAllocateZeroSizedShapeReturnsNilUninit(t *testing.T) {
	t.Parallel()
	zeroSized := facet.Register[struct{}](&facet.Shape{
		ID: "ptr_test.ZeroSized", Type: facet.StructType, StructKind: facet.StructKindUnit, Size: 0,
	})
	u := ptr.Allocate(zeroSized)
	require.True(t, u.IsNil())
}

func TestFieldOffsetsIntoStruct(t *testing.T) {
	t.Parallel()

	pair := ptrTestPair{A: 7, B: "seven"}
	addr := ptr.AddrOfValue(&pair)
	root := ptr.NewConst(ptrTestPairShape, addr)

	a := root.Field("A")
	require.Same(t, ptrTestInt64Shape, a.Shape())
	av, ok := a.AsGoValue()
	require.True(t, ok)
	require.Equal(t, int64(7), av.Interface())

	b := root.Field("B")
	bv, ok := b.AsGoValue()
	require.True(t, ok)
	require.Equal(t, "seven", bv.Interface())
}

func TestFieldPanicsOnUnknownName(t *testing.T) {
	t.Parallel()
	pair := ptrTestPair{}
	root := ptr.NewConst(ptrTestPairShape, ptr.AddrOfValue(&pair))
	require.Panics(t, func() { root.Field("nonexistent") })
}

func TestMutFieldWritesThrough(t *testing.T) {
	t.Parallel()

	pair := ptrTestPair{}
	root := ptr.NewMut(ptrTestPairShape, ptr.AddrOfValue(&pair))
	av, ok := root.Field("A").AsGoValue()
	require.True(t, ok)
	av.SetInt(42)
	require.Equal(t, int64(42), pair.A)
}

func TestAsGoValueFailsWithoutRegisteredType(t *testing.T) {
	t.Parallel()
	unregistered := &facet.Shape{ID: "ptr_test.unregistered2", Type: facet.ScalarType, ScalarKind: protoreflect.Int64Kind}
	c := ptr.NewConst(unregistered, nil)
	_, ok := c.AsGoValue()
	require.False(t, ok)
}
