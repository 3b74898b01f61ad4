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

package partial_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"facet"
	"facet/partial"
	"facet/wire"
)

type partialTestPair struct {
	A int64
	B string
}

var partialTestInt64Shape = facet.Register[int64](&facet.Shape{
	ID: "partial_test.int64", Type: facet.ScalarType, ScalarKind: protoreflect.Int64Kind, Size: unsafe.Sizeof(int64(0)),
})

var partialTestStringShape = facet.Register[string](&facet.Shape{
	ID: "partial_test.string", Type: facet.ScalarType, ScalarKind: protoreflect.StringKind, Size: unsafe.Sizeof(""),
})

var partialTestPairShape = facet.Register[partialTestPair](&facet.Shape{
	ID:         "partial_test.Pair",
	Type:       facet.StructType,
	StructKind: facet.StructKindNamed,
	Size:       unsafe.Sizeof(partialTestPair{}),
	Fields: []facet.Field{
		{Name: "A", Offset: unsafe.Offsetof(partialTestPair{}.A), Shape: func() *facet.Shape { return partialTestInt64Shape }},
		{Name: "B", Offset: unsafe.Offsetof(partialTestPair{}.B), Shape: func() *facet.Shape { return partialTestStringShape }},
	},
})

func TestBuildStructFieldByField(t *testing.T) {
	t.Parallel()

	p := partial.New()
	require.NoError(t, p.AllocShape(partialTestPairShape))

	require.NoError(t, p.BeginField("A"))
	require.NoError(t, p.Set(wire.ScalarValue{Kind: wire.I64, I64: 9}))
	require.NoError(t, p.End())

	require.NoError(t, p.BeginField("B"))
	require.NoError(t, p.Set(wire.ScalarValue{Kind: wire.Str, Str: "nine"}))
	require.NoError(t, p.End())

	root, err := p.Build()
	require.NoError(t, err)
	v, ok := root.AsGoValue()
	require.True(t, ok)
	require.Equal(t, partialTestPair{A: 9, B: "nine"}, v.Interface())
}

func TestBuildFailsWithUnterminatedFrame(t *testing.T) {
	t.Parallel()

	p := partial.New()
	require.NoError(t, p.AllocShape(partialTestPairShape))
	require.NoError(t, p.BeginField("A"))
	require.NoError(t, p.Set(wire.ScalarValue{Kind: wire.I64, I64: 1}))
	// Deliberately omit End(): two frames are still on the stack.

	_, err := p.Build()
	require.Error(t, err)
}

func TestBeginFieldRejectsUnknownName(t *testing.T) {
	t.Parallel()

	p := partial.New()
	require.NoError(t, p.AllocShape(partialTestPairShape))
	err := p.BeginField("nonexistent")
	require.Error(t, err)
	var fe *facet.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, facet.ErrKindNoSuchField, fe.Kind)
}

func TestBeginFieldRejectsDoubleSet(t *testing.T) {
	t.Parallel()

	p := partial.New()
	require.NoError(t, p.AllocShape(partialTestPairShape))
	require.NoError(t, p.BeginField("A"))
	require.NoError(t, p.Set(wire.ScalarValue{Kind: wire.I64, I64: 1}))
	require.NoError(t, p.End())

	err := p.BeginField("A")
	require.Error(t, err)
	var fe *facet.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, facet.ErrKindFieldAlreadySet, fe.Kind)
}

func TestMissingRequiredFieldRejectedAtEnd(t *testing.T) {
	t.Parallel()

	p := partial.New()
	require.NoError(t, p.AllocShape(partialTestPairShape))
	require.NoError(t, p.BeginField("A"))
	require.NoError(t, p.Set(wire.ScalarValue{Kind: wire.I64, I64: 1}))
	require.NoError(t, p.End())

	// "B" was never set; ending the root frame directly (without Build's
	// own check) should surface the missing-field error from End itself.
	err := p.End()
	require.Error(t, err)
	var fe *facet.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, facet.ErrKindMissingRequiredField, fe.Kind)
}

func TestResetClearsStackForReuse(t *testing.T) {
	t.Parallel()

	p := partial.New()
	require.NoError(t, p.AllocShape(partialTestPairShape))
	require.NoError(t, p.BeginField("A"))
	p.Reset()

	_, err := p.Build()
	require.Error(t, err) // empty stack after Reset, not "1 frame" as Build wants
}

func TestListBuildAppendsItemsInOrder(t *testing.T) {
	t.Parallel()

	listShape := facet.Register[[]int64](&facet.Shape{
		ID:   "partial_test.Int64List",
		Type: facet.ListType,
		Size: unsafe.Sizeof([]int64(nil)),
		Elem: func() *facet.Shape { return partialTestInt64Shape },
	})

	p := partial.New()
	require.NoError(t, p.AllocShape(listShape))
	require.NoError(t, p.BeginList())

	for _, v := range []int64{1, 2, 3} {
		require.NoError(t, p.BeginListItem())
		require.NoError(t, p.Set(wire.ScalarValue{Kind: wire.I64, I64: v}))
		require.NoError(t, p.Push())
	}
	require.NoError(t, p.End())

	root, err := p.Build()
	require.NoError(t, err)
	v, ok := root.AsGoValue()
	require.True(t, ok)
	require.Equal(t, []int64{1, 2, 3}, v.Interface())
}
