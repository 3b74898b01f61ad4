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

package peek_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"facet"
	"facet/peek"
	"facet/ptr"
)

var peekTestStringShape = facet.Register[string](&facet.Shape{
	ID: "peek_test.string", Type: facet.ScalarType, ScalarKind: protoreflect.StringKind, Size: unsafe.Sizeof(""),
})

var peekTestInt64Shape = facet.Register[int64](&facet.Shape{
	ID: "peek_test.int64", Type: facet.ScalarType, ScalarKind: protoreflect.Int64Kind, Size: unsafe.Sizeof(int64(0)),
})

var peekTestStringListShape = facet.Register[[]string](&facet.Shape{
	ID: "peek_test.StringList", Type: facet.ListType, Size: unsafe.Sizeof([]string(nil)),
	Elem: func() *facet.Shape { return peekTestStringShape },
})

var peekTestStringMapShape = facet.Register[map[string]string](&facet.Shape{
	ID: "peek_test.StringMap", Type: facet.MapType, Size: unsafe.Sizeof(map[string]string(nil)),
	Key:   func() *facet.Shape { return peekTestStringShape },
	Value: func() *facet.Shape { return peekTestStringShape },
})

var peekTestIntPtrShape = facet.Register[*int64](&facet.Shape{
	ID: "peek_test.Int64Option", Type: facet.OptionType, Size: unsafe.Sizeof((*int64)(nil)),
	Elem: func() *facet.Shape { return peekTestInt64Shape },
})

type peekTestUserID struct{ Value int64 }

var peekTestUserIDShape = facet.Register[peekTestUserID](&facet.Shape{
	ID: "peek_test.UserID", Type: facet.StructType, StructKind: facet.StructKindTuple,
	Size: unsafe.Sizeof(peekTestUserID{}),
	Inner: func() *facet.Shape { return peekTestInt64Shape },
	VTable: facet.VTable{
		TryBorrowInner: func(p unsafe.Pointer) (unsafe.Pointer, error) { return p, nil },
	},
})

type peekTestDoc struct {
	Name   string
	Hidden string
	Tags   []string
	Meta   map[string]string
	Extra  *int64
}

var peekTestDocShape = facet.Register[peekTestDoc](&facet.Shape{
	ID:         "peek_test.Doc",
	Type:       facet.StructType,
	StructKind: facet.StructKindNamed,
	Size:       unsafe.Sizeof(peekTestDoc{}),
	Fields: []facet.Field{
		{Name: "Name", Offset: unsafe.Offsetof(peekTestDoc{}.Name), Shape: func() *facet.Shape { return peekTestStringShape }},
		{Name: "Hidden", Offset: unsafe.Offsetof(peekTestDoc{}.Hidden), Shape: func() *facet.Shape { return peekTestStringShape }, Flags: facet.SkipSerializing},
		{Name: "Tags", Offset: unsafe.Offsetof(peekTestDoc{}.Tags), Shape: func() *facet.Shape { return peekTestStringListShape }},
		{Name: "Meta", Offset: unsafe.Offsetof(peekTestDoc{}.Meta), Shape: func() *facet.Shape { return peekTestStringMapShape }},
		{Name: "Extra", Offset: unsafe.Offsetof(peekTestDoc{}.Extra), Shape: func() *facet.Shape { return peekTestIntPtrShape }, Flags: facet.SkipSerializingIf},
	},
})

func docPeek(doc *peekTestDoc) peek.Struct {
	root := peek.New(ptr.NewConst(peekTestDocShape, ptr.AddrOfValue(doc)))
	s, err := root.IntoStruct()
	if err != nil {
		panic(err)
	}
	return s
}

func TestFieldReadsScalarByName(t *testing.T) {
	t.Parallel()
	doc := peekTestDoc{Name: "gopher"}
	s := docPeek(&doc)

	field, err := s.Field("Name")
	require.NoError(t, err)
	v, ok := field.Const.AsGoValue()
	require.True(t, ok)
	require.Equal(t, "gopher", v.Interface())
}

func TestFieldRejectsUnknownName(t *testing.T) {
	t.Parallel()
	doc := peekTestDoc{}
	s := docPeek(&doc)
	_, err := s.Field("nonexistent")
	require.Error(t, err)
}

func TestFieldsForSerializeSkipsHiddenAndEmptyOption(t *testing.T) {
	t.Parallel()
	doc := peekTestDoc{Name: "gopher", Hidden: "secret"}
	s := docPeek(&doc)

	var names []string
	s.FieldsForSerialize(func(f facet.Field, _ peek.Peek) bool {
		names = append(names, f.Name)
		return true
	})
	require.Equal(t, []string{"Name", "Tags", "Meta"}, names)
}

func TestFieldsForSerializeIncludesNonEmptyOption(t *testing.T) {
	t.Parallel()
	extra := int64(42)
	doc := peekTestDoc{Name: "gopher", Extra: &extra}
	s := docPeek(&doc)

	var names []string
	s.FieldsForSerialize(func(f facet.Field, _ peek.Peek) bool {
		names = append(names, f.Name)
		return true
	})
	require.Contains(t, names, "Extra")
}

func TestListIndexAndAll(t *testing.T) {
	t.Parallel()
	doc := peekTestDoc{Tags: []string{"a", "b", "c"}}
	s := docPeek(&doc)

	field, err := s.Field("Tags")
	require.NoError(t, err)
	list, err := field.IntoList()
	require.NoError(t, err)
	require.Equal(t, 3, list.Len())

	first := list.Index(0)
	v, ok := first.Const.AsGoValue()
	require.True(t, ok)
	require.Equal(t, "a", v.Interface())

	var got []string
	list.All(func(_ int, p peek.Peek) bool {
		v, _ := p.Const.AsGoValue()
		got = append(got, v.Interface().(string))
		return true
	})
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestMapEntries(t *testing.T) {
	t.Parallel()
	doc := peekTestDoc{Meta: map[string]string{"k1": "v1"}}
	s := docPeek(&doc)

	field, err := s.Field("Meta")
	require.NoError(t, err)
	m, err := field.IntoMap()
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	var gotKey, gotVal string
	m.Entries(func(k, v peek.Peek) bool {
		kv, _ := k.Const.AsGoValue()
		vv, _ := v.Const.AsGoValue()
		gotKey = kv.Interface().(string)
		gotVal = vv.Interface().(string)
		return true
	})
	require.Equal(t, "k1", gotKey)
	require.Equal(t, "v1", gotVal)
}

func TestOptionUnwrapSomeAndNone(t *testing.T) {
	t.Parallel()

	extra := int64(7)
	doc := peekTestDoc{Extra: &extra}
	s := docPeek(&doc)

	field, err := s.Field("Extra")
	require.NoError(t, err)
	opt, err := field.IntoOption()
	require.NoError(t, err)

	inner, ok := opt.Unwrap()
	require.True(t, ok)
	v, ok := inner.Const.AsGoValue()
	require.True(t, ok)
	require.Equal(t, int64(7), v.Interface())

	none := peekTestDoc{}
	s2 := docPeek(&none)
	field2, err := s2.Field("Extra")
	require.NoError(t, err)
	opt2, err := field2.IntoOption()
	require.NoError(t, err)
	_, ok = opt2.Unwrap()
	require.False(t, ok)
}

func TestInnermostPeekUnwrapsTransparentNewtype(t *testing.T) {
	t.Parallel()

	id := peekTestUserID{Value: 99}
	p := peek.New(ptr.NewConst(peekTestUserIDShape, ptr.AddrOfValue(&id)))

	inner := p.InnermostPeek()
	require.Same(t, peekTestInt64Shape, inner.Shape())
	v, ok := inner.Const.AsGoValue()
	require.True(t, ok)
	require.Equal(t, int64(99), v.Interface())
}

func TestIntoStructRejectsNonStruct(t *testing.T) {
	t.Parallel()
	var n int64 = 5
	p := peek.New(ptr.NewConst(peekTestInt64Shape, ptr.AddrOfValue(&n)))
	_, err := p.IntoStruct()
	require.Error(t, err)
}
