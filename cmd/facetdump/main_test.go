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

package main

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"facet"
	"facet/plan"
)

var mainTestInt64Shape = facet.Register[int64](&facet.Shape{
	ID: "facetdump_test.int64", Type: facet.ScalarType, ScalarKind: protoreflect.Int64Kind, Size: unsafe.Sizeof(int64(0)),
})

type mainTestWidget struct{ Count int64 }

var mainTestWidgetShape = facet.Register[mainTestWidget](&facet.Shape{
	ID:         "facetdump_test.Widget",
	Type:       facet.StructType,
	StructKind: facet.StructKindNamed,
	Size:       unsafe.Sizeof(mainTestWidget{}),
	Fields: []facet.Field{
		{Name: "Count", Offset: unsafe.Offsetof(mainTestWidget{}.Count), Shape: func() *facet.Shape { return mainTestInt64Shape }},
	},
})

func TestShapesCommandListsRegisteredShapes(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"shapes"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), mainTestWidgetShape.ID)
}

func TestShapesCommandVerbosePrintsPlanNodes(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"shapes", "--verbose"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "strategy=")
	require.Contains(t, buf.String(), "field Count:")
}

type mainTestListNode struct {
	Value int64
	Next  *mainTestListNode
}

var mainTestListNodeShape = facet.Register[mainTestListNode](&facet.Shape{
	ID:         "facetdump_test.ListNode",
	Type:       facet.StructType,
	StructKind: facet.StructKindNamed,
	Size:       unsafe.Sizeof(mainTestListNode{}),
	Fields: []facet.Field{
		{Name: "Value", Offset: unsafe.Offsetof(mainTestListNode{}.Value), Shape: func() *facet.Shape { return mainTestInt64Shape }},
		{Name: "Next", Offset: unsafe.Offsetof(mainTestListNode{}.Next), Shape: func() *facet.Shape { return mainTestListNodeNextShape }},
	},
})

var mainTestListNodeNextShape = facet.Register[*mainTestListNode](&facet.Shape{
	ID:   "facetdump_test.ListNodeOption",
	Type: facet.OptionType,
	Size: unsafe.Sizeof((*mainTestListNode)(nil)),
	Elem: func() *facet.Shape { return mainTestListNodeShape },
})

func TestShapesCommandVerboseMarksRecursiveNodes(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"shapes", "--verbose"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), mainTestListNodeShape.ID)
	require.Contains(t, buf.String(), "recursive=true")
}

func TestStrategyNameCoversEveryStrategy(t *testing.T) {
	cases := map[plan.Strategy]string{
		plan.Direct:         "direct",
		plan.ContainerProxy: "container_proxy",
		plan.FieldProxy:     "field_proxy",
		plan.Flatten:        "flatten",
		plan.Transparent:    "transparent",
	}
	for strategy, want := range cases {
		require.Equal(t, want, strategyName(strategy))
	}
}
