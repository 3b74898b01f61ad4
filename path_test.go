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

	"facet"
)

func TestPathEmpty(t *testing.T) {
	t.Parallel()
	var p facet.Path
	require.True(t, p.Empty())
	require.Equal(t, "$", p.String())
}

func TestPathPushPop(t *testing.T) {
	t.Parallel()
	var p facet.Path
	p = p.Push(facet.FieldSegment("foo"))
	p = p.Push(facet.VariantSegment("Bar", "baz"))
	require.Equal(t, "foo.Bar::baz", p.String())
	require.False(t, p.Empty())

	p = p.Pop()
	require.Equal(t, "foo", p.String())

	p = p.Pop()
	require.True(t, p.Empty())

	// Popping an already-empty path is a no-op, not an error.
	p = p.Pop()
	require.True(t, p.Empty())
}

func TestPathPushDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()
	root := facet.Path{}.Push(facet.FieldSegment("a"))
	sibling := root.Push(facet.FieldSegment("b"))
	other := root.Push(facet.FieldSegment("c"))

	require.Equal(t, "a.b", sibling.String())
	require.Equal(t, "a.c", other.String())
	require.Equal(t, "a", root.String())
}
