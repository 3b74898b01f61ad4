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

package swiss_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/swiss"
)

func TestTableInsertLookup(t *testing.T) {
	t.Parallel()

	table := swiss.New[string, int](swiss.HashString)
	for i := range 200 {
		*table.Insert(fmt.Sprintf("key-%d", i)) = i
	}

	require.Equal(t, 200, table.Len())
	for i := range 200 {
		v := table.Lookup(fmt.Sprintf("key-%d", i))
		require.NotNil(t, v)
		assert.Equal(t, i, *v)
	}

	assert.Nil(t, table.Lookup("missing"))
}

func TestTableInsertOverwrite(t *testing.T) {
	t.Parallel()

	table := swiss.New[string, int](swiss.HashString)
	*table.Insert("a") = 1
	*table.Insert("a") = 2

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 2, *table.Lookup("a"))
}

func TestTableAll(t *testing.T) {
	t.Parallel()

	table := swiss.New[string, int](swiss.HashString)
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		*table.Insert(k) = v
	}

	got := map[string]int{}
	table.All(func(k string, v int) bool {
		got[k] = v
		return true
	})
	assert.Equal(t, want, got)
}
