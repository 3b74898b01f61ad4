// Copyright 2020-2025 Buf Technologies, Inc.
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

package xunsafe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/xunsafe"
)

func TestAddOffset(t *testing.T) {
	t.Parallel()

	xs := []int32{10, 20, 30, 40}
	p := &xs[0]

	assert.Equal(t, int32(30), *xunsafe.Add(p, 2))
	assert.Equal(t, 2, xunsafe.Sub(xunsafe.Add(p, 2), p))
}

func TestLoadStore(t *testing.T) {
	t.Parallel()

	xs := make([]int64, 4)
	p := &xs[0]

	xunsafe.Store(p, 3, int64(99))
	assert.Equal(t, int64(99), xunsafe.Load(p, 3))
}

func TestBitCast(t *testing.T) {
	t.Parallel()

	var u uint32 = 0x3f800000
	f := xunsafe.BitCast[float32](u)
	assert.InEpsilon(t, float32(1.0), f, 0)
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	b := []byte("hello, facet")
	s := xunsafe.SliceToString(b)
	require.Equal(t, "hello, facet", s)

	back := xunsafe.StringToSlice[[]byte](s)
	assert.Equal(t, b, back)
}

func TestAddrArithmetic(t *testing.T) {
	t.Parallel()

	xs := [8]int32{}
	a := xunsafe.AddrOf(&xs[0])
	b := a.Add(4)
	assert.Equal(t, 4, b.Sub(a))
	assert.Same(t, &xs[4], b.AssertValid())
}

func TestVLA(t *testing.T) {
	t.Parallel()

	type header struct {
		n int32
	}

	buf := make([]byte, 64)
	h := xunsafe.Cast[header](&buf[0])
	h.n = 3

	vla := xunsafe.Beyond[int64](h)
	for i := range 3 {
		*vla.Get(i) = int64(i * i)
	}

	got := vla.Slice(3)
	assert.Equal(t, []int64{0, 1, 4}, got)
}

func TestPC(t *testing.T) {
	t.Parallel()

	f := func(x int) int { return x * 2 }
	pc := xunsafe.NewPC(f)
	assert.Equal(t, 10, pc.Get()(5))
}
