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

package swiss

import (
	"fmt"
	"math/bits"
)

// hash is the result of fxhash, an fxhash-style hash.
//
// It is a relatively high-quality hash that is completely branchless for
// fixed-size inputs. We use the variant used in the Rust compiler; see
// https://github.com/rust-lang/rustc-hash.
type hash uint64

func (h hash) h1() uint64 { return uint64(h >> 7) }
func (h hash) h2() byte   { return ^(byte(h) & 0x7f) }

// mix mixes together the bits of a and b.
func mix(a, b uint64) uint64 {
	a, b = bits.Mul64(a, b)
	return a ^ b
}

// u64 folds a single uint64 into this hash's state.
//
//go:nosplit
func (h hash) u64(n uint64) hash {
	const (
		rotate = 26
		key    = 0xf1357aea2e62a9c5
	)
	// Older versions of this used ^ instead of +; addition produces a
	// higher-quality hash in practice.
	x := mix(uint64(h)+n, key)
	return hash(bits.RotateLeft64(x, rotate))
}

// bytes folds an arbitrary byte string into this hash's state.
//
//go:nosplit
func (h hash) bytes(in []byte) hash {
	const (
		// Digits of pi in hex.
		c0 uint64 = 0x243f6a8885a308d3
		c1 uint64 = 0x13198a2e03707344
		c2 uint64 = 0xa4093822299f31d0
	)

	x0, x1 := c0, c1
	n := len(in)

	switch {
	case n >= 8:
		x0 ^= load64(in, 0)
		x1 ^= load64(in, n-8)
	case n >= 4:
		x0 ^= uint64(load32(in, 0))
		x1 ^= uint64(load32(in, n-4))
	case n > 0:
		x0 ^= uint64(in[0])
		x1 ^= uint64(in[n-1])
		x1 ^= uint64(in[n/2]) << 8
	}

	for n > 16 {
		y0 := load64(in, 0)
		y1 := load64(in, 8)
		x0, x1 = x1, mix(x0^y0, c2^y1)
		in = in[16:]
		n -= 16
	}

	return h.u64(mix(x0, x1) ^ uint64(len(in)))
}

func load64(b []byte, off int) uint64 {
	var n uint64
	for i := range 8 {
		n |= uint64(b[off+i]) << (8 * i)
	}
	return n
}

func load32(b []byte, off int) uint32 {
	var n uint32
	for i := range 4 {
		n |= uint32(b[off+i]) << (8 * i)
	}
	return n
}

// String implements [fmt.Stringer].
func (h hash) String() string {
	return fmt.Sprintf("%015x:%02x", h.h1(), h.h2())
}

// HashString hashes a string, for use as a HashFunc[string].
func HashString(s string) uint64 {
	return uint64(hash(0).bytes([]byte(s)))
}

// HashUint64 hashes a 64-bit integer, for use as a HashFunc[uint64] (and,
// via a wrapping conversion, any other integer key type).
func HashUint64(n uint64) uint64 {
	return uint64(hash(0).u64(n))
}
