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

// Package zigzag implements zigzag encoding/decoding for facetcompact's
// signed integer fields, matching the varint wire convention used by
// protobuf's sint32/sint64.
package zigzag

import (
	"unsafe"

	"google.golang.org/protobuf/encoding/protowire"
)

// Number is any fixed-width signed or unsigned integer type facetcompact
// knows how to zigzag-encode.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Encode zigzag-encodes a signed value of any width into the uint64 form
// that protowire's varint writer expects.
func Encode[T Number](raw T) uint64 {
	n := uint64(raw)
	n &= (1 << (unsafe.Sizeof(raw) * 8)) - 1
	return protowire.EncodeZigZag(int64(T(n)))
}

// Decode decodes a zigzag-encoded value of any width.
//
// Decode does not work correctly when sign extension is involved; callers
// must mask raw to T's width before calling.
func Decode[T Number](raw T) T {
	n := uint64(raw)
	n &= (1 << (unsafe.Sizeof(raw) * 8)) - 1
	return T(protowire.DecodeZigZag(n))
}

// Decode64 is a helper for decoding from a raw 64-bit wire value.
func Decode64[T Number](raw uint64) T {
	return Decode(T(raw))
}
