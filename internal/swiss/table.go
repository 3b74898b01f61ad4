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

// Package swiss implements a SwissTable-style open-addressing hash table.
//
// This is a slice-backed simplification of an inline-VLA compiled layout:
// facet's Shape and TypePlan nodes are ordinary heap-allocated Go values
// rather than a single pre-linked blob of compiled IR, so there is no
// benefit to packing a table's control bytes, keys, and values into one
// contiguous allocation trailing a fixed header. What's kept is the
// algorithm: fxhash keys into an h1 (slot) / h2 (fingerprint) split, a
// per-slot one-byte control array, and quadratic probing on collision.
//
// facet's Shape registry and facet/plan's per-struct field-name lookup both
// use this table, keyed by field/shape name.
package swiss

// empty marks a control slot as unoccupied.
const empty byte = 0

// HashFunc computes the hash of a key. See [HashString] and [HashUint64]
// for ready-made hashers.
type HashFunc[K any] func(K) uint64

// Table is a generic open-addressing hash table.
//
// The zero Table is not ready to use; construct one with [New].
type Table[K comparable, V any] struct {
	ctrl   []byte
	keys   []K
	values []V
	length int

	hash HashFunc[K]
}

// New constructs an empty table that hashes keys with hash.
func New[K comparable, V any](hash HashFunc[K]) *Table[K, V] {
	return &Table[K, V]{hash: hash}
}

// Len returns the number of entries in the table.
func (t *Table[K, V]) Len() int { return t.length }

// Lookup returns a pointer to the value for key, or nil if key is absent.
func (t *Table[K, V]) Lookup(key K) *V {
	if len(t.ctrl) == 0 {
		return nil
	}

	h := hash(t.hash(key))
	p := newProber(len(t.ctrl), h)
	for {
		i, ok := p.next()
		if !ok {
			return nil
		}
		if t.ctrl[i] == h.h2() && t.keys[i] == key {
			return &t.values[i]
		}
		if t.ctrl[i] == empty {
			return nil
		}
	}
}

// Insert returns a pointer to the slot for key, inserting a zero value if
// key is not already present. The returned pointer is valid until the next
// call to Insert, which may trigger a rehash.
func (t *Table[K, V]) Insert(key K) *V {
	if t.length+1 > t.loadLimit() {
		t.grow()
	}

	h := hash(t.hash(key))
	p := newProber(len(t.ctrl), h)
	var firstEmpty = -1
	for {
		i, ok := p.next()
		if !ok {
			break
		}
		if t.ctrl[i] == h.h2() && t.keys[i] == key {
			return &t.values[i]
		}
		if t.ctrl[i] == empty && firstEmpty < 0 {
			firstEmpty = i
			break
		}
	}

	if firstEmpty < 0 {
		// Should be unreachable given loadLimit, but guards against a
		// pathological hash function that never terminates the probe.
		t.grow()
		return t.Insert(key)
	}

	t.ctrl[firstEmpty] = h.h2()
	t.keys[firstEmpty] = key
	t.length++
	return &t.values[firstEmpty]
}

// All ranges over every key/value pair in the table.
func (t *Table[K, V]) All(yield func(K, V) bool) {
	for i, c := range t.ctrl {
		if c == empty {
			continue
		}
		if !yield(t.keys[i], t.values[i]) {
			return
		}
	}
}

func (t *Table[K, V]) loadLimit() int {
	// 7/8 maximum load factor, matching the upstream SwissTable design.
	return len(t.ctrl) * 7 / 8
}

func (t *Table[K, V]) grow() {
	newCap := max(8, len(t.ctrl)*2)

	old := *t
	t.ctrl = make([]byte, newCap)
	t.keys = make([]K, newCap)
	t.values = make([]V, newCap)
	t.length = 0

	old.All(func(k K, v V) bool {
		*t.Insert(k) = v
		return true
	})
}

// prober walks the quadratic probe sequence i, i+1, i+3, i+6, ... mod cap,
// which visits every slot exactly once for a power-of-two capacity.
type prober struct {
	i, step, mask int
}

func newProber(cap int, h hash) prober {
	return prober{i: int(h.h1()) & (cap - 1), mask: cap - 1}
}

// next returns the next slot index to probe, or false once every slot has
// been visited.
func (p *prober) next() (int, bool) {
	if p.step > p.mask {
		return 0, false
	}
	i := p.i
	p.step++
	p.i = (p.i + p.step) & p.mask
	return i, true
}
