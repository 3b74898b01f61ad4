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

// Package xsync contains small generic, type-safe wrappers around
// [sync.Map].
package xsync

import "sync"

// Map is a typed wrapper around [sync.Map].
//
// facet/plan uses a Map[*facet.Shape, *plan.TypePlan] as its per-Shape
// resolution cache: Shapes are process-lifetime singletons, so keying by
// pointer and caching with a lock-free "first writer wins" policy is safe
// and avoids recomputing field resolution on every call.
type Map[K comparable, V any] struct {
	impl sync.Map
}

// Load retrieves the value stored for key, if any.
func (m *Map[K, V]) Load(key K) (V, bool) {
	v, ok := m.impl.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true //nolint:forcetypeassert
}

// Store unconditionally stores value for key.
func (m *Map[K, V]) Store(key K, value V) {
	m.impl.Store(key, value)
}

// LoadOrStore returns the existing value for key if present; otherwise it
// calls make to construct one and stores it.
//
// There is a possibility that make is called, but its return value is not
// the one inserted, because another goroutine won the race; in that case
// the value actually stored is returned instead. make should therefore be
// cheap and side-effect free when it can be, since its result may be
// discarded.
func (m *Map[K, V]) LoadOrStore(key K, make func() V) (V, bool) {
	if v, ok := m.Load(key); ok {
		return v, true
	}

	v, loaded := m.impl.LoadOrStore(key, make())
	return v.(V), loaded //nolint:forcetypeassert
}

// All ranges over every key/value pair currently in the map.
func (m *Map[K, V]) All(yield func(K, V) bool) {
	m.impl.Range(func(k, v any) bool {
		return yield(k.(K), v.(V)) //nolint:forcetypeassert
	})
}
