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

package xsync

import "sync"

// Set is a typed, concurrency-safe set backed by [sync.Map].
//
// facet/plan uses a Set[*facet.Shape] while walking a recursive Shape graph
// (e.g., a linked-list node type) to detect shapes already visited on the
// current path, complementing the cycle detection done by
// [facet/internal/scc].
type Set[K comparable] struct {
	impl sync.Map
}

// Load reports whether key is in the set.
func (s *Set[K]) Load(key K) bool {
	_, ok := s.impl.Load(key)
	return ok
}

// Store inserts key into the set.
func (s *Set[K]) Store(key K) {
	s.impl.Store(key, struct{}{})
}

// All ranges over every key currently in the set.
func (s *Set[K]) All(yield func(K) bool) {
	s.impl.Range(func(k, _ any) bool {
		return yield(k.(K)) //nolint:forcetypeassert
	})
}
