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

// Package sync2 contains small generic wrappers around the sync package.
package sync2

import "sync"

// Pool is a typed wrapper around [sync.Pool].
//
// facet's top-level Deserialize/Serialize entry points keep a Pool of
// partial.Frame stacks, so that repeated calls into the same format don't
// pay for a fresh slice of frames (and their embedded arenas) every time.
type Pool[T any] struct {
	New   func() *T
	Reset func(*T)

	impl sync.Pool
}

// Get retrieves a value from the pool, constructing one via New if the pool
// is empty, and returns a drop closure that resets and returns the value to
// the pool.
//
// Callers should defer the returned drop func immediately:
//
//	v, drop := pool.Get()
//	defer drop()
func (p *Pool[T]) Get() (v *T, drop func()) {
	if got, ok := p.impl.Get().(*T); ok {
		v = got
	} else {
		v = p.New()
	}

	return v, func() {
		if p.Reset != nil {
			p.Reset(v)
		}
		p.impl.Put(v)
	}
}
