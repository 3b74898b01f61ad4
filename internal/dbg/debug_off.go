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

//go:build !facetdebug

package dbg

// Enabled is false in ordinary builds. See the facetdebug-tagged variant of
// this file.
const Enabled = false

// Log is a no-op outside of facetdebug builds.
func Log(context []any, op, format string, args ...any) {}

// Assert is a no-op outside of facetdebug builds: invariant violations are
// expected to be caught by facetdebug CI runs, not by production binaries.
func Assert(cond bool, format string, args ...any) {}

// Value is zero-size outside of facetdebug builds.
type Value[T any] struct{}

// Get returns nil outside of facetdebug builds.
func (d *Value[T]) Get() *T { return nil }
