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

//go:build facetdebug

package dbg

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
)

// Enabled is true when facet was built with the facetdebug tag.
//
// Low-level packages (arena, swiss, partial) branch on this constant to pick
// a slow, assertion-laden path over the unchecked hot path; since it is a
// compile-time constant, the branch is eliminated entirely in release
// builds.
const Enabled = true

var debugFilter = func() *regexp.Regexp {
	pattern := os.Getenv("FACET_DEBUG_FILTER")
	if pattern == "" {
		return nil
	}
	return regexp.MustCompile(pattern)
}()

// Log writes a structured trace line to stderr, gated behind Enabled and,
// optionally, the FACET_DEBUG_FILTER environment variable, which is matched
// against "pkg.op".
//
// context, if non-nil, is passed to [fmt.Sprintf] as the leading arguments
// of a format string given by context[0]; its result is prepended to the
// line as ambient state (e.g., an arena's current bump pointer).
func Log(context []any, op, format string, args ...any) {
	pkg := callerPackage(2)
	if debugFilter != nil && !debugFilter.MatchString(pkg+"."+op) {
		return
	}

	prefix := ""
	if len(context) > 0 {
		prefix = fmt.Sprintf(context[0].(string), context[1:]...) + " "
	}

	fmt.Fprintf(os.Stderr, "[%s] %s%s: %s\n", pkg, prefix, op, fmt.Sprintf(format, args...))
}

// Assert panics with a formatted message if cond is false. It is only
// compiled into facetdebug builds; ordinary builds never pay for the check.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("facet: assertion failed: "+format, args...))
	}
}

// Value is a container that is always populated in facetdebug builds, used
// to stash extra debug-only state (such as a construction stack trace) on
// types that must not carry that weight in release builds.
type Value[T any] struct {
	v T
}

// Get returns a pointer to the contained value.
func (d *Value[T]) Get() *T { return &d.v }

func callerPackage(skip int) string {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "?"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?"
	}
	name := fn.Name()
	if idx := lastSlash(name); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := firstDot(name); idx >= 0 {
		name = name[:idx]
	}
	return name
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func firstDot(s string) int {
	for i := range s {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
