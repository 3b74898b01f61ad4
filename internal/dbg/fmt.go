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

// Package dbg provides debug-printing helpers shared across facet's
// low-level packages. Formatting helpers in this file are always compiled
// in; [Log], [Assert], and [Value] are gated behind the facetdebug build
// tag and become no-ops otherwise.
package dbg

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

// Formatter adapts a function into an [fmt.Formatter] and [fmt.Stringer],
// so that expensive formatting only happens if the value is actually
// printed.
type Formatter func(fmt.State, rune)

// Format implements [fmt.Formatter].
func (f Formatter) Format(s fmt.State, verb rune) { f(s, verb) }

// String implements [fmt.Stringer].
func (f Formatter) String() string { return fmt.Sprint(f) }

// Fprintf returns a lazily-evaluated [fmt.Formatter] for format and args.
func Fprintf(format string, args ...any) Formatter {
	return func(s fmt.State, verb rune) {
		fmt.Fprintf(s, fmt.FormatString(s, verb), fmt.Sprintf(format, args...))
	}
}

// Func pretty-prints a function value by resolving its program counter to a
// symbol name.
func Func(f any) Formatter {
	return func(s fmt.State, _ rune) {
		name := fmt.Sprintf("%v", f)
		if fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer()); fn != nil {
			name = fn.Name()
		}
		fmt.Fprint(s, name)
	}
}

// Dump lazily renders v with go-spew's recursive, cycle-safe dumper, for
// tracing a partial.Frame stack or a peek.Struct without risking a plain
// %#v blowing up on an unexported unsafe.Pointer field.
func Dump(v any) Formatter {
	return func(s fmt.State, _ rune) {
		fmt.Fprint(s, spew.Sdump(v))
	}
}

// Dict pretty-prints a flat key/value dictionary, for use in debug traces.
//
// kv must be a flat, even-length list alternating between keys and values.
func Dict(prefix string, kv ...any) Formatter {
	return func(s fmt.State, _ rune) {
		fmt.Fprint(s, prefix, "{")
		for i := 0; i+1 < len(kv); i += 2 {
			if i > 0 {
				fmt.Fprint(s, ", ")
			}
			fmt.Fprintf(s, "%v: %v", kv[i], kv[i+1])
		}
		fmt.Fprint(s, "}")
	}
}
