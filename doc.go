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

// Package facet is a reflection-driven data interchange toolkit.
//
// Given a user-defined aggregate type, it exposes a static description of
// that type's layout, fields, variants, and conversions — a [Shape] — and
// uses that shape to drive format-agnostic serializers and deserializers
// through [Deserialize] and [Serialize]. A single implementation of a wire
// format, such as facetjson or facetcompact, can read into or write from
// any type that publishes a Shape.
//
// Shapes are not derived from source syntax by this package: callers build
// a *Shape by hand (typically in an init function) and [Register] it
// against the Go type it describes. This mirrors how facet-rs's derive
// macro output looks once expanded, without requiring code generation.
//
// Supported today:
//   - Structs, enums (tagged, untagged, internally- and adjacently-tagged),
//     options, lists, sets, maps, tuples, arrays, and scalar leaves.
//   - Flattened fields, including flattened enums resolved via
//     [plan.TypePlan]'s precomputed Resolution set.
//   - Transparent newtypes and proxy (TryFrom-style) conversions.
//
// Not supported: recovering from memory-safety violations in unsafe
// consumer code, a stable on-disk Shape format, or runtime code
// generation.
package facet
