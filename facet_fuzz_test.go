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

package facet_test

import (
	"errors"
	"testing"

	"facet"
	"facet/facetcompact"
	"facet/facetjson"
)

// FuzzDeserializeJSON exercises Deserialize against arbitrary bytes fed as
// a JSON document. Two properties must hold no matter how malformed the
// input is: Deserialize must never panic, and every error it returns must
// be a *facet.Error (so it carries a Path), never a bare parser error
// escaping unwrapped.
func FuzzDeserializeJSON(f *testing.F) {
	f.Add([]byte(`{"Name":"gopher","Age":11}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"Name":1}`))
	f.Add([]byte(`[1,2,3]`))
	f.Add([]byte(`not json at all`))
	f.Add([]byte(``))
	f.Add([]byte(`{"Name":"gopher","Age":11`)) // truncated

	f.Fuzz(func(t *testing.T, b []byte) {
		_, err := facet.Deserialize[integrationPerson](facetjson.NewParserFromBytes(b))
		if err == nil {
			return
		}
		var fe *facet.Error
		if !errors.As(err, &fe) {
			t.Fatalf("error escaped without Path context: %v", err)
		}
	})
}

// FuzzDeserializeCompact does the same for the non-self-describing
// positional format, where most arbitrary byte strings are expected to
// fail fast on a malformed varint or truncated length prefix rather than
// ever read out of bounds.
func FuzzDeserializeCompact(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x01})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, b []byte) {
		_, err := facet.Deserialize[integrationPerson](facetcompact.NewParser(b))
		if err == nil {
			return
		}
		var fe *facet.Error
		if !errors.As(err, &fe) {
			t.Fatalf("error escaped without Path context: %v", err)
		}
	})
}
