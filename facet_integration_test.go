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
	"bytes"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"facet"
	"facet/facetjson"
)

type integrationPerson struct {
	Name string
	Age  int64
}

var integrationStringShape = facet.Register[string](&facet.Shape{
	ID: "facet_test.integrationString", Type: facet.ScalarType, ScalarKind: protoreflect.StringKind, Size: unsafe.Sizeof(""),
})

var integrationInt64Shape = facet.Register[int64](&facet.Shape{
	ID: "facet_test.integrationInt64", Type: facet.ScalarType, ScalarKind: protoreflect.Int64Kind, Size: unsafe.Sizeof(int64(0)),
})

var integrationPersonShape = facet.Register[integrationPerson](&facet.Shape{
	ID:         "facet_test.integrationPerson",
	Type:       facet.StructType,
	StructKind: facet.StructKindNamed,
	Size:       unsafe.Sizeof(integrationPerson{}),
	Fields: []facet.Field{
		{Name: "Name", Offset: unsafe.Offsetof(integrationPerson{}.Name), Shape: func() *facet.Shape { return integrationStringShape }},
		{Name: "Age", Offset: unsafe.Offsetof(integrationPerson{}.Age), Shape: func() *facet.Shape { return integrationInt64Shape }},
	},
})

// TestDeserializeSerializeRoundTripJSON drives a real struct shape through
// the full Deserialize/Serialize path against facetjson end to end, the
// same round trip a compiled hyperpb message exercises against protobuf
// wire bytes.
func TestDeserializeSerializeRoundTripJSON(t *testing.T) {
	t.Parallel()

	const doc = `{"Name":"gopher","Age":11}`
	parser := facetjson.NewParserFromBytes([]byte(doc))

	got, err := facet.Deserialize[integrationPerson](parser)
	require.NoError(t, err)
	require.Equal(t, integrationPerson{Name: "gopher", Age: 11}, got)

	var buf bytes.Buffer
	ser := facetjson.NewSerializer(&buf)
	require.NoError(t, facet.Serialize(got, ser))

	roundTripped, err := facet.Deserialize[integrationPerson](facetjson.NewParserFromBytes(buf.Bytes()))
	require.NoError(t, err)
	if diff := cmp.Diff(got, roundTripped); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDeserializeRejectsWrongShape(t *testing.T) {
	t.Parallel()
	_, err := facet.Deserialize[integrationPerson](facetjson.NewParserFromBytes([]byte(`{"Name":1,"Age":"x"}`)))
	require.Error(t, err)
}
