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

package facetyaml_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"facet/facetyaml"
	"facet/wire"
)

func writeStruct(t *testing.T, ser *facetyaml.Serializer) {
	t.Helper()
	require.NoError(t, ser.BeginStruct(wire.KindObject))
	require.NoError(t, ser.FieldKey("name"))
	require.NoError(t, ser.Scalar(wire.ScalarValue{Kind: wire.Str, Str: "gopher"}))
	require.NoError(t, ser.FieldKey("age"))
	require.NoError(t, ser.Scalar(wire.ScalarValue{Kind: wire.I64, I64: 11}))
	require.NoError(t, ser.EndStruct())
}

func TestStructRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ser := facetyaml.NewSerializer(&buf)
	writeStruct(t, ser)
	require.NotEmpty(t, buf.Bytes())

	p, err := facetyaml.NewParserFromBytes(buf.Bytes())
	require.NoError(t, err)
	require.True(t, p.IsSelfDescribing())

	var got []wire.ParseEvent
	for {
		ev, ok, err := p.NextEvent()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, ev)
	}

	require.Equal(t, wire.StructStart, got[0].Kind)
	require.Equal(t, wire.FieldKey, got[1].Kind)
	require.Equal(t, "name", got[1].Name)
	require.Equal(t, wire.Scalar, got[2].Kind)
	require.Equal(t, "gopher", got[2].Value.Str)
	require.Equal(t, wire.FieldKey, got[3].Kind)
	require.Equal(t, "age", got[3].Name)
	require.Equal(t, wire.Scalar, got[4].Kind)
	require.Equal(t, int64(11), got[4].Value.I64)
	require.Equal(t, wire.StructEnd, got[5].Kind)
}

func TestBeginProbeSeesBothFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ser := facetyaml.NewSerializer(&buf)
	writeStruct(t, ser)

	p, err := facetyaml.NewParserFromBytes(buf.Bytes())
	require.NoError(t, err)

	// Skip past StructStart so the probe begins on the object itself, as
	// the driver would have it positioned before descending into fields.
	_, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)

	probe := p.BeginProbe()
	var names []string
	for {
		ev, ok := probe.Next()
		if !ok {
			break
		}
		names = append(names, ev.Name)
	}
	require.Equal(t, []string{"name", "age"}, names)

	// The probe must not have consumed the underlying stream.
	ev, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.FieldKey, ev.Kind)
	require.Equal(t, "name", ev.Name)
}

func TestSkipValueSkipsNestedStructure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ser := facetyaml.NewSerializer(&buf)
	require.NoError(t, ser.BeginStruct(wire.KindObject))
	require.NoError(t, ser.FieldKey("inner"))
	writeStruct(t, ser)
	require.NoError(t, ser.FieldKey("after"))
	require.NoError(t, ser.Scalar(wire.ScalarValue{Kind: wire.Bool, Bool: true}))
	require.NoError(t, ser.EndStruct())

	p, err := facetyaml.NewParserFromBytes(buf.Bytes())
	require.NoError(t, err)

	_, _, _ = p.NextEvent() // StructStart (outer)
	_, _, _ = p.NextEvent() // FieldKey "inner"
	require.NoError(t, p.SkipValue())

	ev, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.FieldKey, ev.Kind)
	require.Equal(t, "after", ev.Name)
}
