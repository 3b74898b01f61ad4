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

package facetjson_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"facet/facetjson"
	"facet/wire"
)

func TestStructRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ser := facetjson.NewSerializer(&buf)
	require.NoError(t, ser.BeginStruct(wire.KindObject))
	require.NoError(t, ser.FieldKey("name"))
	require.NoError(t, ser.Scalar(wire.ScalarValue{Kind: wire.Str, Str: "gopher"}))
	require.NoError(t, ser.FieldKey("age"))
	require.NoError(t, ser.Scalar(wire.ScalarValue{Kind: wire.I64, I64: 11}))
	require.NoError(t, ser.EndStruct())

	require.JSONEq(t, `{"name":"gopher","age":11}`, buf.String())

	p := facetjson.NewParserFromBytes(buf.Bytes())
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

func TestSequenceRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ser := facetjson.NewSerializer(&buf)
	require.NoError(t, ser.BeginSeq(wire.KindArray, 3))
	for _, v := range []int64{1, 2, 3} {
		require.NoError(t, ser.Scalar(wire.ScalarValue{Kind: wire.I64, I64: v}))
	}
	require.NoError(t, ser.EndSeq())
	require.JSONEq(t, `[1,2,3]`, buf.String())

	p := facetjson.NewParserFromBytes(buf.Bytes())
	ev, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.SequenceStart, ev.Kind)

	var got []int64
	for {
		ev, ok, err := p.NextEvent()
		require.NoError(t, err)
		require.True(t, ok)
		if ev.Kind == wire.SequenceEnd {
			break
		}
		got = append(got, ev.Value.I64)
	}
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestSkipValueSkipsNestedStructure(t *testing.T) {
	t.Parallel()

	p := facetjson.NewParserFromBytes([]byte(`{"inner":{"a":1,"b":[1,2,3]},"after":true}`))

	_, _, _ = p.NextEvent() // StructStart (outer)
	_, _, _ = p.NextEvent() // FieldKey "inner"
	require.NoError(t, p.SkipValue())

	ev, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.FieldKey, ev.Kind)
	require.Equal(t, "after", ev.Name)
}

func TestPeekEventDoesNotConsume(t *testing.T) {
	t.Parallel()

	p := facetjson.NewParserFromBytes([]byte(`{"a":1}`))
	_, _, _ = p.NextEvent() // StructStart

	peeked, ok, err := p.PeekEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.FieldKey, peeked.Kind)

	next, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, peeked, next)
}

func TestBeginProbeDegradesToSingleLookahead(t *testing.T) {
	t.Parallel()

	p := facetjson.NewParserFromBytes([]byte(`{"a":1,"b":2}`))
	_, _, _ = p.NextEvent() // StructStart

	probe := p.BeginProbe()
	_, ok := probe.Next()
	require.False(t, ok) // documented limitation: JSON probing never yields evidence

	// The underlying stream must still be intact for the driver to use.
	ev, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.FieldKey, ev.Kind)
	require.Equal(t, "a", ev.Name)
}

func TestNullScalarRoundTrips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ser := facetjson.NewSerializer(&buf)
	require.NoError(t, ser.Scalar(wire.ScalarValue{Kind: wire.Null}))
	require.Equal(t, "null", buf.String())

	p := facetjson.NewParserFromBytes(buf.Bytes())
	ev, ok, err := p.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.Null, ev.Value.Kind)
}
