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

package facet

import (
	"fmt"
	"sort"

	"facet/peek"
	"facet/ptr"
	"facet/wire"
)

// SerializeOption configures a single Serialize call.
type SerializeOption func(*serializeConfig)

type serializeConfig struct{}

// Serialize writes value to ser, walking it via its registered Shape.
func Serialize[T any](value T, ser wire.FormatSerializer, opts ...SerializeOption) error {
	shape := Of[T]()
	if shape == nil {
		return fmt.Errorf("facet: type %T has no registered Shape; call Register first", value)
	}
	cfg := serializeConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	addr := ptr.AddrOfValue(&value)
	p := peek.New(ptr.NewConst(shape, addr))
	return serializeValue(p, ser)
}

func serializeValue(p peek.Peek, ser wire.FormatSerializer) error {
	switch p.Shape().Type {
	case StructType:
		return serializeStruct(p, ser)
	case EnumType:
		return serializeEnum(p, ser)
	case OptionType:
		return serializeOption(p, ser)
	case ListType, SetType:
		return serializeSeq(p, ser)
	case MapType:
		return serializeMap(p, ser)
	case ScalarType:
		return serializeScalar(p, ser)
	default:
		return &Error{Kind: ErrKindOperationFailed, Shape: p.Shape(), Cause: fmt.Errorf("no serialization path for shape type %s", p.Shape().Type)}
	}
}

func serializeScalar(p peek.Peek, ser wire.FormatSerializer) error {
	v, ok := p.Const.AsGoValue()
	if !ok {
		return &Error{Kind: ErrKindOperationFailed, Shape: p.Shape()}
	}
	sv, err := goValueToScalar(p.ScalarType(), v)
	if err != nil {
		return &Error{Kind: ErrKindTypeMismatch, Shape: p.Shape(), Cause: err}
	}
	return ser.Scalar(sv)
}

func serializeStruct(p peek.Peek, ser wire.FormatSerializer) error {
	s, err := p.IntoStruct()
	if err != nil {
		return err
	}
	ser.StructMetadata(p.Shape().ID)
	if err := ser.BeginStruct(wire.KindObject); err != nil {
		return err
	}

	fields := collectFields(s, ser.PreferredFieldOrder())
	for _, fp := range fields {
		if fp.field.Flags&Sensitive != 0 {
			ser.FieldMetadata(wire.FieldItem{Name: fp.field.EffectiveName(), Category: uint8(fp.field.Category()), Sensitive: true})
			if err := ser.FieldKey(fp.field.EffectiveName()); err != nil {
				return err
			}
			if err := ser.Scalar(wire.ScalarValue{Kind: wire.Str, Str: "[redacted]"}); err != nil {
				return err
			}
			continue
		}
		ser.FieldMetadata(wire.FieldItem{Name: fp.field.EffectiveName(), Category: uint8(fp.field.Category())})
		if err := ser.FieldKey(fp.field.EffectiveName()); err != nil {
			return err
		}
		if err := serializeValue(fp.peek, ser); err != nil {
			return err
		}
	}
	return ser.EndStruct()
}

type fieldPeek struct {
	field Field
	peek  peek.Peek
}

func collectFields(s peek.Struct, order wire.FieldOrder) []fieldPeek {
	var out []fieldPeek
	s.FieldsForSerialize(func(f Field, pk peek.Peek) bool {
		out = append(out, fieldPeek{f, pk})
		return true
	})
	switch order {
	case wire.Alphabetical:
		sort.Slice(out, func(i, j int) bool { return out[i].field.EffectiveName() < out[j].field.EffectiveName() })
	case wire.AttributesFirst:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].field.Category() == CategoryAttribute && out[j].field.Category() != CategoryAttribute
		})
	}
	return out
}

func serializeEnum(p peek.Peek, ser wire.FormatSerializer) error {
	e, err := p.IntoEnum()
	if err != nil {
		return err
	}
	variant := p.Shape().Variants[e.VariantIndex()]
	switch p.Shape().Attributes.Tagging() {
	case Untagged:
		return serializeValue(e.Payload(), ser)
	case InternallyTagged:
		if err := ser.BeginStruct(wire.KindObject); err != nil {
			return err
		}
		if err := ser.FieldKey(p.Shape().Attributes.TagKey()); err != nil {
			return err
		}
		if err := ser.Scalar(wire.ScalarValue{Kind: wire.Str, Str: variant.EffectiveName()}); err != nil {
			return err
		}
		payload, _ := e.Payload().IntoStruct()
		for _, fp := range collectFields(payload, ser.PreferredFieldOrder()) {
			if err := ser.FieldKey(fp.field.EffectiveName()); err != nil {
				return err
			}
			if err := serializeValue(fp.peek, ser); err != nil {
				return err
			}
		}
		return ser.EndStruct()
	case AdjacentlyTagged:
		if err := ser.BeginStruct(wire.KindObject); err != nil {
			return err
		}
		if err := ser.FieldKey(p.Shape().Attributes.TagKey()); err != nil {
			return err
		}
		if err := ser.Scalar(wire.ScalarValue{Kind: wire.Str, Str: variant.EffectiveName()}); err != nil {
			return err
		}
		if err := ser.FieldKey(p.Shape().Attributes.ContentKey()); err != nil {
			return err
		}
		if err := serializeValue(e.Payload(), ser); err != nil {
			return err
		}
		return ser.EndStruct()
	default: // ExternallyTagged
		if err := ser.BeginStruct(wire.KindObject); err != nil {
			return err
		}
		if err := ser.FieldKey(variant.EffectiveName()); err != nil {
			return err
		}
		if err := serializeValue(e.Payload(), ser); err != nil {
			return err
		}
		return ser.EndStruct()
	}
}

func serializeOption(p peek.Peek, ser wire.FormatSerializer) error {
	o, err := p.IntoOption()
	if err != nil {
		return err
	}
	inner, ok := o.Unwrap()
	if err := ser.OptionPresent(ok); err != nil {
		return err
	}
	if !ok {
		return ser.Scalar(wire.ScalarValue{Kind: wire.Null})
	}
	return serializeValue(inner, ser)
}

func serializeSeq(p peek.Peek, ser wire.FormatSerializer) error {
	l, err := p.IntoList()
	if err != nil {
		return err
	}
	if err := ser.BeginSeq(wire.KindArray, l.Len()); err != nil {
		return err
	}
	var outerErr error
	l.All(func(_ int, item peek.Peek) bool {
		if err := serializeValue(item, ser); err != nil {
			outerErr = err
			return false
		}
		return true
	})
	if outerErr != nil {
		return outerErr
	}
	return ser.EndSeq()
}

func serializeMap(p peek.Peek, ser wire.FormatSerializer) error {
	m, err := p.IntoMap()
	if err != nil {
		return err
	}
	if err := ser.BeginStruct(wire.KindObject); err != nil {
		return err
	}
	var outerErr error
	m.Entries(func(key, value peek.Peek) bool {
		keyStr, kerr := keyToString(key)
		if kerr != nil {
			outerErr = kerr
			return false
		}
		if err := ser.FieldKey(keyStr); err != nil {
			outerErr = err
			return false
		}
		if err := serializeValue(value, ser); err != nil {
			outerErr = err
			return false
		}
		return true
	})
	if outerErr != nil {
		return outerErr
	}
	return ser.EndStruct()
}

func keyToString(p peek.Peek) (string, error) {
	if p.Shape().VTable.Display != nil {
		return p.Shape().VTable.Display(p.Const.Addr()), nil
	}
	v, ok := p.Const.AsGoValue()
	if !ok {
		return "", &Error{Kind: ErrKindOperationFailed, Shape: p.Shape(), Cause: fmt.Errorf("cannot render map key")}
	}
	return fmt.Sprint(v.Interface()), nil
}

func goValueToScalar(kind Kind, v interface{ Interface() any }) (wire.ScalarValue, error) {
	val := v.Interface()
	switch x := val.(type) {
	case bool:
		return wire.ScalarValue{Kind: wire.Bool, Bool: x}, nil
	case string:
		return wire.ScalarValue{Kind: wire.Str, Str: x}, nil
	case []byte:
		return wire.ScalarValue{Kind: wire.Bytes, Bytes: x}, nil
	case int:
		return wire.ScalarValue{Kind: wire.I64, I64: int64(x)}, nil
	case int8:
		return wire.ScalarValue{Kind: wire.I64, I64: int64(x)}, nil
	case int16:
		return wire.ScalarValue{Kind: wire.I64, I64: int64(x)}, nil
	case int32:
		return wire.ScalarValue{Kind: wire.I64, I64: int64(x)}, nil
	case int64:
		return wire.ScalarValue{Kind: wire.I64, I64: x}, nil
	case uint:
		return wire.ScalarValue{Kind: wire.U64, U64: uint64(x)}, nil
	case uint8:
		return wire.ScalarValue{Kind: wire.U64, U64: uint64(x)}, nil
	case uint16:
		return wire.ScalarValue{Kind: wire.U64, U64: uint64(x)}, nil
	case uint32:
		return wire.ScalarValue{Kind: wire.U64, U64: uint64(x)}, nil
	case uint64:
		return wire.ScalarValue{Kind: wire.U64, U64: x}, nil
	case float32:
		return wire.ScalarValue{Kind: wire.F64, F64: float64(x)}, nil
	case float64:
		return wire.ScalarValue{Kind: wire.F64, F64: x}, nil
	default:
		return wire.ScalarValue{}, fmt.Errorf("unsupported scalar go type %T", val)
	}
}
