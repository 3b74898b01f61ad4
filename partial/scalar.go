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

package partial

import (
	"fmt"
	"reflect"

	"facet/wire"
)

// assignScalar writes v into dst, converting between the wire's typed
// scalar and dst's underlying Go kind. dst must be addressable.
func assignScalar(dst reflect.Value, v wire.ScalarValue) error {
	switch dst.Kind() {
	case reflect.Bool:
		b, err := asBool(v)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt(v)
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asUint(v)
		if err != nil {
			return err
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := asFloat(v)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case reflect.String:
		s, err := asString(v)
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			b, err := asBytes(v)
			if err != nil {
				return err
			}
			dst.SetBytes(b)
			return nil
		}
		return fmt.Errorf("cannot assign scalar to slice of %s", dst.Type().Elem())
	default:
		return fmt.Errorf("cannot assign scalar to %s", dst.Type())
	}
	return nil
}

func asBool(v wire.ScalarValue) (bool, error) {
	switch v.Kind {
	case wire.Bool:
		return v.Bool, nil
	case wire.StringlyTyped:
		return v.Str == "true" || v.Str == "1", nil
	default:
		return false, fmt.Errorf("expected bool, got %v", v.Kind)
	}
}

func asInt(v wire.ScalarValue) (int64, error) {
	switch v.Kind {
	case wire.I64:
		return v.I64, nil
	case wire.U64:
		return int64(v.U64), nil
	case wire.F64:
		return int64(v.F64), nil
	case wire.StringlyTyped, wire.Str:
		var n int64
		_, err := fmt.Sscanf(v.Str, "%d", &n)
		return n, err
	default:
		return 0, fmt.Errorf("expected integer, got %v", v.Kind)
	}
}

func asUint(v wire.ScalarValue) (uint64, error) {
	switch v.Kind {
	case wire.U64:
		return v.U64, nil
	case wire.I64:
		return uint64(v.I64), nil
	case wire.F64:
		return uint64(v.F64), nil
	case wire.StringlyTyped, wire.Str:
		var n uint64
		_, err := fmt.Sscanf(v.Str, "%d", &n)
		return n, err
	default:
		return 0, fmt.Errorf("expected unsigned integer, got %v", v.Kind)
	}
}

func asFloat(v wire.ScalarValue) (float64, error) {
	switch v.Kind {
	case wire.F64:
		return v.F64, nil
	case wire.I64:
		return float64(v.I64), nil
	case wire.U64:
		return float64(v.U64), nil
	case wire.StringlyTyped, wire.Str:
		var f float64
		_, err := fmt.Sscanf(v.Str, "%g", &f)
		return f, err
	default:
		return 0, fmt.Errorf("expected float, got %v", v.Kind)
	}
}

func asString(v wire.ScalarValue) (string, error) {
	switch v.Kind {
	case wire.Str, wire.StringlyTyped:
		return v.Str, nil
	default:
		return "", fmt.Errorf("expected string, got %v", v.Kind)
	}
}

func asBytes(v wire.ScalarValue) ([]byte, error) {
	switch v.Kind {
	case wire.Bytes:
		return v.Bytes, nil
	case wire.Str, wire.StringlyTyped:
		return []byte(v.Str), nil
	default:
		return nil, fmt.Errorf("expected bytes, got %v", v.Kind)
	}
}
