package schema

import (
	"encoding/json"
	"reflect"
)

// Classify infers the kind of an arbitrary decoded value. It is total: null
// and anything unrecognised fall back to KindString.
//
// Rules are checked in order: null, array, boolean, number, object, string.
func Classify(v any) Kind {
	if v == nil {
		return KindString
	}
	if IsDelete(v) {
		return KindString
	}
	if val, ok := v.(Value); ok {
		return val.Kind()
	}

	switch v.(type) {
	case []any:
		return KindArray
	case bool:
		return KindBoolean
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return KindNumber
	case map[string]any, map[any]any:
		return KindObject
	case string:
		return KindString
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return KindString
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return KindString
		}
		return KindArray
	case reflect.Bool:
		return KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Map, reflect.Struct:
		return KindObject
	}
	return KindString
}

// DefaultFor returns the canonical empty value for a kind. Unknown kinds get
// an empty string.
func DefaultFor(kind Kind) Value {
	switch kind {
	case KindNumber:
		return Number(0)
	case KindBoolean:
		return Bool(false)
	case KindArray:
		return Array{}
	case KindObject:
		return Document{}
	}
	return String("")
}
