package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// Kind is the inferred type of a field value.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Kinds returns every supported kind in presentation order.
func Kinds() []Kind {
	return []Kind{KindString, KindNumber, KindBoolean, KindArray, KindObject}
}

// ParseKind resolves a kind name. Unknown names report false.
func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Value is the closed set of field values a Document can hold:
// String, Number, Bool, Array and Document.
type Value interface {
	Kind() Kind
	sealed()
}

// String is a text field value.
type String string

// Number is a numeric field value.
type Number float64

// Bool is a boolean field value.
type Bool bool

// Array is an ordered list of values.
type Array []Value

// Document is an unordered mapping of field names to values. Nested objects
// are Documents too.
type Document map[string]Value

func (String) Kind() Kind   { return KindString }
func (Number) Kind() Kind   { return KindNumber }
func (Bool) Kind() Kind     { return KindBoolean }
func (Array) Kind() Kind    { return KindArray }
func (Document) Kind() Kind { return KindObject }

func (String) sealed()   {}
func (Number) sealed()   {}
func (Bool) sealed()     {}
func (Array) sealed()    {}
func (Document) sealed() {}

// FromAny converts a decoded JSON/YAML value into a Value. Null becomes an
// empty String, matching Classify.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return String("")
	case tombstone:
		return String("")
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(t)
	case int:
		return Number(t)
	case int64:
		return Number(t)
	case int32:
		return Number(t)
	case uint64:
		return Number(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case interface {
		Float64() (float64, error)
		String() string
	}:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case []any:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = FromAny(item)
		}
		return out
	case map[string]any:
		out := make(Document, len(t))
		for k, item := range t {
			out[k] = FromAny(item)
		}
		return out
	case map[any]any:
		out := make(Document, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = FromAny(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return String("")
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return String(fmt.Sprint(v))
		}
		out := make(Array, rv.Len())
		for i := range out {
			out[i] = FromAny(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(Document, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = FromAny(iter.Value().Interface())
		}
		return out
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float())
	case reflect.String:
		return String(rv.String())
	}
	return String(fmt.Sprint(v))
}

// FromMap converts a decoded map into a Document.
func FromMap(m map[string]any) Document {
	if m == nil {
		return Document{}
	}
	return FromAny(m).(Document)
}

// ToAny converts a Value back into plain Go values suitable for generic
// encoders (string, float64, bool, []any, map[string]any).
func ToAny(v Value) any {
	switch t := v.(type) {
	case nil:
		return nil
	case String:
		return string(t)
	case Number:
		return float64(t)
	case Bool:
		return bool(t)
	case Array:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToAny(item)
		}
		return out
	case Document:
		return t.ToMap()
	}
	return nil
}

// ToMap converts the document into plain Go values.
func (d Document) ToMap() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = ToAny(v)
	}
	return out
}

// Keys returns the document keys sorted.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(d).(Document)
}

func cloneValue(v Value) Value {
	switch t := v.(type) {
	case Array:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case Document:
		out := make(Document, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	}
	return v
}

// Equal reports whether two values are structurally identical. A nil
// Document and an empty one are equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsDelete(a) || IsDelete(b) {
		return IsDelete(a) && IsDelete(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Document:
		y := b.(Document)
		if len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return a == b
}

// Format renders a leaf value as editable text. Containers render as compact
// JSON.
func Format(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case String:
		return string(t)
	case Number:
		return strconv.FormatFloat(float64(t), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(t))
	}
	data, err := gojson.Marshal(ToAny(v))
	if err != nil {
		return ""
	}
	return string(data)
}

// Coerce parses editor text into a value of the given kind. It is used for
// leaf inputs; containers are edited structurally.
func Coerce(kind Kind, text string) (Value, error) {
	switch kind {
	case KindNumber:
		if text == "" {
			return Number(0), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", text)
		}
		return Number(f), nil
	case KindBoolean:
		if text == "" {
			return Bool(false), nil
		}
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", text)
		}
		return Bool(b), nil
	case KindArray, KindObject:
		doc, err := parseJSONValue([]byte(text))
		if err != nil {
			return nil, err
		}
		if Classify(doc) != kind {
			return nil, fmt.Errorf("expected %s, got %s", kind, Classify(doc))
		}
		return doc, nil
	}
	return String(text), nil
}
