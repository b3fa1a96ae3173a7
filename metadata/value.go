package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind is the JSON type of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a JSON value of any type.
//
// Numbers keep their literal text (json.Number) so that large integers survive a decode/encode cycle. The zero value
// is JSON null.
type Value struct {
	v any // nil, bool, json.Number, string, []Value, or map[string]Value.
}

// NewValue converts a Go value into a Value.
//
// Supported types are nil, bool, string, json.Number, the Go integer and float types, []any, map[string]any, []Value,
// map[string]Value, and Value itself. Anything else is round-tripped through encoding/json.
func NewValue(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case bool, string, json.Number:
		return Value{x}, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Value{json.Number(fmt.Sprint(x))}, nil
	case []Value:
		return Value{x}, nil
	case map[string]Value:
		return Value{x}, nil
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			v, err := NewValue(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = v
		}
		return Value{vs}, nil
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := NewValue(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Value{m}, nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return Value{}, fmt.Errorf("convert %T to json value error: %w", x, err)
		}

		var v Value
		err = v.UnmarshalJSON(data)
		return v, err
	}
}

// MustValue is a variant of NewValue that panics on error.
func MustValue(x any) Value {
	v, err := NewValue(x)
	if err != nil {
		panic(err)
	}

	return v
}

// Kind returns the JSON type of the value.
func (v Value) Kind() Kind {
	switch v.v.(type) {
	case bool:
		return Bool
	case json.Number:
		return Number
	case string:
		return String
	case []Value:
		return Array
	case map[string]Value:
		return Object
	default:
		return Null
	}
}

// Bool returns the boolean value, false if Kind is not Bool.
func (v Value) Bool() bool {
	b, _ := v.v.(bool)
	return b
}

// Number returns the number value, empty if Kind is not Number.
func (v Value) Number() json.Number {
	n, _ := v.v.(json.Number)
	return n
}

// Text returns the string value, empty if Kind is not String.
func (v Value) Text() string {
	s, _ := v.v.(string)
	return s
}

// Array returns the array elements, nil if Kind is not Array.
func (v Value) Array() []Value {
	a, _ := v.v.([]Value)
	return a
}

// Object returns the object members, nil if Kind is not Object.
func (v Value) Object() map[string]Value {
	m, _ := v.v.(map[string]Value)
	return m
}

// Interface returns the value as plain Go types: nil, bool, json.Number, string, []any, or map[string]any.
func (v Value) Interface() any {
	switch x := v.v.(type) {
	case []Value:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = e.Interface()
		}
		return a
	case map[string]Value:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = e.Interface()
		}
		return m
	default:
		return x
	}
}

// String returns the compact JSON encoding of the value.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", v.v)
	}

	return string(data)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()

	var x any
	if err := d.Decode(&x); err != nil {
		return err
	}

	nv, err := NewValue(x)
	if err != nil {
		return err
	}

	*v = nv
	return nil
}
