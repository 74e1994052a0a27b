// Package metadata models the open-ended key/value bag carried by every
// content record. Values form a small tagged union; reading them goes through
// explicit accessors that report whether the stored type matched.
package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Type identifies the variant held by a Value.
type Type uint8

const (
	TypeNull Type = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeList
	TypeMap
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "boolean"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one metadata value. The zero Value is null.
type Value struct {
	typ  Type
	str  string
	num  int64
	flt  float64
	bit  bool
	list []Value
	obj  Bag
}

func String(s string) Value     { return Value{typ: TypeString, str: s} }
func Int(n int64) Value         { return Value{typ: TypeInt, num: n} }
func Float(f float64) Value     { return Value{typ: TypeFloat, flt: f} }
func Bool(b bool) Value         { return Value{typ: TypeBool, bit: b} }
func List(items ...Value) Value { return Value{typ: TypeList, list: items} }
func Map(b Bag) Value           { return Value{typ: TypeMap, obj: b} }

// Type reports the variant held by v.
func (v Value) Type() Type { return v.typ }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.typ == TypeNull }

func (v Value) AsString() (string, bool) { return v.str, v.typ == TypeString }
func (v Value) AsInt() (int64, bool)     { return v.num, v.typ == TypeInt }
func (v Value) AsFloat() (float64, bool) { return v.flt, v.typ == TypeFloat }
func (v Value) AsBool() (bool, bool)     { return v.bit, v.typ == TypeBool }
func (v Value) AsList() ([]Value, bool)  { return v.list, v.typ == TypeList }
func (v Value) AsMap() (Bag, bool)       { return v.obj, v.typ == TypeMap }

// PlaceholderText returns the text substituted for a `{key}` URL token.
// Only strings and integers have a placeholder form.
func (v Value) PlaceholderText() (string, bool) {
	switch v.typ {
	case TypeString:
		return v.str, true
	case TypeInt:
		return strconv.FormatInt(v.num, 10), true
	default:
		return "", false
	}
}

// Interface converts v to plain Go values (string, int64, float64, bool,
// []any, map[string]any, nil) for templates, JSON and path queries.
func (v Value) Interface() any {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeInt:
		return v.num
	case TypeFloat:
		return v.flt
	case TypeBool:
		return v.bit
	case TypeList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case TypeMap:
		return v.obj.ToMap()
	default:
		return nil
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.typ {
	case TypeList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return List(items...)
	case TypeMap:
		return Map(v.obj.Clone())
	default:
		return v
	}
}

// Equal reports deep equality.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeString:
		return v.str == other.str
	case TypeInt:
		return v.num == other.num
	case TypeFloat:
		return v.flt == other.flt
	case TypeBool:
		return v.bit == other.bit
	case TypeList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		return v.obj.Equal(other.obj)
	}
	return false
}

func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return strconv.Quote(v.str)
	case TypeNull:
		return "null"
	default:
		return fmt.Sprint(v.Interface())
	}
}

// MarshalJSON encodes v as its plain JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FromAny converts decoded JSON-like data into a Value. Integers of any width
// become TypeInt; float64 values without a fractional part stay floats.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case []string:
		items := make([]Value, len(x))
		for i, s := range x {
			items[i] = String(s)
		}
		return List(items...), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case Bag:
		return Map(x), nil
	case map[string]any:
		b, err := BagFromMap(x)
		if err != nil {
			return Value{}, err
		}
		return Map(b), nil
	default:
		return Value{}, fmt.Errorf("unsupported metadata value of type %T", raw)
	}
}

// sortedKeys returns map keys in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
