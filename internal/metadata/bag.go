package metadata

import (
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"
)

var (
	// ErrMissingKey is returned when a required key is absent.
	ErrMissingKey = errors.New("missing key")
	// ErrWrongType is returned when a key holds a different variant than requested.
	ErrWrongType = errors.New("wrong type")
)

// Bag maps metadata keys to values.
type Bag map[string]Value

// BagFromMap converts a decoded JSON object into a Bag.
func BagFromMap(m map[string]any) (Bag, error) {
	b := make(Bag, len(m))
	for _, k := range sortedKeys(m) {
		v, err := FromAny(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		b[k] = v
	}
	return b, nil
}

// Get returns the value for key.
func (b Bag) Get(key string) (Value, bool) {
	v, ok := b[key]
	return v, ok
}

// Set stores v under key.
func (b Bag) Set(key string, v Value) { b[key] = v }

// Has reports whether key is present.
func (b Bag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Keys returns the keys in ascending order.
func (b Bag) Keys() []string { return sortedKeys(b) }

// Clone returns a deep copy of b.
func (b Bag) Clone() Bag {
	if b == nil {
		return Bag{}
	}
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v.Clone()
	}
	return out
}

// Equal reports deep equality.
func (b Bag) Equal(other Bag) bool {
	if len(b) != len(other) {
		return false
	}
	for k, v := range b {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// ToMap converts b to plain Go values.
func (b Bag) ToMap() map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = v.Interface()
	}
	return out
}

// RequireString returns the string stored at key.
func (b Bag) RequireString(key string) (string, error) {
	v, ok := b[key]
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrMissingKey)
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%q is %s, want string: %w", key, v.Type(), ErrWrongType)
	}
	return s, nil
}

// OptionalString returns the string at key; present is false when the key is absent.
func (b Bag) OptionalString(key string) (s string, present bool, err error) {
	v, ok := b[key]
	if !ok {
		return "", false, nil
	}
	s, ok = v.AsString()
	if !ok {
		return "", true, fmt.Errorf("%q is %s, want string: %w", key, v.Type(), ErrWrongType)
	}
	return s, true, nil
}

// OptionalBool returns the boolean at key, or def when the key is absent.
func (b Bag) OptionalBool(key string, def bool) (bool, error) {
	v, ok := b[key]
	if !ok {
		return def, nil
	}
	x, ok := v.AsBool()
	if !ok {
		return def, fmt.Errorf("%q is %s, want boolean: %w", key, v.Type(), ErrWrongType)
	}
	return x, nil
}

// StringList returns the string entries of the list at key. Non-string
// entries are dropped; an absent key yields an empty list.
func (b Bag) StringList(key string) ([]string, error) {
	v, ok := b[key]
	if !ok {
		return []string{}, nil
	}
	items, ok := v.AsList()
	if !ok {
		return nil, fmt.Errorf("%q is %s, want list: %w", key, v.Type(), ErrWrongType)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Query evaluates a JSONPath expression (for example "$.author.name") against
// the bag and returns the first match.
func (b Bag) Query(path string) (any, bool, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid jsonpath %q: %w", path, err)
	}
	results := x.Get(b.ToMap())
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}
