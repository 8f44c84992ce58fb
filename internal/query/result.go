package query

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Object is a decoded object value. Keys are the response keys of the
// selected fields, in selection order.
type Object struct {
	// Typename is the concrete object type the value was decoded as.
	Typename string
	keys     []string
	values   map[string]any
}

func newObject(typename string, size int) *Object {
	return &Object{Typename: typename, keys: make([]string, 0, size), values: make(map[string]any, size)}
}

func (o *Object) set(key string, v any) {
	o.keys = append(o.keys, key)
	o.values[key] = v
}

// Get returns the value under a response key. Values are nil, bool, int,
// float64, string, EnumValue, *Object, []any, or whatever a scalar codec
// produced.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the response keys in selection order.
func (o *Object) Keys() []string { return append([]string(nil), o.keys...) }

func (o *Object) Len() int { return len(o.keys) }

// Plain converts the object to maps and slices: nested objects become
// map[string]any and enum values become their names.
func (o *Object) Plain() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		out[k] = plain(o.values[k])
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case *Object:
		if x == nil {
			return nil
		}
		return x.Plain()
	case EnumValue:
		return x.Name
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

// MarshalJSON writes the object with keys in selection order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EnumValue is a decoded enum. A name the schema does not list is kept with
// Unrecognized set so that responses from a newer server still decode.
type EnumValue struct {
	Type         string
	Name         string
	Unrecognized bool
}

func (e EnumValue) String() string { return e.Name }

func (e EnumValue) MarshalJSON() ([]byte, error) { return json.Marshal(e.Name) }
