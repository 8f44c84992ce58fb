package selection

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"unicode/utf8"

	"github.com/hanpama/selgraph/internal/language"
)

// Kind classifies argument values.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindFloat
	KindString
	KindEnum
	KindList
	KindObject
)

var kindNames = [...]string{"null", "boolean", "int", "float", "string", "enum", "list", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is an argument value. The concrete types are Null, Boolean, Int,
// Float, String, Enum, List and Object.
type Value interface {
	Kind() Kind
	// Interface returns the value as plain Go data: nil, bool, int64,
	// float64, string, Enum, []any or map[string]any.
	Interface() any
}

type nullValue struct{}

// Null is the null literal.
var Null Value = nullValue{}

type (
	Boolean bool
	Int     int64
	Float   float64
	String  string
	// Enum is an enum symbol, printed without quotes.
	Enum string
	List []Value
	// Object is an input object literal. Field order is kept.
	Object []ObjectField
)

// ObjectField is one entry of an input object literal.
type ObjectField struct {
	Name  string
	Value Value
}

func (nullValue) Kind() Kind { return KindNull }
func (Boolean) Kind() Kind   { return KindBoolean }
func (Int) Kind() Kind       { return KindInt }
func (Float) Kind() Kind     { return KindFloat }
func (String) Kind() Kind    { return KindString }
func (Enum) Kind() Kind      { return KindEnum }
func (List) Kind() Kind      { return KindList }
func (Object) Kind() Kind    { return KindObject }

func (nullValue) Interface() any { return nil }
func (v Boolean) Interface() any { return bool(v) }
func (v Int) Interface() any     { return int64(v) }
func (v Float) Interface() any   { return float64(v) }
func (v String) Interface() any  { return string(v) }
func (v Enum) Interface() any    { return v }

func (v List) Interface() any {
	out := make([]any, len(v))
	for i, item := range v {
		out[i] = item.Interface()
	}
	return out
}

func (v Object) Interface() any {
	out := make(map[string]any, len(v))
	for _, f := range v {
		out[f.Name] = f.Value.Interface()
	}
	return out
}

// Get returns the value of the named field.
func (v Object) Get(name string) (Value, bool) {
	for _, f := range v {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// ValueOf converts plain Go data into a Value. It accepts nil, bool, every
// integer type that fits in int64, finite floats, strings, Values, slices and
// arrays of those, and maps keyed by string (fields sorted by key). Anything
// else is a *ConstructionError.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return x, checkValue(x)
	case bool:
		return Boolean(x), nil
	case string:
		return stringValue(x)
	case int:
		return Int(x), nil
	case int8:
		return Int(x), nil
	case int16:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(x), nil
	case uint16:
		return Int(x), nil
	case uint32:
		return Int(x), nil
	case uint:
		return uintValue(uint64(x))
	case uint64:
		return uintValue(x)
	case float32:
		return floatValue(float64(x))
	case float64:
		return floatValue(x)
	case []any:
		out := make(List, len(x))
		for i, item := range x {
			iv, err := ValueOf(item)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Object, 0, len(keys))
		for _, k := range keys {
			fv, err := objectField(k, x[k])
			if err != nil {
				return nil, err
			}
			out = append(out, fv)
		}
		return out, nil
	}
	return reflectValue(reflect.ValueOf(v))
}

func reflectValue(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null, nil
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null, nil
		}
		out := make(List, rv.Len())
		for i := range out {
			iv, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return Null, nil
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := make(Object, 0, len(keys))
		for _, k := range keys {
			fv, err := objectField(k.String(), rv.MapIndex(k).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, fv)
		}
		return out, nil
	case reflect.String:
		return stringValue(rv.String())
	case reflect.Bool:
		return Boolean(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return floatValue(rv.Float())
	}
	return nil, &ConstructionError{
		Kind:    InvalidValue,
		Message: fmt.Sprintf("unsupported argument value of type %s", rv.Type()),
	}
}

func objectField(name string, v any) (ObjectField, error) {
	if !language.IsName(name) {
		return ObjectField{}, &ConstructionError{Kind: InvalidName, Message: fmt.Sprintf("invalid input field name %q", name)}
	}
	fv, err := ValueOf(v)
	if err != nil {
		return ObjectField{}, err
	}
	return ObjectField{Name: name, Value: fv}, nil
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, &ConstructionError{Kind: InvalidValue, Message: fmt.Sprintf("integer %d overflows int64", u)}
	}
	return Int(int64(u)), nil
}

// stringValue rejects text that would not survive quoting unchanged.
func stringValue(s string) (Value, error) {
	if !utf8.ValidString(s) {
		return nil, &ConstructionError{Kind: InvalidValue, Message: fmt.Sprintf("string %q is not valid UTF-8", s)}
	}
	return String(s), nil
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &ConstructionError{Kind: InvalidValue, Message: fmt.Sprintf("float %v is not representable", f)}
	}
	return Float(f), nil
}

// checkValue validates Values built directly from the concrete types, which
// bypass ValueOf.
func checkValue(v Value) error {
	switch x := v.(type) {
	case nil:
		return &ConstructionError{Kind: InvalidValue, Message: "nil Value (use Null)"}
	case Float:
		_, err := floatValue(float64(x))
		return err
	case String:
		_, err := stringValue(string(x))
		return err
	case Enum:
		if !language.IsName(string(x)) || x == "true" || x == "false" || x == "null" {
			return &ConstructionError{Kind: InvalidValue, Message: fmt.Sprintf("invalid enum symbol %q", string(x))}
		}
	case List:
		for _, item := range x {
			if err := checkValue(item); err != nil {
				return err
			}
		}
	case Object:
		seen := make(map[string]bool, len(x))
		for _, f := range x {
			if !language.IsName(f.Name) {
				return &ConstructionError{Kind: InvalidName, Message: fmt.Sprintf("invalid input field name %q", f.Name)}
			}
			if seen[f.Name] {
				return &ConstructionError{Kind: InvalidValue, Message: fmt.Sprintf("duplicate input field %q", f.Name)}
			}
			seen[f.Name] = true
			if err := checkValue(f.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// EqualValues reports whether a and b are the same literal.
func EqualValues(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case List:
		y := b.(List)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !EqualValues(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y := b.(Object)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].Name != y[i].Name || !EqualValues(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
