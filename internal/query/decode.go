package query

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/selgraph/internal/schema"
)

// number is satisfied by json.Number from both encoding/json and go-json.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// Decode maps the data object of a response onto v. The input is not
// modified. The first mismatch stops decoding with a *DecodeError.
func Decode(v *Validated, data map[string]any) (*Object, error) {
	if !v.valid() {
		return nil, ErrNotValidated
	}
	if data == nil {
		return nil, &DecodeError{Kind: UnexpectedNull, Type: v.root.Name, Message: "response has no data"}
	}
	d := &decoder{schema: v.schema}
	return d.object(v.root.Name, v.fields, data, "")
}

// DecodeJSON decodes the JSON text of a response's data object. Numbers are
// kept exact until their field type is known.
func DecodeJSON(v *Validated, data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("query: decode json: %w", err)
	}
	return Decode(v, m)
}

// DecodeStruct decodes a data object carried as a protobuf Struct.
func DecodeStruct(v *Validated, data *structpb.Struct) (*Object, error) {
	if data == nil {
		return Decode(v, nil)
	}
	return Decode(v, data.AsMap())
}

type decoder struct {
	schema *schema.Schema
}

func (d *decoder) object(typename string, fields []*ValidatedField, m map[string]any, path string) (*Object, error) {
	obj := newObject(typename, len(fields))
	for _, f := range fields {
		if f.Implicit {
			continue
		}
		key := f.ResponseKey()
		fieldPath := joinPath(path, key)
		raw, ok := m[key]
		if !ok {
			return nil, &DecodeError{Kind: MissingField, Path: fieldPath, Type: typename, Message: fmt.Sprintf("response has no value for %q", key)}
		}
		val, err := d.value(f, f.Resolved, raw, fieldPath)
		if err != nil {
			return nil, err
		}
		obj.set(key, val)
	}
	return obj, nil
}

func (d *decoder) value(f *ValidatedField, res schema.Resolved, raw any, path string) (any, error) {
	if raw == nil {
		if res.Nullable {
			return nil, nil
		}
		return nil, &DecodeError{Kind: UnexpectedNull, Path: path, Type: res.Type.Name, Message: "null for non-null " + res.Type.Name}
	}
	if res.ListDepth > 0 {
		items, ok := raw.([]any)
		if !ok {
			return nil, mismatch(path, res.Type.Name, "a list", raw)
		}
		elem := res.Elem()
		out := make([]any, len(items))
		for i, item := range items {
			v, err := d.value(f, elem, item, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	t := res.Type
	switch t.Kind {
	case schema.TypeKindScalar:
		return decodeScalar(t, raw, path)
	case schema.TypeKindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(path, t.Name, "an enum name", raw)
		}
		return EnumValue{Type: t.Name, Name: s, Unrecognized: !t.HasEnumValue(s)}, nil
	case schema.TypeKindObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(path, t.Name, "an object", raw)
		}
		return d.object(t.Name, f.Children, m, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(path, t.Name, "an object", raw)
		}
		concrete, err := d.discriminate(t, m, path)
		if err != nil {
			return nil, err
		}
		return d.object(concrete.Name, f.Children, m, path)
	}
	return nil, mismatch(path, t.Name, "an output type", raw)
}

func (d *decoder) discriminate(abstract *schema.Type, m map[string]any, path string) (*schema.Type, error) {
	typenamePath := joinPath(path, schema.TypenameField)
	raw, ok := m[schema.TypenameField]
	if !ok && len(abstract.PossibleTypes) == 1 {
		// A single possible type needs no discriminator.
		if t := d.schema.Types[abstract.PossibleTypes[0]]; t != nil && t.Kind == schema.TypeKindObject {
			return t, nil
		}
	}
	if !ok {
		return nil, &DecodeError{Kind: MissingField, Path: typenamePath, Type: abstract.Name, Message: "response has no " + schema.TypenameField}
	}
	name, ok := raw.(string)
	if !ok {
		return nil, mismatch(typenamePath, abstract.Name, "a type name", raw)
	}
	t := d.schema.Types[name]
	if t == nil || t.Kind != schema.TypeKindObject {
		return nil, &DecodeError{Kind: UnknownTypename, Path: path, Type: abstract.Name, Message: fmt.Sprintf("%q is not an object type of the schema", name)}
	}
	if !abstract.HasPossibleType(name) {
		return nil, &DecodeError{Kind: UnknownTypename, Path: path, Type: abstract.Name, Message: fmt.Sprintf("%s is not a possible type of %s", name, abstract.Name)}
	}
	return t, nil
}

func decodeScalar(t *schema.Type, raw any, path string) (any, error) {
	if t.Codec != nil {
		out, err := t.Codec.Decode(normalize(raw))
		if err != nil {
			return nil, &DecodeError{Kind: ScalarDecode, Path: path, Type: t.Name, Message: err.Error(), Err: err}
		}
		return out, nil
	}
	switch t.Name {
	case "Int":
		i, ok := asInt(raw)
		if !ok {
			return nil, mismatch(path, t.Name, "a 32-bit integer", raw)
		}
		return i, nil
	case "Float":
		f, ok := asFloat(raw)
		if !ok {
			return nil, mismatch(path, t.Name, "a number", raw)
		}
		return f, nil
	case "String":
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(path, t.Name, "a string", raw)
		}
		return s, nil
	case "Boolean":
		b, ok := raw.(bool)
		if !ok {
			return nil, mismatch(path, t.Name, "a boolean", raw)
		}
		return b, nil
	case "ID":
		switch x := raw.(type) {
		case string:
			return x, nil
		case number:
			return x.String(), nil
		}
		if i, ok := asInt(raw); ok {
			return strconv.Itoa(i), nil
		}
		return nil, mismatch(path, t.Name, "a string or integer", raw)
	}
	return normalize(raw), nil
}

func asInt(raw any) (int, bool) {
	var i int64
	switch x := raw.(type) {
	case int:
		i = int64(x)
	case int32:
		i = int64(x)
	case int64:
		i = x
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		if x < math.MinInt32 || x > math.MaxInt32 {
			return 0, false
		}
		i = int64(x)
	case number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		i = n
	default:
		return 0, false
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, false
	}
	return int(i), true
}

func asFloat(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// normalize copies a raw JSON value, turning json.Number into int64 when
// integral and float64 otherwise.
func normalize(raw any) any {
	switch x := raw.(type) {
	case number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalize(item)
		}
		return out
	}
	return raw
}

func mismatch(path, typ, want string, raw any) *DecodeError {
	return &DecodeError{Kind: TypeMismatch, Path: path, Type: typ, Message: fmt.Sprintf("expected %s for %s, got %s", want, typ, rawKind(raw))}
}

func rawKind(raw any) string {
	switch x := raw.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case number:
		return "number " + x.String()
	case float64:
		return "number " + strconv.FormatFloat(x, 'g', -1, 64)
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	}
	return fmt.Sprintf("%T", raw)
}
