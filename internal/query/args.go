package query

import (
	"fmt"
	"math"

	"github.com/hanpama/selgraph/internal/schema"
	"github.com/hanpama/selgraph/internal/selection"
)

// coerce checks an argument value against its declared type and returns the
// literal to print. Enum names given as strings become enum symbols, single
// values given for a list become one-item lists, and scalars with a codec
// are encoded.
func (v *validator) coerce(ref *schema.TypeRef, val selection.Value) (selection.Value, error) {
	if ref == nil {
		err := fmt.Errorf("query: incomplete type reference")
		v.fail(err)
		return nil, err
	}
	switch ref.Kind {
	case schema.TypeRefKindNonNull:
		if val.Kind() == selection.KindNull {
			return nil, fmt.Errorf("expected %s, got null", ref)
		}
		return v.coerce(ref.OfType, val)
	case schema.TypeRefKindList:
		if val.Kind() == selection.KindNull {
			return selection.Null, nil
		}
		list, ok := val.(selection.List)
		if !ok {
			item, err := v.coerce(ref.OfType, val)
			if err != nil {
				return nil, err
			}
			return selection.List{item}, nil
		}
		out := make(selection.List, len(list))
		for i, item := range list {
			c, err := v.coerce(ref.OfType, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	}

	if val.Kind() == selection.KindNull {
		return selection.Null, nil
	}
	t, err := v.schema.Lookup(ref.Named)
	if err != nil {
		v.fail(err)
		return nil, err
	}
	switch t.Kind {
	case schema.TypeKindScalar:
		return coerceScalar(t, val)
	case schema.TypeKindEnum:
		var name string
		switch x := val.(type) {
		case selection.Enum:
			name = string(x)
		case selection.String:
			name = string(x)
		default:
			return nil, fmt.Errorf("expected enum %s, got %s", t.Name, describe(val))
		}
		if !t.HasEnumValue(name) {
			return nil, fmt.Errorf("%q is not a value of enum %s", name, t.Name)
		}
		return selection.Enum(name), nil
	case schema.TypeKindInputObject:
		return v.coerceInputObject(t, val)
	}
	return nil, fmt.Errorf("%s is %s, not an input type", t.Name, t.Kind)
}

func (v *validator) coerceInputObject(t *schema.Type, val selection.Value) (selection.Value, error) {
	obj, ok := val.(selection.Object)
	if !ok {
		return nil, fmt.Errorf("expected input object %s, got %s", t.Name, describe(val))
	}
	out := make(selection.Object, 0, len(obj))
	nonNull := 0
	for _, f := range obj {
		def := t.InputField(f.Name)
		if def == nil {
			return nil, fmt.Errorf("input object %s has no field %q", t.Name, f.Name)
		}
		c, err := v.coerce(def.Type, f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if c.Kind() != selection.KindNull {
			nonNull++
		}
		out = append(out, selection.ObjectField{Name: f.Name, Value: c})
	}
	for _, def := range t.InputFields {
		if _, given := obj.Get(def.Name); !given && def.IsRequired() {
			return nil, fmt.Errorf("field %s of input object %s is required", def.Name, t.Name)
		}
	}
	if t.OneOf && (len(obj) != 1 || nonNull != 1) {
		return nil, fmt.Errorf("exactly one field of input object %s must be given and non-null", t.Name)
	}
	return out, nil
}

func coerceScalar(t *schema.Type, val selection.Value) (selection.Value, error) {
	if t.Codec != nil {
		encoded, err := t.Codec.Encode(val.Interface())
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t.Name, err)
		}
		out, err := selection.ValueOf(encoded)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t.Name, err)
		}
		return out, nil
	}
	ok := true
	switch t.Name {
	case "Int":
		i, isInt := val.(selection.Int)
		ok = isInt && i >= math.MinInt32 && i <= math.MaxInt32
	case "Float":
		ok = val.Kind() == selection.KindInt || val.Kind() == selection.KindFloat
	case "String":
		ok = val.Kind() == selection.KindString
	case "Boolean":
		ok = val.Kind() == selection.KindBoolean
	case "ID":
		ok = val.Kind() == selection.KindString || val.Kind() == selection.KindInt
	}
	if !ok {
		return nil, fmt.Errorf("expected %s, got %s", t.Name, describe(val))
	}
	return val, nil
}

func describe(val selection.Value) string {
	if val.Kind() == selection.KindNull {
		return "null"
	}
	return val.Kind().String() + " " + literal(val)
}
