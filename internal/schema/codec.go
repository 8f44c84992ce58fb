package schema

import (
	"fmt"
	"maps"
	"sort"
)

// ScalarCodec converts values of a custom scalar between the plain Go form
// callers work with and the form carried in query text and JSON responses.
//
// Encode receives an argument value in plain form (nil, bool, int64, float64,
// string, []any, map[string]any) and returns the plain value to print.
// Decode receives the raw JSON value of a response and returns the value
// handed to the caller.
type ScalarCodec interface {
	Encode(v any) (any, error)
	Decode(raw any) (any, error)
}

// ScalarFuncs adapts a pair of functions to ScalarCodec. A nil function
// passes values through unchanged.
type ScalarFuncs struct {
	EncodeFunc func(any) (any, error)
	DecodeFunc func(any) (any, error)
}

func (f ScalarFuncs) Encode(v any) (any, error) {
	if f.EncodeFunc == nil {
		return v, nil
	}
	return f.EncodeFunc(v)
}

func (f ScalarFuncs) Decode(raw any) (any, error) {
	if f.DecodeFunc == nil {
		return raw, nil
	}
	return f.DecodeFunc(raw)
}

// WithCodecs returns a copy of s whose scalars carry the given codecs.
// Every key must name a scalar type of s. The receiver is left untouched.
func (s *Schema) WithCodecs(codecs map[string]ScalarCodec) (*Schema, error) {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := *s
	out.Types = maps.Clone(s.Types)
	for _, name := range names {
		t := out.Types[name]
		if t == nil {
			return nil, fmt.Errorf("register codec: %w", &UnknownTypeError{Name: name})
		}
		if t.Kind != TypeKindScalar {
			return nil, fmt.Errorf("register codec: %s is %s, not SCALAR", name, t.Kind)
		}
		copied := *t
		copied.Codec = codecs[name]
		out.Types[name] = &copied
	}
	return &out, nil
}
