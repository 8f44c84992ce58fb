// Package introspection converts between the standard introspection query
// result and the schema catalog.
package introspection

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hanpama/selgraph/internal/language"
	"github.com/hanpama/selgraph/internal/schema"
)

// Error reports a malformed introspection payload. Path locates the offending
// element, e.g. "types[Repository].fields[issues].type".
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "introspection: " + e.Message
	}
	return "introspection: " + e.Path + ": " + e.Message
}

func errorf(path, format string, args ...any) *Error {
	return &Error{Path: path, Message: fmt.Sprintf(format, args...)}
}

type options struct {
	codecs map[string]schema.ScalarCodec
}

// Option configures Load and Parse.
type Option func(*options)

// WithScalars attaches codecs to the named scalar types of the loaded
// catalog. Scalars without a codec decode to their raw JSON value.
func WithScalars(codecs map[string]schema.ScalarCodec) Option {
	return func(o *options) { o.codecs = codecs }
}

// Parse decodes an introspection result and loads it. The document may be a
// full GraphQL response ({"data": {"__schema": ...}}), the data object
// ({"__schema": ...}) or the bare schema object.
func Parse(data []byte, opts ...Option) (*schema.Schema, error) {
	var env struct {
		Data   *Response `json:"data"`
		Schema *Schema   `json:"__schema"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errorf("", "invalid JSON: %v", err)
	}
	var payload *Schema
	switch {
	case env.Data != nil && env.Data.Schema != nil:
		payload = env.Data.Schema
	case env.Schema != nil:
		payload = env.Schema
	default:
		var bare Schema
		if err := json.Unmarshal(data, &bare); err != nil || bare.Types == nil {
			return nil, errorf("", "no __schema object found")
		}
		payload = &bare
	}
	return Load(&Response{Schema: payload}, opts...)
}

// Load builds a catalog from a decoded introspection result. Any malformed
// element fails the whole load with an *Error; the resulting catalog is
// checked for dangling references before it is returned.
func Load(resp *Response, opts ...Option) (*schema.Schema, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if resp == nil || resp.Schema == nil {
		return nil, errorf("", "missing __schema")
	}
	in := resp.Schema
	if in.QueryType == nil || in.QueryType.Name == "" {
		return nil, errorf("queryType", "missing")
	}
	if in.Types == nil {
		return nil, errorf("types", "missing")
	}

	s := schema.NewSchema(deref(in.Description))
	s.SetQueryType(in.QueryType.Name)
	if in.MutationType != nil {
		s.SetMutationType(in.MutationType.Name)
	}
	if in.SubscriptionType != nil {
		s.SetSubscriptionType(in.SubscriptionType.Name)
	}

	seen := make(map[string]bool, len(in.Types))
	for i := range in.Types {
		ft := &in.Types[i]
		if ft.Name == nil || *ft.Name == "" {
			return nil, errorf(fmt.Sprintf("types[%d]", i), "type without a name")
		}
		name := *ft.Name
		path := "types[" + name + "]"
		if seen[name] {
			return nil, errorf(path, "duplicate type")
		}
		seen[name] = true
		if strings.HasPrefix(name, "__") {
			continue
		}
		t, err := loadType(path, ft)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}

	for i := range in.Directives {
		d, err := loadDirective(&in.Directives[i])
		if err != nil {
			return nil, err
		}
		s.AddDirective(d)
	}

	if len(o.codecs) > 0 {
		withCodecs, err := s.WithCodecs(o.codecs)
		if err != nil {
			return nil, err
		}
		s = withCodecs
	}
	if err := s.Check(); err != nil {
		return nil, fmt.Errorf("introspection: %w", err)
	}
	return s, nil
}

func loadType(path string, ft *FullType) (*schema.Type, error) {
	kind := schema.TypeKind(ft.Kind)
	t := schema.NewType(*ft.Name, kind, deref(ft.Description))

	switch kind {
	case schema.TypeKindScalar:
		t.SpecifiedByURL = ft.SpecifiedByURL
	case schema.TypeKindEnum:
		if ft.EnumValues == nil {
			return nil, errorf(path, "enum without enumValues")
		}
		for _, ev := range ft.EnumValues {
			t.AddEnumValue(&schema.EnumValue{
				Name:              ev.Name,
				Description:       deref(ev.Description),
				IsDeprecated:      ev.IsDeprecated,
				DeprecationReason: deref(ev.DeprecationReason),
			})
		}
	case schema.TypeKindObject, schema.TypeKindInterface:
		if ft.Fields == nil {
			return nil, errorf(path, "%s without fields", kind)
		}
		for _, f := range ft.Fields {
			field, err := loadField(path+".fields["+f.Name+"]", &f)
			if err != nil {
				return nil, err
			}
			t.AddField(field)
		}
		for i, ref := range ft.Interfaces {
			name, err := namedRef(fmt.Sprintf("%s.interfaces[%d]", path, i), &ref)
			if err != nil {
				return nil, err
			}
			t.AddInterface(name)
		}
		if kind == schema.TypeKindInterface {
			if err := loadPossibleTypes(path, t, ft.PossibleTypes); err != nil {
				return nil, err
			}
		}
	case schema.TypeKindUnion:
		if ft.PossibleTypes == nil {
			return nil, errorf(path, "union without possibleTypes")
		}
		if err := loadPossibleTypes(path, t, ft.PossibleTypes); err != nil {
			return nil, err
		}
	case schema.TypeKindInputObject:
		if ft.InputFields == nil {
			return nil, errorf(path, "input object without inputFields")
		}
		for _, iv := range ft.InputFields {
			v, err := loadInputValue(path+".inputFields["+iv.Name+"]", &iv)
			if err != nil {
				return nil, err
			}
			t.AddInputField(v)
		}
		if ft.IsOneOf != nil {
			t.OneOf = *ft.IsOneOf
		}
	default:
		return nil, errorf(path, "unknown kind %q", ft.Kind)
	}
	return t, nil
}

func loadPossibleTypes(path string, t *schema.Type, refs []TypeRef) error {
	for i, ref := range refs {
		name, err := namedRef(fmt.Sprintf("%s.possibleTypes[%d]", path, i), &ref)
		if err != nil {
			return err
		}
		t.AddPossibleType(name)
	}
	return nil
}

func loadField(path string, f *Field) (*schema.Field, error) {
	if f.Name == "" {
		return nil, errorf(path, "field without a name")
	}
	ref, err := loadTypeRef(path+".type", f.Type)
	if err != nil {
		return nil, err
	}
	out := &schema.Field{
		Name:              f.Name,
		Description:       deref(f.Description),
		Type:              ref,
		IsDeprecated:      f.IsDeprecated,
		DeprecationReason: deref(f.DeprecationReason),
	}
	for _, a := range f.Args {
		arg, err := loadInputValue(path+".args["+a.Name+"]", &a)
		if err != nil {
			return nil, err
		}
		out.Arguments = append(out.Arguments, arg)
	}
	return out, nil
}

func loadInputValue(path string, iv *InputValue) (*schema.InputValue, error) {
	if iv.Name == "" {
		return nil, errorf(path, "input value without a name")
	}
	ref, err := loadTypeRef(path+".type", iv.Type)
	if err != nil {
		return nil, err
	}
	out := &schema.InputValue{
		Name:              iv.Name,
		Description:       deref(iv.Description),
		Type:              ref,
		IsDeprecated:      iv.IsDeprecated,
		DeprecationReason: deref(iv.DeprecationReason),
	}
	if iv.DefaultValue != nil {
		lit, err := language.ParseValue(*iv.DefaultValue)
		if err != nil {
			return nil, errorf(path+".defaultValue", "invalid literal %q: %v", *iv.DefaultValue, err)
		}
		v, err := schema.ValueFromAST(lit)
		if err != nil {
			return nil, errorf(path+".defaultValue", "%v", err)
		}
		out.DefaultValue = v
		out.HasDefault = true
	}
	return out, nil
}

func loadDirective(d *Directive) (*schema.Directive, error) {
	path := "directives[" + d.Name + "]"
	if d.Name == "" {
		return nil, errorf("directives", "directive without a name")
	}
	out := &schema.Directive{
		Name:         d.Name,
		Description:  deref(d.Description),
		Locations:    d.Locations,
		IsRepeatable: d.IsRepeatable,
	}
	for _, a := range d.Args {
		arg, err := loadInputValue(path+".args["+a.Name+"]", &a)
		if err != nil {
			return nil, err
		}
		out.Arguments = append(out.Arguments, arg)
	}
	return out, nil
}

func loadTypeRef(path string, ref *TypeRef) (*schema.TypeRef, error) {
	if ref == nil {
		return nil, errorf(path, "missing type reference")
	}
	switch ref.Kind {
	case "NON_NULL", "LIST":
		if ref.OfType == nil {
			return nil, errorf(path, "%s without ofType (type reference nested too deeply?)", ref.Kind)
		}
		inner, err := loadTypeRef(path+".ofType", ref.OfType)
		if err != nil {
			return nil, err
		}
		if ref.Kind == "LIST" {
			return schema.ListType(inner), nil
		}
		return schema.NonNullType(inner), nil
	case "SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT":
		if ref.Name == nil || *ref.Name == "" {
			return nil, errorf(path, "%s reference without a name", ref.Kind)
		}
		return schema.NamedType(*ref.Name), nil
	default:
		return nil, errorf(path, "unknown kind %q", ref.Kind)
	}
}

func namedRef(path string, ref *TypeRef) (string, error) {
	t, err := loadTypeRef(path, ref)
	if err != nil {
		return "", err
	}
	if t.Kind != schema.TypeRefKindNamed {
		return "", errorf(path, "expected a named type, got %s", t)
	}
	return t.Named, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
