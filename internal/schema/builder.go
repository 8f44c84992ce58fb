package schema

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hanpama/selgraph/internal/language"
)

// NewSchema returns an empty schema holding only the built-in scalars and
// directives.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	for _, t := range builtinScalars {
		s.AddType(t)
	}
	s.AddDirective(includeDirective).
		AddDirective(skipDirective)
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

// AddType registers t, replacing any type of the same name.
func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	s.Directives[d.Name] = d
	return s
}

// NewType returns an empty named type of the given kind.
func NewType(name string, kind TypeKind, description string) *Type {
	t := &Type{Name: name, Kind: kind, Description: description}
	if kind == TypeKindObject || kind == TypeKindInterface {
		t.Fields = NewFieldMap()
	}
	return t
}

func (t *Type) AddField(f *Field) *Type {
	if t.Fields == nil {
		t.Fields = NewFieldMap()
	}
	t.Fields.Set(f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

// BuildFromSDL builds a catalog from schema definition language. Extensions
// are merged into their base definitions and the result is checked.
func BuildFromSDL(name, source string) (*Schema, error) {
	doc, err := language.LoadSchema(name, source)
	if err != nil {
		return nil, fmt.Errorf("load sdl: %w", err)
	}

	s := NewSchema(doc.Description)
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}

	for typeName, def := range doc.Types {
		if def.BuiltIn {
			continue
		}
		t, err := buildDefinition(def)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", typeName, err)
		}
		if def.Kind == language.Interface {
			for _, impl := range doc.PossibleTypes[typeName] {
				t.AddPossibleType(impl.Name)
			}
			sort.Strings(t.PossibleTypes)
		}
		s.AddType(t)
	}
	for _, dir := range doc.Directives {
		if dir.Position != nil && dir.Position.Src != nil && dir.Position.Src.BuiltIn {
			continue
		}
		d, err := buildDirective(dir)
		if err != nil {
			return nil, fmt.Errorf("directive @%s: %w", dir.Name, err)
		}
		s.AddDirective(d)
	}

	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildDefinition(def *language.Definition) (*Type, error) {
	switch def.Kind {
	case language.Scalar:
		t := NewType(def.Name, TypeKindScalar, def.Description)
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
		return t, nil
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, v := range def.EnumValues {
			reason, deprecated := deprecation(v.Directives)
			t.AddEnumValue(&EnumValue{
				Name:              v.Name,
				Description:       v.Description,
				IsDeprecated:      deprecated,
				DeprecationReason: reason,
			})
		}
		return t, nil
	case language.Object, language.Interface:
		kind := TypeKindObject
		if def.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind, def.Description)
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			if len(fd.Name) > 1 && fd.Name[:2] == "__" {
				continue
			}
			f, err := buildField(fd)
			if err != nil {
				return nil, err
			}
			t.AddField(f)
		}
		return t, nil
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, member := range def.Types {
			t.AddPossibleType(member)
		}
		return t, nil
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description)
		t.OneOf = def.Directives.ForName("oneOf") != nil
		for _, fd := range def.Fields {
			v, err := buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives)
			if err != nil {
				return nil, fmt.Errorf("input field %s: %w", fd.Name, err)
			}
			t.AddInputField(v)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported definition kind %s", def.Kind)
	}
}

func buildField(fd *language.FieldDefinition) (*Field, error) {
	reason, deprecated := deprecation(fd.Directives)
	f := &Field{
		Name:              fd.Name,
		Description:       fd.Description,
		Type:              typeRefFromAST(fd.Type),
		IsDeprecated:      deprecated,
		DeprecationReason: reason,
	}
	for _, ad := range fd.Arguments {
		v, err := buildInputValue(ad.Name, ad.Description, ad.Type, ad.DefaultValue, ad.Directives)
		if err != nil {
			return nil, fmt.Errorf("field %s: argument %s: %w", fd.Name, ad.Name, err)
		}
		f.Arguments = append(f.Arguments, v)
	}
	return f, nil
}

func buildInputValue(name, desc string, typ *language.Type, def *language.Value, dirs language.DirectiveList) (*InputValue, error) {
	reason, deprecated := deprecation(dirs)
	v := &InputValue{
		Name:              name,
		Description:       desc,
		Type:              typeRefFromAST(typ),
		IsDeprecated:      deprecated,
		DeprecationReason: reason,
	}
	if def != nil {
		val, err := ValueFromAST(def)
		if err != nil {
			return nil, fmt.Errorf("default value: %w", err)
		}
		v.DefaultValue = val
		v.HasDefault = true
	}
	return v, nil
}

func buildDirective(dir *language.DirectiveDefinition) (*Directive, error) {
	d := &Directive{
		Name:         dir.Name,
		Description:  dir.Description,
		IsRepeatable: dir.IsRepeatable,
	}
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, ad := range dir.Arguments {
		v, err := buildInputValue(ad.Name, ad.Description, ad.Type, ad.DefaultValue, ad.Directives)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", ad.Name, err)
		}
		d.Arguments = append(d.Arguments, v)
	}
	return d, nil
}

func deprecation(dirs language.DirectiveList) (reason string, deprecated bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}

func typeRefFromAST(t *language.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(typeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

// EnumLiteral is an enum symbol appearing in a default value.
type EnumLiteral string

// ValueFromAST converts a constant literal into a plain Go value: nil, bool,
// int64, float64, string, EnumLiteral, []any or map[string]any.
func ValueFromAST(v *language.Value) (any, error) {
	switch v.Kind {
	case language.NullValue:
		return nil, nil
	case language.IntValue:
		return strconv.ParseInt(v.Raw, 10, 64)
	case language.FloatValue:
		return strconv.ParseFloat(v.Raw, 64)
	case language.StringValue, language.BlockValue:
		return v.Raw, nil
	case language.BooleanValue:
		return v.Raw == "true", nil
	case language.EnumValue:
		return EnumLiteral(v.Raw), nil
	case language.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			item, err := ValueFromAST(c.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			item, err := ValueFromAST(c.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c.Name, err)
			}
			out[c.Name] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported literal %q", v.String())
	}
}
